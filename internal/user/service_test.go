package user

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/nrityalens/nrityalens/internal/model"
	"github.com/nrityalens/nrityalens/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByClerkIDFn func(ctx context.Context, clerkID string) (*model.User, error)
	existsByEmailFn func(ctx context.Context, email string) (bool, error)
	createFn        func(ctx context.Context, user *model.User) error
	updatePointsFn  func(ctx context.Context, clerkID string, points float64) (*model.User, error)
	appendSessionFn func(ctx context.Context, session *model.Session) error
	listSessionsFn  func(ctx context.Context, userID string) ([]model.Session, error)
}

func (m *mockUserRepo) FindByClerkID(ctx context.Context, clerkID string) (*model.User, error) {
	if m.findByClerkIDFn != nil {
		return m.findByClerkIDFn(ctx, clerkID)
	}
	return nil, nil
}
func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.existsByEmailFn(ctx, email)
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) UpdatePoints(ctx context.Context, clerkID string, points float64) (*model.User, error) {
	return m.updatePointsFn(ctx, clerkID, points)
}
func (m *mockUserRepo) AppendSession(ctx context.Context, session *model.Session) error {
	if m.appendSessionFn != nil {
		return m.appendSessionFn(ctx, session)
	}
	return nil
}
func (m *mockUserRepo) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	return m.listSessionsFn(ctx, userID)
}
func (m *mockUserRepo) ListSessionsByClerkIDs(ctx context.Context, clerkIDs []string) (map[string][]model.Session, error) {
	return nil, nil
}

type mockTokenIssuer struct {
	signFn func(clerkID, email, role string) (string, error)
}

func (m *mockTokenIssuer) Sign(clerkID, email, role string) (string, error) {
	if m.signFn != nil {
		return m.signFn(clerkID, email, role)
	}
	return "signed-token", nil
}

type mockMetrics struct {
	sessions int
}

func (m *mockMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}
func (m *mockMetrics) RecordGroupCreated()                                  {}
func (m *mockMetrics) RecordGroupJoin(bool)                                 {}
func (m *mockMetrics) RecordChatMessage()                                   {}
func (m *mockMetrics) RecordSessionRecorded()                               { m.sessions++ }
func (m *mockMetrics) RecordMudraCache(bool)                                {}

func existingUser(ctx context.Context, clerkID string) (*model.User, error) {
	if clerkID == "user_a" {
		return &model.User{ID: "uid-a", ClerkID: "user_a", Name: "A", Email: "a@example.com", Role: "student"}, nil
	}
	return nil, nil
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

// --- テスト ---

func TestService_Check(t *testing.T) {
	repo := &mockUserRepo{
		existsByEmailFn: func(ctx context.Context, email string) (bool, error) {
			return email == "a@example.com", nil
		},
	}
	svc := NewService(repo, &mockTokenIssuer{}, nil, nil)

	exists, err := svc.Check(context.Background(), " a@example.com ")
	if err != nil || !exists {
		t.Errorf("Check(existing) = %v, %v; want true, nil", exists, err)
	}

	exists, err = svc.Check(context.Background(), "b@example.com")
	if err != nil || exists {
		t.Errorf("Check(unknown) = %v, %v; want false, nil", exists, err)
	}

	_, err = svc.Check(context.Background(), "  ")
	assertAPIErrorCode(t, err, model.ErrCodeMissingField)
}

func TestService_Register_Success(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	var signedFor string
	tokens := &mockTokenIssuer{
		signFn: func(clerkID, email, role string) (string, error) {
			signedFor = clerkID + "|" + role
			return "jwt", nil
		},
	}
	svc := NewService(repo, tokens, nil, nil)

	user, token, err := svc.Register(context.Background(), RegisterInput{
		ClerkID: "user_a", Name: "Asha", Email: "a@example.com",
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if token != "jwt" {
		t.Errorf("token = %q, want %q", token, "jwt")
	}
	if user.Role != model.DefaultUserRole {
		t.Errorf("role = %q, want %q", user.Role, model.DefaultUserRole)
	}
	if created == nil || created.ID == "" {
		t.Fatal("ユーザーがIDなしで作成されました")
	}
	if signedFor != "user_a|student" {
		t.Errorf("signed for %q", signedFor)
	}
}

func TestService_Register_MissingFields(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockTokenIssuer{}, nil, nil)

	_, _, err := svc.Register(context.Background(), RegisterInput{ClerkID: "user_a"})
	assertAPIErrorCode(t, err, model.ErrCodeMissingField)
}

func TestService_Register_Duplicate(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicate
		},
	}
	svc := NewService(repo, &mockTokenIssuer{}, nil, nil)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		ClerkID: "user_a", Name: "Asha", Email: "a@example.com",
	})
	assertAPIErrorCode(t, err, model.ErrCodeDuplicateUser)
}

func TestService_Register_StorageError(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return errors.New("connection refused")
		},
	}
	svc := NewService(repo, &mockTokenIssuer{}, nil, nil)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		ClerkID: "user_a", Name: "Asha", Email: "a@example.com",
	})
	var apiErr *model.APIError
	if err == nil || errors.As(err, &apiErr) {
		t.Errorf("ストレージエラーはAPIErrorではなく内部エラーとして返すこと: %v", err)
	}
}

func TestService_SetPoints(t *testing.T) {
	repo := &mockUserRepo{
		updatePointsFn: func(ctx context.Context, clerkID string, points float64) (*model.User, error) {
			if clerkID != "user_a" {
				return nil, nil
			}
			return &model.User{ClerkID: clerkID, Points: points}, nil
		},
	}
	svc := NewService(repo, &mockTokenIssuer{}, nil, nil)

	got, err := svc.SetPoints(context.Background(), "user_a", 150)
	if err != nil || got != 150 {
		t.Errorf("SetPoints = %v, %v; want 150, nil", got, err)
	}

	_, err = svc.SetPoints(context.Background(), "user_x", 10)
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = svc.SetPoints(context.Background(), "user_a", bad)
		assertAPIErrorCode(t, err, model.ErrCodeInvalidPoints)
	}
}

func TestService_AppendSession_DefaultsStartTime(t *testing.T) {
	var stored *model.Session
	repo := &mockUserRepo{
		findByClerkIDFn: existingUser,
		appendSessionFn: func(ctx context.Context, session *model.Session) error {
			stored = session
			return nil
		},
	}
	m := &mockMetrics{}
	svc := NewService(repo, &mockTokenIssuer{}, nil, m)
	fixed := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	session, err := svc.AppendSession(context.Background(), "user_a", SessionInput{Points: 90, MudrasAttempted: 5})
	if err != nil {
		t.Fatalf("AppendSession error: %v", err)
	}
	if !session.StartTime.Equal(fixed) {
		t.Errorf("StartTime = %v, want %v", session.StartTime, fixed)
	}
	if stored == nil || stored.UserID != "uid-a" || stored.Points != 90 {
		t.Errorf("stored = %+v", stored)
	}
	if m.sessions != 1 {
		t.Errorf("sessions metric = %d, want 1", m.sessions)
	}
}

func TestService_AppendSession_KeepsGivenStartTime(t *testing.T) {
	repo := &mockUserRepo{findByClerkIDFn: existingUser}
	svc := NewService(repo, &mockTokenIssuer{}, nil, nil)
	given := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	session, err := svc.AppendSession(context.Background(), "user_a", SessionInput{Points: 1, StartTime: &given})
	if err != nil {
		t.Fatalf("AppendSession error: %v", err)
	}
	if !session.StartTime.Equal(given) {
		t.Errorf("StartTime = %v, want %v", session.StartTime, given)
	}
}

func TestService_AppendSession_Errors(t *testing.T) {
	appendCalled := false
	repo := &mockUserRepo{
		findByClerkIDFn: existingUser,
		appendSessionFn: func(ctx context.Context, session *model.Session) error {
			appendCalled = true
			return nil
		},
	}
	svc := NewService(repo, &mockTokenIssuer{}, nil, nil)

	_, err := svc.AppendSession(context.Background(), "user_a", SessionInput{Points: math.NaN()})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidPoints)

	_, err = svc.AppendSession(context.Background(), "user_x", SessionInput{Points: 10})
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)

	if appendCalled {
		t.Error("エラー時にセッションが保存されました")
	}
}

func TestService_ListSessions_TimeAscendingStable(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockUserRepo{
		findByClerkIDFn: existingUser,
		listSessionsFn: func(ctx context.Context, userID string) ([]model.Session, error) {
			// 追記順
			return []model.Session{
				{ID: "s1", StartTime: t0.Add(2 * time.Hour)},
				{ID: "s2", StartTime: t0},
				{ID: "s3", StartTime: t0.Add(2 * time.Hour)},
				{ID: "s4", StartTime: t0.Add(time.Hour)},
			}, nil
		},
	}
	svc := NewService(repo, &mockTokenIssuer{}, nil, nil)

	sessions, err := svc.ListSessions(context.Background(), "user_a")
	if err != nil {
		t.Fatalf("ListSessions error: %v", err)
	}

	want := []string{"s2", "s4", "s1", "s3"}
	for i, id := range want {
		if sessions[i].ID != id {
			t.Errorf("sessions[%d] = %s, want %s", i, sessions[i].ID, id)
		}
	}

	_, err = svc.ListSessions(context.Background(), "user_x")
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}
