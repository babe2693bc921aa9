package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/nrityalens/nrityalens/internal/model"
)

// --- モック ---

type mockGroupFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Group, error)
}

func (m *mockGroupFinder) FindByID(ctx context.Context, id string) (*model.Group, error) {
	return m.findByIDFn(ctx, id)
}

type mockSessionLister struct {
	sessions map[string][]model.Session
	err      error
	calls    [][]string
}

func (m *mockSessionLister) ListSessionsByClerkIDs(ctx context.Context, clerkIDs []string) (map[string][]model.Session, error) {
	m.calls = append(m.calls, clerkIDs)
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string][]model.Session)
	for _, id := range clerkIDs {
		if s, ok := m.sessions[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func groupWith(members ...string) *mockGroupFinder {
	return &mockGroupFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Group, error) {
			if id != "group-1" {
				return nil, nil
			}
			g := &model.Group{ID: id, Name: "Dance Circle"}
			for _, m := range members {
				g.Members = append(g.Members, model.Member{ClerkID: m, Name: "Name " + m})
			}
			return g, nil
		},
	}
}

func sessionsOf(points ...float64) []model.Session {
	out := make([]model.Session, len(points))
	for i, p := range points {
		out[i] = model.Session{ID: "s", Points: p}
	}
	return out
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

// TestGroupSummary_NewGroup は作成直後のグループが全て0の統計を返すことを検証する。
func TestGroupSummary_NewGroup(t *testing.T) {
	svc := NewService(groupWith("user_a"), &mockSessionLister{})

	sum, err := svc.GroupSummary(context.Background(), "group-1")
	if err != nil {
		t.Fatalf("GroupSummary error: %v", err)
	}
	if sum.Mean != 0 || sum.Average != 0 || sum.Median != 0 || sum.Mode != 0 {
		t.Errorf("stats = %+v, want all zero", sum)
	}
	if len(sum.MemberSummaries) != 1 {
		t.Fatalf("member summaries = %d, want 1", len(sum.MemberSummaries))
	}
	ms := sum.MemberSummaries[0]
	if ms.ClerkID != "user_a" || ms.TotalPoints != 0 || ms.Sessions != 0 {
		t.Errorf("member summary = %+v", ms)
	}
}

// TestGroupSummary_PoolsInMemberOrder はメンバーの参加順でポイントを連結することを検証する。
func TestGroupSummary_PoolsInMemberOrder(t *testing.T) {
	lister := &mockSessionLister{sessions: map[string][]model.Session{
		"user_a": sessionsOf(90),
		"user_b": sessionsOf(70, 80),
	}}
	svc := NewService(groupWith("user_a", "user_b"), lister)

	sum, err := svc.GroupSummary(context.Background(), "group-1")
	if err != nil {
		t.Fatalf("GroupSummary error: %v", err)
	}
	if sum.Mean != 80 || sum.Average != 80 {
		t.Errorf("mean/average = %v/%v, want 80", sum.Mean, sum.Average)
	}
	if sum.Median != 80 {
		t.Errorf("median = %v, want 80", sum.Median)
	}
	if sum.Mode != 90 {
		t.Errorf("mode = %v, want 90 (A's session is pooled first)", sum.Mode)
	}

	want := []MemberSummary{
		{ClerkID: "user_a", Name: "Name user_a", TotalPoints: 90, Sessions: 1},
		{ClerkID: "user_b", Name: "Name user_b", TotalPoints: 150, Sessions: 2},
	}
	for i, w := range want {
		if sum.MemberSummaries[i] != w {
			t.Errorf("summary[%d] = %+v, want %+v", i, sum.MemberSummaries[i], w)
		}
	}

	if len(lister.calls) != 1 || len(lister.calls[0]) != 2 {
		t.Errorf("sessions should be loaded once for all members: %v", lister.calls)
	}
}

// TestGroupSummary_ModeFollowsPoolOrder は最頻値の同数判定がメンバー順に連結した系列の走査順に従うことを検証する。
func TestGroupSummary_ModeFollowsPoolOrder(t *testing.T) {
	// 系列は [50, 70, 70, 50]。70が先に2回目に到達する
	lister := &mockSessionLister{sessions: map[string][]model.Session{
		"user_a": sessionsOf(50),
		"user_b": sessionsOf(70, 70, 50),
	}}
	svc := NewService(groupWith("user_a", "user_b"), lister)

	sum, err := svc.GroupSummary(context.Background(), "group-1")
	if err != nil {
		t.Fatalf("GroupSummary error: %v", err)
	}
	if sum.Mode != 70 {
		t.Errorf("mode = %v, want 70", sum.Mode)
	}
}

// TestGroupSummary_MemberWithoutSessions はセッションのないメンバーが系列に値を加えないことを検証する。
func TestGroupSummary_MemberWithoutSessions(t *testing.T) {
	lister := &mockSessionLister{sessions: map[string][]model.Session{
		"user_b": sessionsOf(60, 60, 90),
	}}
	svc := NewService(groupWith("user_a", "user_b"), lister)

	sum, err := svc.GroupSummary(context.Background(), "group-1")
	if err != nil {
		t.Fatalf("GroupSummary error: %v", err)
	}
	if sum.Mean != 70 || sum.Median != 60 || sum.Mode != 60 {
		t.Errorf("stats = %+v, want mean 70 median 60 mode 60", sum)
	}
	if sum.MemberSummaries[0].TotalPoints != 0 || sum.MemberSummaries[0].Sessions != 0 {
		t.Errorf("user_a summary = %+v", sum.MemberSummaries[0])
	}
}

func TestGroupSummary_Errors(t *testing.T) {
	svc := NewService(groupWith("user_a"), &mockSessionLister{})
	_, err := svc.GroupSummary(context.Background(), "missing")
	assertAPIErrorCode(t, err, model.ErrCodeGroupNotFound)

	svc = NewService(groupWith("user_a"), &mockSessionLister{err: errors.New("db down")})
	_, err = svc.GroupSummary(context.Background(), "group-1")
	var apiErr *model.APIError
	if err == nil || errors.As(err, &apiErr) {
		t.Errorf("ストレージエラーはシステムエラーとして返すこと: %v", err)
	}
}

// TestMemberDetail_Stats はメンバー単位の統計とセッション一覧を検証する。
func TestMemberDetail_Stats(t *testing.T) {
	lister := &mockSessionLister{sessions: map[string][]model.Session{
		"user_a": sessionsOf(90),
		"user_b": sessionsOf(80, 70, 80),
	}}
	svc := NewService(groupWith("user_a", "user_b"), lister)

	d, err := svc.MemberDetail(context.Background(), "group-1", "user_b")
	if err != nil {
		t.Fatalf("MemberDetail error: %v", err)
	}
	if d.Member.ClerkID != "user_b" || d.SessionsCount != 3 || d.TotalPoints != 230 {
		t.Errorf("detail = %+v", d)
	}
	if d.Median != 80 || d.Mode != 80 {
		t.Errorf("median/mode = %v/%v, want 80/80", d.Median, d.Mode)
	}
	// セッションは並べ替えずに返す
	if d.Sessions[0].Points != 80 || d.Sessions[1].Points != 70 || d.Sessions[2].Points != 80 {
		t.Errorf("sessions reordered: %+v", d.Sessions)
	}
}

func TestMemberDetail_NoSessions(t *testing.T) {
	svc := NewService(groupWith("user_a"), &mockSessionLister{})

	d, err := svc.MemberDetail(context.Background(), "group-1", "user_a")
	if err != nil {
		t.Fatalf("MemberDetail error: %v", err)
	}
	if d.Sessions == nil || len(d.Sessions) != 0 {
		t.Errorf("sessions = %#v, want empty slice", d.Sessions)
	}
	if d.Average != 0 || d.Median != 0 || d.Mode != 0 || d.TotalPoints != 0 {
		t.Errorf("detail = %+v, want zero stats", d)
	}
}

// TestMemberDetail_NotAMember はユーザーが存在してもメンバーでなければエラーになることを検証する。
func TestMemberDetail_NotAMember(t *testing.T) {
	lister := &mockSessionLister{sessions: map[string][]model.Session{
		"user_c": sessionsOf(100),
	}}
	svc := NewService(groupWith("user_a", "user_b"), lister)

	_, err := svc.MemberDetail(context.Background(), "group-1", "user_c")
	assertAPIErrorCode(t, err, model.ErrCodeMemberNotInGroup)

	if len(lister.calls) != 0 {
		t.Error("メンバーでない場合にセッションを取得しました")
	}

	_, err = svc.MemberDetail(context.Background(), "missing", "user_a")
	assertAPIErrorCode(t, err, model.ErrCodeGroupNotFound)

	_, err = svc.MemberDetail(context.Background(), "group-1", " ")
	assertAPIErrorCode(t, err, model.ErrCodeMissingField)
}
