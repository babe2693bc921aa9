// Package user はユーザー登録と練習セッション記録のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nrityalens/nrityalens/internal/events"
	"github.com/nrityalens/nrityalens/internal/metrics"
	"github.com/nrityalens/nrityalens/internal/model"
	"github.com/nrityalens/nrityalens/internal/repository"
)

// TokenIssuer は登録完了時にトークンを発行するインターフェース。
type TokenIssuer interface {
	Sign(clerkID, email, role string) (string, error)
}

// RegisterInput はユーザー登録の入力。Roleは省略時にDefaultUserRoleになる。
type RegisterInput struct {
	ClerkID string
	Name    string
	Email   string
	Role    string
}

// SessionInput は練習セッション追記の入力。StartTimeがnilの場合は追記時刻を使う。
type SessionInput struct {
	Points          float64
	MudrasAttempted int
	DurationSeconds int
	StartTime       *time.Time
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	emitter  *events.Emitter
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// emitterとmetricsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	tokens TokenIssuer,
	emitter *events.Emitter,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
		emitter:  emitter,
		metrics:  collector,
		now:      time.Now,
	}
}

// Check はメールアドレスが登録済みかどうかを返す。
func (s *Service) Check(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, model.NewMissingFieldError("email")
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("ユーザーの確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Register はユーザーを登録し、トークンを発行する。
// clerkIdまたはemailが既に存在する場合は重複エラーを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	in.ClerkID = strings.TrimSpace(in.ClerkID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)

	var missing []string
	if in.ClerkID == "" {
		missing = append(missing, "clerkId")
	}
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return nil, "", model.NewMissingFieldError(missing...)
	}
	if in.Role == "" {
		in.Role = model.DefaultUserRole
	}

	now := s.now().UTC()
	user := &model.User{
		ID:        uuid.NewString(),
		ClerkID:   in.ClerkID,
		Name:      in.Name,
		Email:     in.Email,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", model.NewDuplicateUserError()
		}
		return nil, "", fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	token, err := s.tokens.Sign(user.ClerkID, user.Email, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	slog.Info("ユーザーを登録しました",
		slog.String("clerk_id", user.ClerkID),
		slog.String("role", user.Role),
	)

	return user, token, nil
}

// Get はclerkIdでユーザーを取得する。
func (s *Service) Get(ctx context.Context, clerkID string) (*model.User, error) {
	return s.findUser(ctx, clerkID)
}

// SetPoints はユーザーのポイントを絶対値で設定する。
func (s *Service) SetPoints(ctx context.Context, clerkID string, points float64) (float64, error) {
	if !isFinite(points) {
		return 0, model.NewInvalidPointsError()
	}

	user, err := s.userRepo.UpdatePoints(ctx, clerkID, points)
	if err != nil {
		return 0, fmt.Errorf("ポイントの更新に失敗しました: %w", err)
	}
	if user == nil {
		return 0, model.NewUserNotFoundError()
	}
	return user.Points, nil
}

// AppendSession は練習セッションを追記する。
func (s *Service) AppendSession(ctx context.Context, clerkID string, in SessionInput) (*model.Session, error) {
	if !isFinite(in.Points) {
		return nil, model.NewInvalidPointsError()
	}

	user, err := s.findUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	start := s.now().UTC()
	if in.StartTime != nil && !in.StartTime.IsZero() {
		start = in.StartTime.UTC()
	}

	session := &model.Session{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		Points:          in.Points,
		MudrasAttempted: in.MudrasAttempted,
		DurationSeconds: in.DurationSeconds,
		StartTime:       start,
	}
	if err := s.userRepo.AppendSession(ctx, session); err != nil {
		return nil, fmt.Errorf("セッションの記録に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSessionRecorded()
	}
	s.emitter.Emit(ctx, events.UserSessionRecorded, user.ClerkID, map[string]any{
		"clerkId":   user.ClerkID,
		"sessionId": session.ID,
		"points":    session.Points,
	})

	return session, nil
}

// ListSessions はユーザーのセッションを開始時刻の昇順で返す。
// 開始時刻が同じ場合は追記順を維持する。
func (s *Service) ListSessions(ctx context.Context, clerkID string) ([]model.Session, error) {
	user, err := s.findUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.userRepo.ListSessions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	return sessions, nil
}

func (s *Service) findUser(ctx context.Context, clerkID string) (*model.User, error) {
	clerkID = strings.TrimSpace(clerkID)
	if clerkID == "" {
		return nil, model.NewMissingFieldError("clerkId")
	}

	user, err := s.userRepo.FindByClerkID(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
