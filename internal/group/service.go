// Package group は練習グループの作成、招待コードによる参加、チャットのドメインロジックを提供する。
package group

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nrityalens/nrityalens/internal/events"
	"github.com/nrityalens/nrityalens/internal/metrics"
	"github.com/nrityalens/nrityalens/internal/model"
	"github.com/nrityalens/nrityalens/internal/repository"
)

// UserFinder はclerkIdからユーザーを解決するインターフェース。
type UserFinder interface {
	FindByClerkID(ctx context.Context, clerkID string) (*model.User, error)
}

// MessageSanitizer はチャット本文を保存可能なテキストに正規化するインターフェース。
type MessageSanitizer interface {
	Sanitize(message string) string
}

// CreateResult はグループ作成の結果。
type CreateResult struct {
	Group      *model.Group
	InviteLink string
}

// Service はグループ管理のサービス層。
// メンバー重複や招待コードの一意性はストレージの制約で保証し、プロセス内では排他制御しない。
type Service struct {
	groupRepo repository.GroupRepository
	users     UserFinder
	sanitizer MessageSanitizer
	emitter   *events.Emitter
	metrics   metrics.MetricsCollector
	baseURL   string
	random    io.Reader
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// emitterとmetricsはnilでもよい。
func NewService(
	groupRepo repository.GroupRepository,
	users UserFinder,
	sanitizer MessageSanitizer,
	emitter *events.Emitter,
	collector metrics.MetricsCollector,
	baseURL string,
) *Service {
	return &Service{
		groupRepo: groupRepo,
		users:     users,
		sanitizer: sanitizer,
		emitter:   emitter,
		metrics:   collector,
		baseURL:   baseURL,
		random:    defaultRandReader,
		now:       time.Now,
	}
}

// Create はグループを作成し、管理者を最初のメンバーとして登録する。
// 招待コードが既存グループと衝突した場合は再生成して再試行する。
func (s *Service) Create(ctx context.Context, name, adminClerkID string) (*CreateResult, error) {
	name = strings.TrimSpace(name)
	adminClerkID = strings.TrimSpace(adminClerkID)

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if adminClerkID == "" {
		missing = append(missing, "adminClerkId")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldError(missing...)
	}

	admin, err := s.users.FindByClerkID(ctx, adminClerkID)
	if err != nil {
		return nil, fmt.Errorf("管理者ユーザーの取得に失敗しました: %w", err)
	}
	if admin == nil {
		return nil, model.NewAdminNotFoundError()
	}

	now := s.now().UTC()
	member := model.Member{
		ClerkID:  admin.ClerkID,
		Name:     admin.Name,
		Email:    admin.Email,
		JoinedAt: now,
	}

	for attempt := 1; attempt <= maxInviteCodeAttempts; attempt++ {
		code, err := newInviteCode(s.random)
		if err != nil {
			return nil, err
		}

		group := &model.Group{
			ID:           uuid.NewString(),
			Name:         name,
			InviteCode:   code,
			AdminClerkID: admin.ClerkID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = s.groupRepo.Create(ctx, group, member)
		if errors.Is(err, repository.ErrInviteCodeConflict) {
			slog.Warn("招待コードが衝突したため再生成します",
				slog.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("グループの作成に失敗しました: %w", err)
		}

		if s.metrics != nil {
			s.metrics.RecordGroupCreated()
		}
		s.emitter.Emit(ctx, events.GroupCreated, group.ID, map[string]any{
			"groupId":      group.ID,
			"name":         group.Name,
			"adminClerkId": group.AdminClerkID,
		})
		slog.Info("グループを作成しました",
			slog.String("group_id", group.ID),
			slog.String("clerk_id", admin.ClerkID),
		)

		return &CreateResult{
			Group:      group,
			InviteLink: InviteLink(s.baseURL, group.InviteCode),
		}, nil
	}

	return nil, fmt.Errorf("招待コードの生成に%d回失敗しました", maxInviteCodeAttempts)
}

// List はclerkIdがメンバーに含まれるグループを更新日時の新しい順で返す。
func (s *Service) List(ctx context.Context, clerkID string) ([]*model.Group, error) {
	clerkID = strings.TrimSpace(clerkID)
	if clerkID == "" {
		return nil, model.NewMissingFieldError("clerkId")
	}

	groups, err := s.groupRepo.ListByMember(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("グループ一覧の取得に失敗しました: %w", err)
	}
	return groups, nil
}

// Get はメンバーを含むグループを返す。
func (s *Service) Get(ctx context.Context, groupID string) (*model.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("グループの取得に失敗しました: %w", err)
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError()
	}
	return group, nil
}

// Join は招待コードでグループに参加する。
// 既にメンバーの場合は何も変更せず、現在のグループを返す。
func (s *Service) Join(ctx context.Context, inviteCode, clerkID string) (*model.Group, error) {
	inviteCode = NormalizeInviteCode(inviteCode)
	clerkID = strings.TrimSpace(clerkID)

	var missing []string
	if inviteCode == "" {
		missing = append(missing, "inviteCode")
	}
	if clerkID == "" {
		missing = append(missing, "clerkId")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldError(missing...)
	}

	group, err := s.groupRepo.FindByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, fmt.Errorf("グループの取得に失敗しました: %w", err)
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError()
	}

	user, err := s.users.FindByClerkID(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	added, err := s.groupRepo.AddMember(ctx, group.ID, model.Member{
		ClerkID:  user.ClerkID,
		Name:     user.Name,
		Email:    user.Email,
		JoinedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("グループへの参加に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordGroupJoin(added)
	}
	if !added {
		return group, nil
	}

	s.emitter.Emit(ctx, events.GroupMemberJoined, group.ID, map[string]any{
		"groupId": group.ID,
		"clerkId": user.ClerkID,
	})

	// 同時に参加した他のメンバーも含めた最新状態を返す
	return s.Get(ctx, group.ID)
}

// PostChat はグループにチャットメッセージを投稿する。
// 投稿者はグループのメンバーである必要がある。
func (s *Service) PostChat(ctx context.Context, groupID, senderClerkID, message string) (*model.ChatMessage, error) {
	senderClerkID = strings.TrimSpace(senderClerkID)
	message = s.sanitizer.Sanitize(message)

	var missing []string
	if senderClerkID == "" {
		missing = append(missing, "senderClerkId")
	}
	if message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldError(missing...)
	}

	group, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	sender, err := s.users.FindByClerkID(ctx, senderClerkID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if sender == nil {
		return nil, model.NewUserNotFoundError()
	}
	if !group.HasMember(senderClerkID) {
		return nil, model.NewNotAMemberError()
	}

	msg := &model.ChatMessage{
		ID:            uuid.NewString(),
		GroupID:       group.ID,
		SenderClerkID: sender.ClerkID,
		SenderName:    sender.Name,
		Message:       message,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.groupRepo.AppendChat(ctx, msg); err != nil {
		return nil, fmt.Errorf("チャットの保存に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordChatMessage()
	}
	s.emitter.Emit(ctx, events.GroupChatPosted, group.ID, map[string]any{
		"groupId":       group.ID,
		"chatId":        msg.ID,
		"senderClerkId": msg.SenderClerkID,
	})

	return msg, nil
}

// FetchChats は最新ChatFetchLimit件のメッセージを投稿順で返す。
func (s *Service) FetchChats(ctx context.Context, groupID string) ([]model.ChatMessage, error) {
	group, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	chats, err := s.groupRepo.ListRecentChats(ctx, group.ID, model.ChatFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("チャットの取得に失敗しました: %w", err)
	}
	return chats, nil
}
