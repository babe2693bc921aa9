// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/nrityalens/nrityalens/internal/model"
)

// ErrDuplicate はユニーク制約に違反した場合に返される。
var ErrDuplicate = errors.New("duplicate key")

// ErrInviteCodeConflict はグループ作成時に招待コードが既存グループと衝突した場合に返される。
// 呼び出し側はコードを再生成して再試行する。
var ErrInviteCodeConflict = errors.New("invite code conflict")

// UserRepository はユーザーと練習セッションの永続化インターフェース。
type UserRepository interface {
	// FindByClerkID はclerkIdでユーザーを取得する。見つからない場合はnilを返す。
	FindByClerkID(ctx context.Context, clerkID string) (*model.User, error)

	// ExistsByEmail は指定メールアドレスのユーザーが存在するかを返す。
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create はユーザーを作成する。clerk_idまたはemailが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdatePoints はユーザーのポイントを絶対値で更新する。
	// ユーザーが存在しない場合はnilを返す。
	UpdatePoints(ctx context.Context, clerkID string, points float64) (*model.User, error)

	// AppendSession はセッションを追記する。session.UserIDは既存ユーザーを指すこと。
	AppendSession(ctx context.Context, session *model.Session) error

	// ListSessions はユーザーのセッションを追記順で返す。
	ListSessions(ctx context.Context, userID string) ([]model.Session, error)

	// ListSessionsByClerkIDs は複数ユーザーのセッションをclerkIdごとに追記順で返す。
	// セッションを持たないユーザーはマップに含まれない。
	ListSessionsByClerkIDs(ctx context.Context, clerkIDs []string) (map[string][]model.Session, error)
}

// GroupRepository はグループ、メンバー、チャットの永続化インターフェース。
type GroupRepository interface {
	// Create はグループと最初のメンバー（管理者）を同一トランザクションで作成する。
	// 招待コードが衝突した場合はErrInviteCodeConflictを返し、何も書き込まない。
	Create(ctx context.Context, group *model.Group, admin model.Member) error

	// FindByID はメンバーを含むグループを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Group, error)

	// FindByInviteCode は招待コードでグループを取得する。見つからない場合はnilを返す。
	FindByInviteCode(ctx context.Context, code string) (*model.Group, error)

	// ListByMember はclerkIdがメンバーに含まれるグループをupdated_at降順で返す。
	ListByMember(ctx context.Context, clerkID string) ([]*model.Group, error)

	// AddMember はメンバーを追加する。既にメンバーの場合は何もしない。
	// 実際に追加された場合のみtrueを返し、グループのupdated_atを更新する。
	AddMember(ctx context.Context, groupID string, member model.Member) (bool, error)

	// AppendChat はチャットメッセージを追記し、グループのupdated_atを更新する。
	AppendChat(ctx context.Context, msg *model.ChatMessage) error

	// ListRecentChats は最新limit件のメッセージを古い順で返す。
	ListRecentChats(ctx context.Context, groupID string, limit int) ([]model.ChatMessage, error)
}

// MudraRepository はムドラカタログの永続化インターフェース。
type MudraRepository interface {
	// List は条件に一致するムドラを名前順で返す。
	List(ctx context.Context, filter model.MudraFilter) ([]*model.Mudra, error)

	// FindByID は指定IDのムドラを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Mudra, error)

	// Upsert は名前をキーにムドラを作成または更新し、mudra.IDを確定させる。
	Upsert(ctx context.Context, mudra *model.Mudra) error
}
