package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/nrityalens/nrityalens/internal/model"
)

// PostgresGroupRepo はPostgreSQLを使用したグループリポジトリ。
// メンバーとチャットはそれぞれgroup_members、group_chatsテーブルに保持し、
// 挿入順はBIGSERIALのseqカラムで保証する。
type PostgresGroupRepo struct {
	db *sql.DB
}

// NewPostgresGroupRepo はPostgresGroupRepoを生成する。
func NewPostgresGroupRepo(db *sql.DB) *PostgresGroupRepo {
	return &PostgresGroupRepo{db: db}
}

const groupColumns = `id, name, invite_code, admin_clerk_id, created_at, updated_at`

func scanGroup(row interface{ Scan(...any) error }) (*model.Group, error) {
	g := &model.Group{}
	err := row.Scan(&g.ID, &g.Name, &g.InviteCode, &g.AdminClerkID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Create はグループと管理者メンバーを同一トランザクションで作成する。
// 招待コードの一意性はON CONFLICTで判定し、衝突時はErrInviteCodeConflictを返す。
func (r *PostgresGroupRepo) Create(ctx context.Context, group *model.Group, admin model.Member) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO groups (`+groupColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (invite_code) DO NOTHING
		 RETURNING id`,
		group.ID, group.Name, group.InviteCode, group.AdminClerkID, group.CreatedAt, group.UpdatedAt,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrInviteCodeConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, clerk_id, name, email, joined_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		group.ID, admin.ClerkID, admin.Name, admin.Email, admin.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert admin member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	group.Members = []model.Member{admin}
	return nil
}

// FindByID はメンバーを含むグループを取得する。見つからない場合はnilを返す。
func (r *PostgresGroupRepo) FindByID(ctx context.Context, id string) (*model.Group, error) {
	if !validUUID(id) {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id)
}

// FindByInviteCode は招待コードでグループを取得する。見つからない場合はnilを返す。
func (r *PostgresGroupRepo) FindByInviteCode(ctx context.Context, code string) (*model.Group, error) {
	return r.findOne(ctx, `SELECT `+groupColumns+` FROM groups WHERE invite_code = $1`, code)
}

func (r *PostgresGroupRepo) findOne(ctx context.Context, query string, arg string) (*model.Group, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group: %w", err)
	}

	if err := r.loadMembers(ctx, []*model.Group{g}); err != nil {
		return nil, err
	}
	return g, nil
}

// ListByMember はclerkIdがメンバーに含まれるグループをupdated_at降順で返す。
func (r *PostgresGroupRepo) ListByMember(ctx context.Context, clerkID string) ([]*model.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.invite_code, g.admin_clerk_id, g.created_at, g.updated_at
		 FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.clerk_id = $1
		 ORDER BY g.updated_at DESC, g.id`,
		clerkID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups by member: %w", err)
	}
	defer rows.Close()

	groups := []*model.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	if err := r.loadMembers(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// loadMembers は各グループのメンバーを参加順で読み込む。
func (r *PostgresGroupRepo) loadMembers(ctx context.Context, groups []*model.Group) error {
	if len(groups) == 0 {
		return nil
	}

	byID := make(map[string]*model.Group, len(groups))
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		g.Members = []model.Member{}
		byID[g.ID] = g
		ids = append(ids, g.ID)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id, clerk_id, name, email, joined_at
		 FROM group_members
		 WHERE group_id = ANY($1::uuid[])
		 ORDER BY seq ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var groupID string
		var m model.Member
		if err := rows.Scan(&groupID, &m.ClerkID, &m.Name, &m.Email, &m.JoinedAt); err != nil {
			return fmt.Errorf("failed to scan group member: %w", err)
		}
		if g, ok := byID[groupID]; ok {
			g.Members = append(g.Members, m)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate group members: %w", err)
	}
	return nil
}

// AddMember はメンバーを追加する。既にメンバーの場合は何もしない。
// 挿入とupdated_atの更新を1文で行い、主キー(group_id, clerk_id)により同時参加でも重複しない。
func (r *PostgresGroupRepo) AddMember(ctx context.Context, groupID string, member model.Member) (bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`WITH ins AS (
			INSERT INTO group_members (group_id, clerk_id, name, email, joined_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (group_id, clerk_id) DO NOTHING
			RETURNING group_id
		 )
		 UPDATE groups SET updated_at = now()
		 WHERE id IN (SELECT group_id FROM ins)
		 RETURNING id`,
		groupID, member.ClerkID, member.Name, member.Email, member.JoinedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add group member: %w", err)
	}
	defer rows.Close()

	added := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to add group member: %w", err)
	}
	return added, nil
}

// AppendChat はチャットメッセージを追記し、グループのupdated_atを更新する。
func (r *PostgresGroupRepo) AppendChat(ctx context.Context, msg *model.ChatMessage) error {
	_, err := r.db.ExecContext(ctx,
		`WITH ins AS (
			INSERT INTO group_chats (id, group_id, sender_clerk_id, sender_name, message, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING group_id
		 )
		 UPDATE groups SET updated_at = now()
		 WHERE id IN (SELECT group_id FROM ins)`,
		msg.ID, msg.GroupID, msg.SenderClerkID, msg.SenderName, msg.Message, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// ListRecentChats は最新limit件のメッセージを古い順で返す。
func (r *PostgresGroupRepo) ListRecentChats(ctx context.Context, groupID string, limit int) ([]model.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, sender_clerk_id, sender_name, message, created_at
		 FROM (
			SELECT seq, id, group_id, sender_clerk_id, sender_name, message, created_at
			FROM group_chats
			WHERE group_id = $1
			ORDER BY seq DESC
			LIMIT $2
		 ) recent
		 ORDER BY seq ASC`,
		groupID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	chats := []model.ChatMessage{}
	for rows.Next() {
		var c model.ChatMessage
		if err := rows.Scan(&c.ID, &c.GroupID, &c.SenderClerkID, &c.SenderName, &c.Message, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}
	return chats, nil
}

// compile-time interface check
var _ GroupRepository = (*PostgresGroupRepo)(nil)
