package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/nrityalens/nrityalens/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, clerk_id, name, email, role, points, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.ClerkID, &user.Name, &user.Email, &user.Role,
		&user.Points, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByClerkID はclerkIdでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByClerkID(ctx context.Context, clerkID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE clerk_id = $1`,
		clerkID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by clerk ID: %w", err)
	}
	return user, nil
}

// ExistsByEmail は指定メールアドレスのユーザーが存在するかを返す。
func (r *PostgresUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user email: %w", err)
	}
	return exists, nil
}

// Create はユーザーを作成する。clerk_idまたはemailが重複する場合はErrDuplicateを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.ClerkID, user.Name, user.Email, user.Role,
		user.Points, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdatePoints はユーザーのポイントを絶対値で更新する。
// ユーザーが存在しない場合はnilを返す。
func (r *PostgresUserRepo) UpdatePoints(ctx context.Context, clerkID string, points float64) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users SET points = $2, updated_at = now()
		 WHERE clerk_id = $1
		 RETURNING `+userColumns,
		clerkID, points,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user points: %w", err)
	}
	return user, nil
}

// AppendSession はセッションを追記する。
func (r *PostgresUserRepo) AppendSession(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (id, user_id, points, mudras_attempted, duration_seconds, start_time)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.UserID, session.Points,
		session.MudrasAttempted, session.DurationSeconds, session.StartTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// ListSessions はユーザーのセッションを追記順で返す。
func (r *PostgresUserRepo) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, points, mudras_attempted, duration_seconds, start_time
		 FROM user_sessions
		 WHERE user_id = $1
		 ORDER BY seq ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Points, &s.MudrasAttempted, &s.DurationSeconds, &s.StartTime); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

// ListSessionsByClerkIDs は複数ユーザーのセッションをclerkIdごとに追記順で返す。
func (r *PostgresUserRepo) ListSessionsByClerkIDs(ctx context.Context, clerkIDs []string) (map[string][]model.Session, error) {
	result := make(map[string][]model.Session)
	if len(clerkIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT u.clerk_id, s.id, s.user_id, s.points, s.mudras_attempted, s.duration_seconds, s.start_time
		 FROM user_sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE u.clerk_id = ANY($1)
		 ORDER BY s.seq ASC`,
		pq.Array(clerkIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions by clerk IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var clerkID string
		var s model.Session
		if err := rows.Scan(&clerkID, &s.ID, &s.UserID, &s.Points, &s.MudrasAttempted, &s.DurationSeconds, &s.StartTime); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		result[clerkID] = append(result[clerkID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return result, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
