package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/nrityalens/nrityalens/internal/model"
)

// PostgresMudraRepo はPostgreSQLを使用したムドラカタログリポジトリ。
type PostgresMudraRepo struct {
	db *sql.DB
}

// NewPostgresMudraRepo はPostgresMudraRepoを生成する。
func NewPostgresMudraRepo(db *sql.DB) *PostgresMudraRepo {
	return &PostgresMudraRepo{db: db}
}

const mudraColumns = `id, name, sanskrit_name, category, meaning, usage, bhava, animals, video_refs, variations, difficulty`

func scanMudra(row interface{ Scan(...any) error }) (*model.Mudra, error) {
	m := &model.Mudra{}
	var category, difficulty string
	err := row.Scan(
		&m.ID, &m.Name, &m.SanskritName, &category, &m.Meaning,
		pq.Array(&m.Usage), pq.Array(&m.Bhava), pq.Array(&m.Animals),
		pq.Array(&m.VideoRefs), pq.Array(&m.Variations), &difficulty,
	)
	if err != nil {
		return nil, err
	}
	m.Category = model.MudraCategory(category)
	m.Difficulty = model.Difficulty(difficulty)
	return m, nil
}

// buildMudraListQuery は絞り込み条件からSELECT文と引数を組み立てる。
// 空の条件は述語に含めない。
func buildMudraListQuery(filter model.MudraFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		conds = append(conds, "category = "+next(string(filter.Category)))
	}
	if filter.Difficulty != "" {
		conds = append(conds, "difficulty = "+next(string(filter.Difficulty)))
	}
	if filter.Animal != "" {
		p := next(filter.Animal)
		conds = append(conds, "EXISTS (SELECT 1 FROM unnest(animals) a WHERE lower(a) = lower("+p+"))")
	}
	if filter.Search != "" {
		p := next("%" + escapeLike(filter.Search) + "%")
		conds = append(conds, "(name ILIKE "+p+" OR sanskrit_name ILIKE "+p+" OR meaning ILIKE "+p+")")
	}

	query := `SELECT ` + mudraColumns + ` FROM mudras`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name ASC"
	return query, args
}

// escapeLike はLIKEパターンのメタ文字をエスケープする。
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// List は条件に一致するムドラを名前順で返す。
func (r *PostgresMudraRepo) List(ctx context.Context, filter model.MudraFilter) ([]*model.Mudra, error) {
	query, args := buildMudraListQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mudras: %w", err)
	}
	defer rows.Close()

	mudras := []*model.Mudra{}
	for rows.Next() {
		m, err := scanMudra(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mudra: %w", err)
		}
		mudras = append(mudras, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mudras: %w", err)
	}
	return mudras, nil
}

// FindByID は指定IDのムドラを取得する。見つからない場合、またはIDがUUID形式でない場合はnilを返す。
func (r *PostgresMudraRepo) FindByID(ctx context.Context, id string) (*model.Mudra, error) {
	if !validUUID(id) {
		return nil, nil
	}

	m, err := scanMudra(r.db.QueryRowContext(ctx,
		`SELECT `+mudraColumns+` FROM mudras WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find mudra by ID: %w", err)
	}
	return m, nil
}

// Upsert は名前をキーにムドラを作成または更新する。
// 既存行がある場合はそのIDをmudra.IDに反映する。
func (r *PostgresMudraRepo) Upsert(ctx context.Context, mudra *model.Mudra) error {
	difficulty := mudra.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyBeginner
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO mudras (`+mudraColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (name) DO UPDATE SET
			sanskrit_name = EXCLUDED.sanskrit_name,
			category = EXCLUDED.category,
			meaning = EXCLUDED.meaning,
			usage = EXCLUDED.usage,
			bhava = EXCLUDED.bhava,
			animals = EXCLUDED.animals,
			video_refs = EXCLUDED.video_refs,
			variations = EXCLUDED.variations,
			difficulty = EXCLUDED.difficulty,
			updated_at = now()
		 RETURNING id`,
		mudra.ID, mudra.Name, mudra.SanskritName, string(mudra.Category), mudra.Meaning,
		pq.Array(nonNil(mudra.Usage)), pq.Array(nonNil(mudra.Bhava)), pq.Array(nonNil(mudra.Animals)),
		pq.Array(nonNil(mudra.VideoRefs)), pq.Array(nonNil(mudra.Variations)), string(difficulty),
	).Scan(&mudra.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert mudra %q: %w", mudra.Name, err)
	}
	mudra.Difficulty = difficulty
	return nil
}

// nonNil はnilスライスを空スライスに置き換える。
// pq.Arrayはnilスライスを NULL として送るため、NOT NULL制約のあるカラムでは空配列に揃える。
func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// compile-time interface check
var _ MudraRepository = (*PostgresMudraRepo)(nil)
