package mudra

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/nrityalens/nrityalens/internal/metrics"
	"github.com/nrityalens/nrityalens/internal/model"
	"github.com/nrityalens/nrityalens/internal/repository"
)

// Service はムドラカタログのサービス層。
// キャッシュが設定されている場合は読み取りをキャッシュ経由で行い、
// キャッシュの障害はログに記録してデータベースへフォールバックする。
type Service struct {
	repo    repository.MudraRepository
	cache   Cache
	metrics metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。cacheとmetricsはnilでもよい。
func NewService(repo repository.MudraRepository, cache Cache, collector metrics.MetricsCollector) *Service {
	return &Service{repo: repo, cache: cache, metrics: collector}
}

// NormalizeFilter は絞り込み条件を正規化し、列挙値を検証する。
func NormalizeFilter(f model.MudraFilter) (model.MudraFilter, error) {
	f.Category = model.MudraCategory(strings.ToLower(strings.TrimSpace(string(f.Category))))
	f.Difficulty = model.Difficulty(strings.ToLower(strings.TrimSpace(string(f.Difficulty))))
	f.Animal = strings.TrimSpace(f.Animal)
	f.Search = strings.TrimSpace(f.Search)

	if f.Category != "" && !f.Category.Valid() {
		return f, model.NewInvalidMudraQueryError(fmt.Sprintf("unknown category %q", f.Category))
	}
	if f.Difficulty != "" && !f.Difficulty.Valid() {
		return f, model.NewInvalidMudraQueryError(fmt.Sprintf("unknown difficulty %q", f.Difficulty))
	}
	return f, nil
}

// List は条件に一致するムドラを名前順で返す。
func (s *Service) List(ctx context.Context, filter model.MudraFilter) ([]*model.Mudra, error) {
	filter, err := NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	key := listCacheKey(filter)
	var cached []*model.Mudra
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	mudras, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ムドラ一覧の取得に失敗しました: %w", err)
	}

	s.cacheSet(ctx, key, mudras)
	return mudras, nil
}

// Get は指定IDのムドラを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Mudra, error) {
	id = strings.TrimSpace(id)

	key := itemCacheKey(id)
	var cached model.Mudra
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ムドラの取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, model.NewMudraNotFoundError(id)
	}

	s.cacheSet(ctx, key, m)
	return m, nil
}

// Seed はカタログを名前をキーにデータベースへ反映し、反映件数を返す。
// 反映後はキャッシュを破棄する。
func (s *Service) Seed(ctx context.Context, catalog []*model.Mudra) (int, error) {
	for i, m := range catalog {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if err := s.repo.Upsert(ctx, m); err != nil {
			return i, fmt.Errorf("ムドラの登録に失敗しました: %w", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			slog.Warn("ムドラキャッシュの破棄に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	slog.Info("ムドラカタログを登録しました",
		slog.Int("count", len(catalog)),
	)
	return len(catalog), nil
}

func (s *Service) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		slog.Warn("ムドラキャッシュの読み取りに失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	if s.metrics != nil {
		s.metrics.RecordMudraCache(hit)
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		slog.Warn("ムドラキャッシュの書き込みに失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
