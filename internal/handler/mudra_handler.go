package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nrityalens/nrityalens/internal/model"
)

// MudraServiceInterface はムドラハンドラーが必要とするサービスインターフェース。
type MudraServiceInterface interface {
	// List は条件に一致するムドラを名前順で返す。
	List(ctx context.Context, filter model.MudraFilter) ([]*model.Mudra, error)
	// Get は指定IDのムドラを返す。
	Get(ctx context.Context, id string) (*model.Mudra, error)
}

// MudraHandler はムドラ参照カタログのHTTPハンドラー。
type MudraHandler struct {
	service MudraServiceInterface
}

// NewMudraHandler はMudraHandlerを生成する。
func NewMudraHandler(service MudraServiceInterface) *MudraHandler {
	return &MudraHandler{
		service: service,
	}
}

// mudraResponse はムドラのAPIレスポンス。配列は空でもnullにしない。
type mudraResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	SanskritName string   `json:"sanskritName"`
	Category     string   `json:"category"`
	Meaning      string   `json:"meaning"`
	Usage        []string `json:"usage"`
	Bhava        []string `json:"bhava"`
	Animals      []string `json:"animals"`
	VideoRefs    []string `json:"videoRefs"`
	Variations   []string `json:"variations"`
	Difficulty   string   `json:"difficulty"`
}

// ListMudras はカタログを検索する。
// GET /api/mudras?category=&animal=&difficulty=&search=
func (h *MudraHandler) ListMudras(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mudras, err := h.service.List(r.Context(), model.MudraFilter{
		Category:   model.MudraCategory(q.Get("category")),
		Animal:     q.Get("animal"),
		Difficulty: model.Difficulty(q.Get("difficulty")),
		Search:     q.Get("search"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]mudraResponse, len(mudras))
	for i, m := range mudras {
		out[i] = toMudraResponse(m)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetMudra はムドラを1件返す。
// GET /api/mudras/:id
func (h *MudraHandler) GetMudra(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toMudraResponse(m))
}

func toMudraResponse(m *model.Mudra) mudraResponse {
	return mudraResponse{
		ID:           m.ID,
		Name:         m.Name,
		SanskritName: m.SanskritName,
		Category:     string(m.Category),
		Meaning:      m.Meaning,
		Usage:        orEmpty(m.Usage),
		Bhava:        orEmpty(m.Bhava),
		Animals:      orEmpty(m.Animals),
		VideoRefs:    orEmpty(m.VideoRefs),
		Variations:   orEmpty(m.Variations),
		Difficulty:   string(m.Difficulty),
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
