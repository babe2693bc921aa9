package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/nrityalens/nrityalens/internal/model"
	"github.com/nrityalens/nrityalens/internal/progress"
)

// ProgressServiceInterface は進捗ハンドラーが必要とするサービスインターフェース。
type ProgressServiceInterface interface {
	// GroupSummary はグループ全体の統計を返す。
	GroupSummary(ctx context.Context, groupID string) (*progress.GroupSummary, error)
	// MemberDetail は1メンバーの統計を返す。
	MemberDetail(ctx context.Context, groupID, clerkID string) (*progress.MemberDetail, error)
}

// ProgressHandler はグループ進捗統計のHTTPハンドラー。
type ProgressHandler struct {
	service ProgressServiceInterface
}

// NewProgressHandler はProgressHandlerを生成する。
func NewProgressHandler(service ProgressServiceInterface) *ProgressHandler {
	return &ProgressHandler{
		service: service,
	}
}

// memberSummaryResponse はメンバーごとの集計のAPIレスポンス。
type memberSummaryResponse struct {
	ClerkID     string  `json:"clerkId"`
	Name        string  `json:"name"`
	TotalPoints float64 `json:"totalPoints"`
	Sessions    int     `json:"sessions"`
}

// groupSummaryResponse はグループ統計のAPIレスポンス。
type groupSummaryResponse struct {
	Average         float64                 `json:"average"`
	Mean            float64                 `json:"mean"`
	Median          float64                 `json:"median"`
	Mode            float64                 `json:"mode"`
	MemberSummaries []memberSummaryResponse `json:"memberSummaries"`
}

// memberDetailResponse はメンバー統計のAPIレスポンス。
type memberDetailResponse struct {
	Member        memberResponse    `json:"member"`
	TotalPoints   float64           `json:"totalPoints"`
	SessionsCount int               `json:"sessionsCount"`
	Average       float64           `json:"average"`
	Median        float64           `json:"median"`
	Mode          float64           `json:"mode"`
	Sessions      []sessionResponse `json:"sessions"`
}

// GroupProgress はグループ全体の統計を返す。
// GET /api/groups/:id/progress
func (h *ProgressHandler) GroupProgress(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GroupSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	members := make([]memberSummaryResponse, len(summary.MemberSummaries))
	for i, m := range summary.MemberSummaries {
		members[i] = memberSummaryResponse{
			ClerkID:     m.ClerkID,
			Name:        m.Name,
			TotalPoints: m.TotalPoints,
			Sessions:    m.Sessions,
		}
	}

	writeJSON(w, http.StatusOK, groupSummaryResponse{
		Average:         summary.Average,
		Mean:            summary.Mean,
		Median:          summary.Median,
		Mode:            summary.Mode,
		MemberSummaries: members,
	})
}

// MemberProgress はパスで指定したメンバーの統計を返す。
// GET /api/groups/:id/progress/:clerkId
// chiはURL.RawPathが設定されている場合エスケープされたままの値を返すため、デコードしてからクエリ形式と同じ値で検索する。
func (h *ProgressHandler) MemberProgress(w http.ResponseWriter, r *http.Request) {
	clerkID, err := url.PathUnescape(chi.URLParam(r, "clerkId"))
	if err != nil {
		writeAPIError(w, model.NewInvalidRequestError("malformed clerkId"))
		return
	}
	h.writeMemberDetail(w, r, clerkID)
}

// MemberProgressByQuery はクエリで指定したメンバーの統計を返す。
// clerkIdにパスとして扱いにくい文字が含まれる場合に使う。
// GET /api/groups/:id/member-progress?clerkId=
func (h *ProgressHandler) MemberProgressByQuery(w http.ResponseWriter, r *http.Request) {
	h.writeMemberDetail(w, r, r.URL.Query().Get("clerkId"))
}

func (h *ProgressHandler) writeMemberDetail(w http.ResponseWriter, r *http.Request, clerkID string) {
	detail, err := h.service.MemberDetail(r.Context(), chi.URLParam(r, "id"), clerkID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, memberDetailResponse{
		Member:        toMemberResponse(detail.Member),
		TotalPoints:   detail.TotalPoints,
		SessionsCount: detail.SessionsCount,
		Average:       detail.Average,
		Median:        detail.Median,
		Mode:          detail.Mode,
		Sessions:      toSessionResponses(detail.Sessions),
	})
}
