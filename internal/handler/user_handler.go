package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nrityalens/nrityalens/internal/model"
	"github.com/nrityalens/nrityalens/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Check はメールアドレスが登録済みかどうかを返す。
	Check(ctx context.Context, email string) (bool, error)
	// Register はユーザーを登録し、トークンを発行する。
	Register(ctx context.Context, in user.RegisterInput) (*model.User, string, error)
	// Get はclerkIdでユーザーを取得する。
	Get(ctx context.Context, clerkID string) (*model.User, error)
	// SetPoints はポイントを絶対値で設定する。
	SetPoints(ctx context.Context, clerkID string, points float64) (float64, error)
	// AppendSession は練習セッションを追記する。
	AppendSession(ctx context.Context, clerkID string, in user.SessionInput) (*model.Session, error)
	// ListSessions はセッションを開始時刻の昇順で返す。
	ListSessions(ctx context.Context, clerkID string) ([]model.Session, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
// ルートの:idは外部IdPのclerkId。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// checkUserRequest はユーザー存在確認リクエストのボディ。
type checkUserRequest struct {
	Email string `json:"email" validate:"notblank"`
}

// registerUserRequest はユーザー登録リクエストのボディ。
type registerUserRequest struct {
	ClerkID string `json:"clerkId" validate:"notblank"`
	Name    string `json:"name" validate:"notblank,max=100"`
	Email   string `json:"email" validate:"notblank,email"`
	Role    string `json:"role" validate:"omitempty,max=32"`
}

// setPointsRequest はポイント設定リクエストのボディ。
type setPointsRequest struct {
	Points flexibleNumber `json:"points"`
}

// appendSessionRequest はセッション追記リクエストのボディ。durationは秒単位。
type appendSessionRequest struct {
	Points          flexibleNumber `json:"points"`
	MudrasAttempted int            `json:"mudrasAttempted" validate:"gte=0"`
	Duration        int            `json:"duration" validate:"gte=0"`
	StartTime       *time.Time     `json:"startTime"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        string    `json:"id"`
	ClerkID   string    `json:"clerkId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Points    float64   `json:"points"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// sessionResponse は練習セッションのAPIレスポンス。
type sessionResponse struct {
	ID              string    `json:"id"`
	Points          float64   `json:"points"`
	MudrasAttempted int       `json:"mudrasAttempted"`
	Duration        int       `json:"duration"`
	StartTime       time.Time `json:"startTime"`
}

// Check はメールアドレスでユーザーの存在を確認する。
// POST /api/users/check
func (h *UserHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkUserRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	exists, err := h.service.Check(r.Context(), req.Email)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// Register はユーザーを登録する。
// POST /api/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	u, token, err := h.service.Register(r.Context(), user.RegisterInput{
		ClerkID: req.ClerkID,
		Name:    req.Name,
		Email:   req.Email,
		Role:    req.Role,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  toUserResponse(u),
		"token": token,
	})
}

// GetUser はユーザー情報を取得する。
// GET /api/users/:id
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(u)})
}

// SetPoints はユーザーのポイントを設定する。
// PUT /api/users/:id/points
func (h *UserHandler) SetPoints(w http.ResponseWriter, r *http.Request) {
	var req setPointsRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if !req.Points.set {
		writeAPIError(w, model.NewInvalidPointsError())
		return
	}

	points, err := h.service.SetPoints(r.Context(), chi.URLParam(r, "id"), req.Points.value)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]float64{"points": points})
}

// AppendSession は練習セッションを記録する。
// POST /api/users/:id/sessions
func (h *UserHandler) AppendSession(w http.ResponseWriter, r *http.Request) {
	var req appendSessionRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if !req.Points.set {
		writeAPIError(w, model.NewInvalidPointsError())
		return
	}

	session, err := h.service.AppendSession(r.Context(), chi.URLParam(r, "id"), user.SessionInput{
		Points:          req.Points.value,
		MudrasAttempted: req.MudrasAttempted,
		DurationSeconds: req.Duration,
		StartTime:       req.StartTime,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"session": toSessionResponse(*session)})
}

// ListSessions はユーザーのセッションを開始時刻の昇順で返す。
// GET /api/users/:id/sessions
func (h *UserHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListSessions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": toSessionResponses(sessions)})
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		ClerkID:   u.ClerkID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Points:    u.Points,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toSessionResponse(s model.Session) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		Points:          s.Points,
		MudrasAttempted: s.MudrasAttempted,
		Duration:        s.DurationSeconds,
		StartTime:       s.StartTime,
	}
}

func toSessionResponses(sessions []model.Session) []sessionResponse {
	out := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		out[i] = toSessionResponse(s)
	}
	return out
}
