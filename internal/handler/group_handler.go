package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nrityalens/nrityalens/internal/group"
	"github.com/nrityalens/nrityalens/internal/model"
)

// GroupServiceInterface はグループハンドラーが必要とするサービスインターフェース。
type GroupServiceInterface interface {
	// Create はグループを作成し、作成者を最初のメンバーとして登録する。
	Create(ctx context.Context, name, adminClerkID string) (*group.CreateResult, error)
	// List はclerkIdが所属するグループを更新日時の新しい順で返す。
	List(ctx context.Context, clerkID string) ([]*model.Group, error)
	// Get はメンバーを含むグループを返す。
	Get(ctx context.Context, groupID string) (*model.Group, error)
	// Join は招待コードでグループに参加する。既にメンバーの場合は何もしない。
	Join(ctx context.Context, inviteCode, clerkID string) (*model.Group, error)
	// PostChat はチャットメッセージを投稿する。
	PostChat(ctx context.Context, groupID, senderClerkID, message string) (*model.ChatMessage, error)
	// FetchChats は最新のチャットメッセージを古い順で返す。
	FetchChats(ctx context.Context, groupID string) ([]model.ChatMessage, error)
}

// GroupHandler はグループ管理とチャットのHTTPハンドラー。
type GroupHandler struct {
	service GroupServiceInterface
}

// NewGroupHandler はGroupHandlerを生成する。
func NewGroupHandler(service GroupServiceInterface) *GroupHandler {
	return &GroupHandler{
		service: service,
	}
}

// createGroupRequest はグループ作成リクエストのボディ。
type createGroupRequest struct {
	Name         string `json:"name" validate:"notblank,max=100"`
	AdminClerkID string `json:"adminClerkId" validate:"notblank"`
}

// joinGroupRequest はグループ参加リクエストのボディ。
type joinGroupRequest struct {
	InviteCode string `json:"inviteCode" validate:"notblank"`
	ClerkID    string `json:"clerkId" validate:"notblank"`
}

// postChatRequest はチャット投稿リクエストのボディ。
// 空判定はサニタイズ後にサービス層で行う。
type postChatRequest struct {
	ClerkID string `json:"clerkId" validate:"notblank"`
	Message string `json:"message" validate:"notblank"`
}

// memberResponse はグループメンバーのAPIレスポンス。
type memberResponse struct {
	ClerkID  string    `json:"clerkId"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joinedAt"`
}

// groupResponse はグループ情報のAPIレスポンス。
type groupResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	InviteCode   string           `json:"inviteCode"`
	AdminClerkID string           `json:"adminClerkId"`
	Members      []memberResponse `json:"members"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// chatMessageResponse はチャットメッセージのAPIレスポンス。
type chatMessageResponse struct {
	ID            string    `json:"id"`
	SenderClerkID string    `json:"senderClerkId"`
	SenderName    string    `json:"senderName"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CreateGroup はグループを作成する。
// POST /api/groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	result, err := h.service.Create(r.Context(), req.Name, req.AdminClerkID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"group":      toGroupResponse(result.Group),
		"inviteLink": result.InviteLink,
	})
}

// ListGroups はユーザーが所属するグループ一覧を返す。
// GET /api/groups?clerkId=
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.List(r.Context(), r.URL.Query().Get("clerkId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]groupResponse, len(groups))
	for i, g := range groups {
		out[i] = toGroupResponse(g)
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": out})
}

// GetGroup はグループ詳細を返す。
// GET /api/groups/:id
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"group": toGroupResponse(g)})
}

// JoinGroup は招待コードでグループに参加する。
// POST /api/groups/join
func (h *GroupHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	var req joinGroupRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	g, err := h.service.Join(r.Context(), req.InviteCode, req.ClerkID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"group": toGroupResponse(g)})
}

// PostChat はチャットメッセージを投稿する。
// POST /api/groups/:id/chat
func (h *GroupHandler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req postChatRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	if _, err := h.service.PostChat(r.Context(), chi.URLParam(r, "id"), req.ClerkID, req.Message); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

// FetchChats は最新200件のチャットメッセージを返す。
// GET /api/groups/:id/chat
func (h *GroupHandler) FetchChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.service.FetchChats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]chatMessageResponse, len(chats))
	for i, c := range chats {
		out[i] = chatMessageResponse{
			ID:            c.ID,
			SenderClerkID: c.SenderClerkID,
			SenderName:    c.SenderName,
			Message:       c.Message,
			CreatedAt:     c.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": out})
}

func toMemberResponse(m model.Member) memberResponse {
	return memberResponse{
		ClerkID:  m.ClerkID,
		Name:     m.Name,
		Email:    m.Email,
		JoinedAt: m.JoinedAt,
	}
}

func toGroupResponse(g *model.Group) groupResponse {
	members := make([]memberResponse, len(g.Members))
	for i, m := range g.Members {
		members[i] = toMemberResponse(m)
	}
	return groupResponse{
		ID:           g.ID,
		Name:         g.Name,
		InviteCode:   g.InviteCode,
		AdminClerkID: g.AdminClerkID,
		Members:      members,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}
