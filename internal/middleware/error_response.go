package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nrityalens/nrityalens/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// StatusForCategory はAPIErrorのカテゴリに対応するHTTPステータスコードを返す。
// 未知のカテゴリはsystem扱い（500）とする。
func StatusForCategory(category string) int {
	switch category {
	case model.CategoryValidation:
		return http.StatusBadRequest
	case model.CategoryNotFound:
		return http.StatusNotFound
	case model.CategoryForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteAPIError はカテゴリから決まるステータスコードでAPIErrorを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForCategory(apiErr.Category), apiErr)
}

// WriteErrorResponse はステータスコードを明示してAPIErrorを書き込む。
// ルーティング由来の405や429など、カテゴリとステータスが一致しない場合に使う。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}); err != nil {
		slog.Error("failed to encode error response", slog.String("error", err.Error()))
	}
}

// WriteInternalServerError は内部エラーの統一レスポンスを書き込む。
// 原因はログにのみ残し、クライアントには返さない。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAPIError(w, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "internal server error",
		Category: model.CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	})
}
