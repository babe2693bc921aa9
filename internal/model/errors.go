// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, not_found, forbidden, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidPoints     = "INVALID_POINTS"
	ErrCodeDuplicateUser     = "DUPLICATE_USER"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeAdminNotFound     = "ADMIN_NOT_FOUND"
	ErrCodeGroupNotFound     = "GROUP_NOT_FOUND"
	ErrCodeNotAMember        = "NOT_A_MEMBER"
	ErrCodeMemberNotInGroup  = "MEMBER_NOT_IN_GROUP"
	ErrCodeMudraNotFound     = "MUDRA_NOT_FOUND"
	ErrCodeInvalidMudraQuery = "INVALID_MUDRA_QUERY"
)

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryNotFound   = "not_found"
	CategoryForbidden  = "forbidden"
	CategorySystem     = "system"
)

// NewMissingFieldError は必須フィールド欠落エラーを生成する。
func NewMissingFieldError(fields ...string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("missing required field: %v", fields),
		Category: CategoryValidation,
		Action:   "必須項目を入力してください。",
	}
}

// NewInvalidRequestError はリクエスト形式の不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("invalid request: %s", reason),
		Category: CategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidPointsError はポイント値が有限の数値でない場合のエラーを生成する。
func NewInvalidPointsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPoints,
		Message:  "points must be a finite number",
		Category: CategoryValidation,
		Action:   "pointsには数値を指定してください。",
	}
}

// NewDuplicateUserError はclerkIdまたはemailが既に登録済みの場合のエラーを生成する。
func NewDuplicateUserError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  "user with this clerkId or email already exists",
		Category: CategoryValidation,
		Action:   "既存のアカウントでログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "user not found",
		Category: CategoryNotFound,
		Action:   "ログインし直してください。",
	}
}

// NewAdminNotFoundError はグループ作成時に管理者ユーザーが存在しない場合のエラーを生成する。
func NewAdminNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminNotFound,
		Message:  "admin not found",
		Category: CategoryNotFound,
		Action:   "ユーザー登録を完了してからグループを作成してください。",
	}
}

// NewGroupNotFoundError はグループが見つからない場合のエラーを生成する。
func NewGroupNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeGroupNotFound,
		Message:  "group not found",
		Category: CategoryNotFound,
		Action:   "グループIDまたは招待コードを確認してください。",
	}
}

// NewNotAMemberError はグループのメンバーでないユーザーが操作した場合のエラーを生成する。
func NewNotAMemberError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAMember,
		Message:  "not a member",
		Category: CategoryForbidden,
		Action:   "招待コードでグループに参加してください。",
	}
}

// NewMemberNotInGroupError は指定メンバーがグループに所属していない場合のエラーを生成する。
func NewMemberNotInGroupError() *APIError {
	return &APIError{
		Code:     ErrCodeMemberNotInGroup,
		Message:  "member not in group",
		Category: CategoryNotFound,
		Action:   "メンバーのIDを確認してください。",
	}
}

// NewMudraNotFoundError はムドラが見つからない場合のエラーを生成する。
func NewMudraNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeMudraNotFound,
		Message:  fmt.Sprintf("mudra not found: %s", id),
		Category: CategoryNotFound,
		Action:   "ムドラIDを確認してください。",
	}
}

// NewInvalidMudraQueryError はカタログ検索条件が不正な場合のエラーを生成する。
func NewInvalidMudraQueryError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMudraQuery,
		Message:  fmt.Sprintf("invalid mudra query: %s", reason),
		Category: CategoryValidation,
		Action:   "category、difficultyには定義済みの値を指定してください。",
	}
}
