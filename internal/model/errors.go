// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// Messageはフロントエンドがそのまま表示するため英語で保持する。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, deck, ai, export, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInvalidToken      = "INVALID_TOKEN"
	ErrCodeUserNotSynced     = "USER_NOT_SYNCED"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeDeckNotFound      = "DECK_NOT_FOUND"
	ErrCodeSlideNotFound     = "SLIDE_NOT_FOUND"
	ErrCodeInvalidStatus     = "INVALID_STATUS"
	ErrCodeDuplicateSlideID  = "DUPLICATE_SLIDE_ID"
	ErrCodeInvalidReorder    = "INVALID_REORDER"
	ErrCodeAIUnavailable     = "AI_UNAVAILABLE"
	ErrCodeAIInvalidResponse = "AI_INVALID_RESPONSE"
	ErrCodeExportFailed      = "EXPORT_FAILED"
	ErrCodeExportTimeout     = "EXPORT_TIMEOUT"
	ErrCodeExportNotFound    = "EXPORT_NOT_FOUND"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewUnauthorizedError は認証トークン未指定エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "No authorization token provided",
		Category: "auth",
		Action:   "Sign in and retry with an Authorization: Bearer header.",
	}
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "Invalid or expired token",
		Category: "auth",
		Action:   "Refresh your session and try again.",
	}
}

// NewUserNotSyncedError はトークンは有効だがローカルユーザーが未作成の場合のエラーを生成する。
func NewUserNotSyncedError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotSynced,
		Message:  "User not found. Please log in again.",
		Category: "auth",
		Action:   "Call POST /users/sync after signing in.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "Invalid request body",
		Category: "validation",
		Action:   "Send a valid JSON body.",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "Check the request fields and try again.",
	}
}

// NewDeckNotFoundError はデッキ未検出エラーを生成する。
// 他ユーザーのデッキも存在しないものとして扱う。
func NewDeckNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeDeckNotFound,
		Message:  "Deck not found or access denied",
		Category: "deck",
		Action:   "Check the deck ID.",
	}
}

// NewSlideNotFoundError はスライド未検出エラーを生成する。
// slideIDが空の場合は汎用メッセージを返す。
func NewSlideNotFoundError(slideID string) *APIError {
	msg := "Slide not found"
	if slideID != "" {
		msg = fmt.Sprintf("Slide %s not found", slideID)
	}
	return &APIError{
		Code:     ErrCodeSlideNotFound,
		Message:  msg,
		Category: "deck",
		Action:   "Reload the deck and try again.",
	}
}

// NewInvalidStatusError は無効なデッキステータスエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("Invalid deck status: %s", status),
		Category: "validation",
		Action:   "Use one of draft, published, archived.",
	}
}

// NewDuplicateSlideIDError はスライドIDの重複エラーを生成する。
func NewDuplicateSlideIDError(slideID string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSlideID,
		Message:  fmt.Sprintf("Duplicate slide id: %s", slideID),
		Category: "validation",
		Action:   "Every slide in a deck needs a unique id.",
	}
}

// NewInvalidReorderError は並び替え指定が現在のスライド集合と一致しない場合のエラーを生成する。
func NewInvalidReorderError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidReorder,
		Message:  fmt.Sprintf("Invalid slide order: %s", reason),
		Category: "validation",
		Action:   "Send every slide id of the deck exactly once.",
	}
}

// NewAIUnavailableError はLLM呼び出し失敗エラーを生成する。
func NewAIUnavailableError(operation string) *APIError {
	return &APIError{
		Code:     ErrCodeAIUnavailable,
		Message:  fmt.Sprintf("Failed to %s", operation),
		Category: "ai",
		Action:   "Wait a moment and try again.",
	}
}

// NewAIInvalidResponseError はLLM応答の形式不正エラーを生成する。
func NewAIInvalidResponseError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeAIInvalidResponse,
		Message:  fmt.Sprintf("Invalid AI response: %s", reason),
		Category: "ai",
		Action:   "Try again.",
	}
}

// NewExportFailedError はエクスポート生成失敗エラーを生成する。
func NewExportFailedError(format string) *APIError {
	return &APIError{
		Code:     ErrCodeExportFailed,
		Message:  fmt.Sprintf("Failed to export %s", format),
		Category: "export",
		Action:   "Try again later.",
	}
}

// NewExportTimeoutError はエクスポート生成のタイムアウトエラーを生成する。
func NewExportTimeoutError(format string) *APIError {
	return &APIError{
		Code:     ErrCodeExportTimeout,
		Message:  fmt.Sprintf("%s generation timed out", format),
		Category: "export",
		Action:   "Reduce the number of slides or try again.",
	}
}

// NewExportNotFoundError はアーカイブ済みエクスポート未検出エラーを生成する。
func NewExportNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeExportNotFound,
		Message:  "Export not found",
		Category: "export",
		Action:   "Check the export ID.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
		Action:   "Try again later.",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Wait and retry after the time given in Retry-After.",
	}
}
