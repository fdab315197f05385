package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/pitchdeck/internal/middleware"
	"github.com/hitoshi/pitchdeck/internal/model"
)

// maxRequestBodySize はJSONリクエストボディの上限（1MB）。
const maxRequestBodySize = 1 << 20

// successResponse は成功時の統一フォーマット。
type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeSuccess は{success:true, message?, data}形式で書き込む。
func writeSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	writeJSON(w, statusCode, successResponse{Success: true, Message: message, Data: data})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidToken, model.ErrCodeUserNotSynced:
		return http.StatusUnauthorized
	case model.ErrCodeDeckNotFound, model.ErrCodeSlideNotFound, model.ErrCodeUserNotFound, model.ErrCodeExportNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidRequest, model.ErrCodeValidationFailed, model.ErrCodeInvalidStatus,
		model.ErrCodeDuplicateSlideID, model.ErrCodeInvalidReorder:
		return http.StatusBadRequest
	case model.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case model.ErrCodeAIUnavailable, model.ErrCodeAIInvalidResponse:
		return http.StatusBadGateway
	case model.ErrCodeExportTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON はリクエストボディをデコードする。失敗した場合はINVALID_REQUESTを書き込みfalseを返す。
// allowEmptyがtrueの場合、空のボディはゼロ値として扱う。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
	return false
}

// requireUserID はコンテキストからユーザーIDを取り出す。ない場合は401を書き込みfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}

// urlParam はchiのURLパラメータを返す。
func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// requireUUIDParam はURLパラメータがUUIDでなければnotFoundのエラーで応答する。
// 形式の誤ったIDはDBに渡さず、存在しないIDと同じ扱いにする。
func requireUUIDParam(key string, notFound func() *model.APIError) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := uuid.Parse(chi.URLParam(r, key)); err != nil {
				writeAPIErrorResponse(w, http.StatusNotFound, notFound())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
