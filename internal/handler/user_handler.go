package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/pitchdeck/internal/auth"
	"github.com/hitoshi/pitchdeck/internal/middleware"
	"github.com/hitoshi/pitchdeck/internal/model"
)

// UserSyncer はトークンの利用者情報からユーザーを作成・更新する。
// auth.Serviceがそのまま満たす。
type UserSyncer interface {
	Sync(ctx context.Context, p *auth.Principal) (*model.User, error)
}

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// UpdateProfile は表示名を更新する。
	UpdateProfile(ctx context.Context, userID, name string) (*model.User, error)
	// Withdraw はユーザーの退会処理を実行する。
	// user、identities、decks、exportsとアーカイブ済みオブジェクトを削除する。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	syncer  UserSyncer
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(syncer UserSyncer, service UserServiceInterface) *UserHandler {
	return &UserHandler{
		syncer:  syncer,
		service: service,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	Name string `json:"name"`
}

// Profile はユーザーを同期してから返す。
// GET /users/profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.sync(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "", user)
}

// Sync はトークンの利用者情報でユーザーを作成または更新する。ログイン直後に呼ばれる。
// POST /users/sync
func (h *UserHandler) Sync(w http.ResponseWriter, r *http.Request) {
	user, ok := h.sync(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "User synced successfully", user)
}

func (h *UserHandler) sync(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return nil, false
	}

	user, err := h.syncer.Sync(r.Context(), principal)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return user, true
}

// UpdateProfile は表示名を更新する。
// PUT /users/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Profile updated successfully", user)
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /users/account
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
