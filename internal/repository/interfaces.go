// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/pitchdeck/internal/model"
)

// ErrNotFound は更新・削除対象の行が存在しない（または所有者が一致しない）ことを示す。
var ErrNotFound = errors.New("record not found")

// ErrIdentityExists は同じprovider、provider_user_idのidentityが既に登録されていることを示す。
var ErrIdentityExists = errors.New("identity already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// Update はユーザーのemail、nameを更新する。対象がない場合はErrNotFoundを返す。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、decks、exportsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// UpdateEmail はidentityに記録したIdP側のemailを更新する。
	UpdateEmail(ctx context.Context, id, email string) error
}

// DeckRepository はデッキの永続化インターフェース。
// すべての操作はuserIDで所有者を限定する。
type DeckRepository interface {
	// ListByUser はユーザーのデッキをupdated_at降順で返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Deck, error)

	// FindByIDAndUser はIDと所有者でデッキを取得する。見つからない場合はnilを返す。
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.Deck, error)

	// Create はデッキを作成する。
	Create(ctx context.Context, deck *model.Deck) error

	// Update はデッキ全体（スライド含む）を上書きする。対象がない場合はErrNotFoundを返す。
	Update(ctx context.Context, deck *model.Deck) error

	// DeleteByIDAndUser はデッキを削除する。対象がない場合はErrNotFoundを返す。
	DeleteByIDAndUser(ctx context.Context, id, userID string) error
}

// ExportRepository はアーカイブ済みエクスポートの記録の永続化インターフェース。
type ExportRepository interface {
	// Create はエクスポート記録を作成する。
	Create(ctx context.Context, record *model.ExportRecord) error

	// ListByUser はユーザーのエクスポート記録を新しい順に最大limit件返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.ExportRecord, error)

	// FindByIDAndUser はIDと所有者で記録を取得する。見つからない場合はnilを返す。
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.ExportRecord, error)

	// ListObjectKeysByUser はユーザーの全記録のオブジェクトキーを返す。退会時に使用する。
	ListObjectKeysByUser(ctx context.Context, userID string) ([]string, error)

	// ListCreatedBefore はcutoffより古い記録を古い順に先頭offset件を飛ばして最大limit件返す。
	ListCreatedBefore(ctx context.Context, cutoff time.Time, offset, limit int) ([]*model.ExportRecord, error)

	// DeleteByID は記録を削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
}
