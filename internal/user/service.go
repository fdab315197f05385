// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/pitchdeck/internal/model"
	"github.com/hitoshi/pitchdeck/internal/repository"
)

// maxNameLength は表示名の最大文字数。
const maxNameLength = 100

// ExportKeyLister はアーカイブ済みエクスポートのオブジェクトキー一覧インターフェース。
type ExportKeyLister interface {
	ListObjectKeysByUser(ctx context.Context, userID string) ([]string, error)
}

// ObjectRemover はオブジェクトストレージからの削除インターフェース。
type ObjectRemover interface {
	Delete(ctx context.Context, key string) error
}

// Service はユーザー管理のサービス層。
// プロフィールの参照・更新と退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo   repository.UserRepository
	exportKeys ExportKeyLister
	objects    ObjectRemover
	now        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// exportKeys、objectsはアーカイブ無効時にnilを指定できる。
func NewService(
	userRepo repository.UserRepository,
	exportKeys ExportKeyLister,
	objects ObjectRemover,
) *Service {
	return &Service{
		userRepo:   userRepo,
		exportKeys: exportKeys,
		objects:    objects,
		now:        time.Now,
	}
}

// Profile はユーザーを取得する。
func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は表示名を更新する。
func (s *Service) UpdateProfile(ctx context.Context, userID, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("Name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, model.NewValidationError(fmt.Sprintf("Name must be at most %d characters", maxNameLength))
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: アーカイブ済みオブジェクト → user（+ CASCADE: identities, decks, exports）
// オブジェクトの削除失敗はログに残して処理を続行する。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("withdrawal started",
		slog.String("user_id", userID),
	)

	// 1. アーカイブ済みエクスポートのオブジェクトを削除
	if s.exportKeys != nil && s.objects != nil {
		keys, err := s.exportKeys.ListObjectKeysByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list export objects: %w", err)
		}
		for _, key := range keys {
			if err := s.objects.Delete(ctx, key); err != nil {
				slog.Warn("failed to delete export object",
					slog.String("user_id", userID),
					slog.String("object_key", key),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	// 2. ユーザーを削除（identities, decks, exportsはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("withdrawal completed",
		slog.String("user_id", userID),
	)

	return nil
}
