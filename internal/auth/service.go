package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pitchdeck/internal/model"
	"github.com/hitoshi/pitchdeck/internal/repository"
)

// Service は検証済みPrincipalとサービス内ユーザーの対応付けを行う。
type Service struct {
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
) *Service {
	return &Service{
		userRepo:  userRepo,
		identRepo: identRepo,
		now:       time.Now,
	}
}

// ResolveUserID はPrincipalに紐づくユーザーIDを返す。
// 未同期（identityなし）の場合はUSER_NOT_SYNCEDエラーを返す。
func (s *Service) ResolveUserID(ctx context.Context, p *Principal) (string, error) {
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, p.Provider, p.Subject)
	if err != nil {
		return "", fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil {
		return "", model.NewUserNotSyncedError()
	}
	return identity.UserID, nil
}

// Sync はPrincipalからユーザーを作成または更新する。
// 未登録の場合はusersレコードとidentitiesレコードを同時に作成する。
// 登録済みの場合はトークンが持つemail、nameで更新する。
func (s *Service) Sync(ctx context.Context, p *Principal) (*model.User, error) {
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, p.Provider, p.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	if identity == nil {
		return s.createUser(ctx, p)
	}
	return s.refreshUser(ctx, p, identity)
}

// refreshUser は登録済みユーザーのemail、nameをトークンの値で更新する。
func (s *Service) refreshUser(ctx context.Context, p *Principal, identity *model.Identity) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	changed := false
	if p.Email != "" && p.Email != user.Email {
		user.Email = p.Email
		changed = true
	}
	if p.Name != "" && p.Name != user.Name {
		user.Name = p.Name
		changed = true
	}
	if !changed {
		return user, nil
	}

	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if p.Email != "" && p.Email != identity.Email {
		if err := s.identRepo.UpdateEmail(ctx, identity.ID, p.Email); err != nil {
			return nil, fmt.Errorf("failed to update identity email: %w", err)
		}
	}

	slog.Info("user synced",
		slog.String("user_id", user.ID),
		slog.String("provider", p.Provider),
	)
	return user, nil
}

func (s *Service) createUser(ctx context.Context, p *Principal) (*model.User, error) {
	now := s.now()
	userID := uuid.New().String()

	user := &model.User{
		ID:        userID,
		Email:     p.Email,
		Name:      displayName(p),
		CreatedAt: now,
		UpdatedAt: now,
	}
	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         userID,
		Provider:       p.Provider,
		ProviderUserID: p.Subject,
		Email:          p.Email,
		CreatedAt:      now,
	}

	err := s.userRepo.CreateWithIdentity(ctx, user, identity)
	if errors.Is(err, repository.ErrIdentityExists) {
		// 同じユーザーの並行した初回同期が先に作成した
		existing, findErr := s.identRepo.FindByProviderAndProviderUserID(ctx, p.Provider, p.Subject)
		if findErr != nil {
			return nil, fmt.Errorf("failed to find identity: %w", findErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("identity conflict without a stored identity: %w", err)
		}
		return s.refreshUser(ctx, p, existing)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", userID),
		slog.String("provider", p.Provider),
	)
	return user, nil
}

// displayName はトークンのname、なければemailの@より前を返す。
func displayName(p *Principal) string {
	if p.Name != "" {
		return p.Name
	}
	local, _, _ := strings.Cut(p.Email, "@")
	return local
}
