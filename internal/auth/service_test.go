package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/pitchdeck/internal/model"
	"github.com/hitoshi/pitchdeck/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
	updateFn             func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error {
	return nil
}

type mockIdentityRepo struct {
	findByProviderFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
	updateEmailFn    func(ctx context.Context, id, email string) error
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

func (m *mockIdentityRepo) UpdateEmail(ctx context.Context, id, email string) error {
	if m.updateEmailFn != nil {
		return m.updateEmailFn(ctx, id, email)
	}
	return nil
}

// --- テスト ---

func TestSync_NewUser_CreatesUserAndIdentity(t *testing.T) {
	var createdUser *model.User
	var createdIdentity *model.Identity

	userRepo := &mockUserRepo{
		createWithIdentityFn: func(_ context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			createdIdentity = identity
			return nil
		},
	}
	svc := NewService(userRepo, &mockIdentityRepo{})

	user, err := svc.Sync(context.Background(), &Principal{
		Provider: model.ProviderFirebase,
		Subject:  "uid-1",
		Email:    "founder@acme.io",
		Name:     "Founder",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if createdUser == nil || createdIdentity == nil {
		t.Fatal("expected user and identity to be created")
	}
	if user.Name != "Founder" {
		t.Errorf("expected name 'Founder', got %q", user.Name)
	}
	if createdIdentity.UserID != createdUser.ID {
		t.Errorf("identity user_id %q does not match user id %q", createdIdentity.UserID, createdUser.ID)
	}
	if createdIdentity.ProviderUserID != "uid-1" || createdIdentity.Provider != model.ProviderFirebase {
		t.Errorf("unexpected identity: %+v", createdIdentity)
	}
}

func TestSync_NewUserWithoutName_UsesEmailLocalPart(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockIdentityRepo{})

	user, err := svc.Sync(context.Background(), &Principal{
		Provider: model.ProviderGoogle,
		Subject:  "g-1",
		Email:    "jane.doe@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Name != "jane.doe" {
		t.Errorf("expected name 'jane.doe', got %q", user.Name)
	}
}

func TestSync_ExistingUser_RefreshesEmailAndName(t *testing.T) {
	var updated *model.User
	var identityEmail string

	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "old@acme.io", Name: "Old"}, nil
		},
		updateFn: func(_ context.Context, user *model.User) error {
			updated = user
			return nil
		},
	}
	identRepo := &mockIdentityRepo{
		findByProviderFn: func(_ context.Context, _, _ string) (*model.Identity, error) {
			return &model.Identity{ID: "ident-1", UserID: "user-1", Email: "old@acme.io"}, nil
		},
		updateEmailFn: func(_ context.Context, _ string, email string) error {
			identityEmail = email
			return nil
		},
	}
	svc := NewService(userRepo, identRepo)

	user, err := svc.Sync(context.Background(), &Principal{
		Provider: model.ProviderFirebase, Subject: "uid-1", Email: "new@acme.io", Name: "New",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated == nil {
		t.Fatal("expected user to be updated")
	}
	if user.Email != "new@acme.io" || user.Name != "New" {
		t.Errorf("unexpected user: %+v", user)
	}
	if identityEmail != "new@acme.io" {
		t.Errorf("expected identity email to be refreshed, got %q", identityEmail)
	}
}

func TestSync_ExistingUser_NoChangesSkipsUpdate(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "a@acme.io", Name: "A"}, nil
		},
		updateFn: func(_ context.Context, _ *model.User) error {
			t.Error("Update should not be called")
			return nil
		},
	}
	identRepo := &mockIdentityRepo{
		findByProviderFn: func(_ context.Context, _, _ string) (*model.Identity, error) {
			return &model.Identity{ID: "ident-1", UserID: "user-1", Email: "a@acme.io"}, nil
		},
	}
	svc := NewService(userRepo, identRepo)

	if _, err := svc.Sync(context.Background(), &Principal{Subject: "uid-1", Email: "a@acme.io"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSync_ConcurrentFirstLogin_ReturnsExistingUser(t *testing.T) {
	lookups := 0
	identRepo := &mockIdentityRepo{
		findByProviderFn: func(_ context.Context, _, _ string) (*model.Identity, error) {
			lookups++
			if lookups == 1 {
				return nil, nil
			}
			return &model.Identity{ID: "ident-1", UserID: "user-first", Email: "founder@acme.io"}, nil
		},
	}
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(_ context.Context, _ *model.User, _ *model.Identity) error {
			return repository.ErrIdentityExists
		},
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			if id != "user-first" {
				t.Errorf("FindByID(%q), want user-first", id)
			}
			return &model.User{ID: id, Email: "founder@acme.io", Name: "Founder"}, nil
		},
		updateFn: func(_ context.Context, _ *model.User) error {
			t.Error("unchanged user should not be updated")
			return nil
		},
	}
	svc := NewService(userRepo, identRepo)

	user, err := svc.Sync(context.Background(), &Principal{
		Provider: model.ProviderFirebase,
		Subject:  "uid-1",
		Email:    "founder@acme.io",
		Name:     "Founder",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-first" {
		t.Errorf("user.ID = %q, want user-first", user.ID)
	}
	if lookups != 2 {
		t.Errorf("identity lookups = %d, want 2", lookups)
	}
}

func TestSync_CreateFailure(t *testing.T) {
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(_ context.Context, _ *model.User, _ *model.Identity) error {
			return errors.New("db down")
		},
	}
	svc := NewService(userRepo, &mockIdentityRepo{})

	if _, err := svc.Sync(context.Background(), &Principal{Subject: "uid-1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSync_IdentityLookupError(t *testing.T) {
	identRepo := &mockIdentityRepo{
		findByProviderFn: func(_ context.Context, _, _ string) (*model.Identity, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewService(&mockUserRepo{}, identRepo)

	if _, err := svc.Sync(context.Background(), &Principal{Subject: "uid-1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveUserID(t *testing.T) {
	identRepo := &mockIdentityRepo{
		findByProviderFn: func(_ context.Context, provider, sub string) (*model.Identity, error) {
			if provider == model.ProviderFirebase && sub == "uid-1" {
				return &model.Identity{UserID: "user-1"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(&mockUserRepo{}, identRepo)

	userID, err := svc.ResolveUserID(context.Background(), &Principal{Provider: model.ProviderFirebase, Subject: "uid-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("expected user-1, got %q", userID)
	}

	_, err = svc.ResolveUserID(context.Background(), &Principal{Provider: model.ProviderFirebase, Subject: "unknown"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotSynced {
		t.Errorf("expected USER_NOT_SYNCED, got %v", err)
	}
}
