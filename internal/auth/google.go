package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/hitoshi/pitchdeck/internal/model"
)

// validateFunc はidtoken.Validateのシグネチャ。テストで差し替える。
type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleVerifier はGoogle Sign-InのIDトークンを検証する。
type GoogleVerifier struct {
	clientID string
	validate validateFunc
}

// NewGoogleVerifier はGoogleVerifierを生成する。
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		validate: idtoken.Validate,
	}
}

// Issuers はGoogleのissuerを返す。
func (v *GoogleVerifier) Issuers() []string {
	return []string{"https://accounts.google.com", "accounts.google.com"}
}

// Verify はGoogle IDトークンを検証する。
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*Principal, error) {
	payload, err := v.validate(ctx, rawToken, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Principal{
		Provider: model.ProviderGoogle,
		Subject:  payload.Subject,
		Email:    stringClaim(payload.Claims, "email"),
		Name:     stringClaim(payload.Claims, "name"),
	}, nil
}

func stringClaim(claims map[string]any, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

// compile-time interface check
var _ IssuerVerifier = (*GoogleVerifier)(nil)
