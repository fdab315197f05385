// Package auth はIDトークンの検証と、IdPの利用者からユーザーへの解決を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はIDトークンの検証に失敗したことを示す。
// 個々の原因はラップして保持する。
var ErrInvalidToken = errors.New("invalid id token")

// Principal は検証済みIDトークンから得た利用者情報。
type Principal struct {
	Provider string // model.ProviderFirebase / model.ProviderGoogle
	Subject  string // IdPが発行したsubject
	Email    string
	Name     string
}

// TokenVerifier はIDトークンを検証するインターフェース。
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Principal, error)
}

// IssuerVerifier は特定のissuerが発行したトークンだけを扱う検証器。
type IssuerVerifier interface {
	TokenVerifier
	// Issuers はこの検証器が受け付けるissの一覧を返す。
	Issuers() []string
}

// MultiVerifier は未検証のissクレームを見て担当の検証器に振り分ける。
// 署名の検証は振り分け先が行う。
type MultiVerifier struct {
	byIssuer map[string]TokenVerifier
	parser   *jwt.Parser
}

// NewMultiVerifier はMultiVerifierを生成する。
func NewMultiVerifier(verifiers ...IssuerVerifier) *MultiVerifier {
	m := &MultiVerifier{
		byIssuer: make(map[string]TokenVerifier),
		parser:   jwt.NewParser(),
	}
	for _, v := range verifiers {
		for _, iss := range v.Issuers() {
			m.byIssuer[iss] = v
		}
	}
	return m
}

// Verify はトークンを担当の検証器で検証する。未知のissuerは拒否する。
func (m *MultiVerifier) Verify(ctx context.Context, rawToken string) (*Principal, error) {
	claims := jwt.MapClaims{}
	if _, _, err := m.parser.ParseUnverified(rawToken, claims); err != nil {
		return nil, fmt.Errorf("%w: malformed token: %v", ErrInvalidToken, err)
	}

	iss, err := claims.GetIssuer()
	if err != nil || iss == "" {
		return nil, fmt.Errorf("%w: missing issuer", ErrInvalidToken)
	}

	v, ok := m.byIssuer[iss]
	if !ok {
		return nil, fmt.Errorf("%w: unknown issuer %q", ErrInvalidToken, iss)
	}
	return v.Verify(ctx, rawToken)
}

// compile-time interface check
var _ TokenVerifier = (*MultiVerifier)(nil)
