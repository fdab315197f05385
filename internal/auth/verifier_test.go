package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"github.com/hitoshi/pitchdeck/internal/model"
)

const testProjectID = "pitchdeck-test"

// certServer はテスト用の証明書エンドポイントを立てる。
type certServer struct {
	key  *rsa.PrivateKey
	kid  string
	hits atomic.Int32
	srv  *httptest.Server
}

func newCertServer(t *testing.T) *certServer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	cs := &certServer{key: key, kid: "kid-1"}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cs.hits.Add(1)
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		json.NewEncoder(w).Encode(map[string]string{cs.kid: string(certPEM)})
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *certServer) sign(t *testing.T, claims jwt.Claims, kid string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(cs.key)
	require.NoError(t, err)
	return signed
}

func validFirebaseClaims() *firebaseClaims {
	now := time.Now()
	return &firebaseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    firebaseIssuerPrefix + testProjectID,
			Audience:  jwt.ClaimStrings{testProjectID},
			Subject:   "uid-1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email:    "founder@acme.io",
		Name:     "Founder",
		AuthTime: now.Add(-time.Minute).Unix(),
	}
}

func TestFirebaseVerifier_ValidToken(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(FirebaseConfig{ProjectID: testProjectID, CertsURL: cs.srv.URL}, cs.srv.Client())

	p, err := v.Verify(context.Background(), cs.sign(t, validFirebaseClaims(), cs.kid))
	require.NoError(t, err)
	assert.Equal(t, model.ProviderFirebase, p.Provider)
	assert.Equal(t, "uid-1", p.Subject)
	assert.Equal(t, "founder@acme.io", p.Email)
	assert.Equal(t, "Founder", p.Name)
}

func TestFirebaseVerifier_CachesCerts(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(FirebaseConfig{ProjectID: testProjectID, CertsURL: cs.srv.URL}, cs.srv.Client())

	token := cs.sign(t, validFirebaseClaims(), cs.kid)
	for i := 0; i < 3; i++ {
		_, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), cs.hits.Load())
}

func TestFirebaseVerifier_UnknownKidDoesNotRefetchFreshCerts(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(FirebaseConfig{ProjectID: testProjectID, CertsURL: cs.srv.URL}, cs.srv.Client())
	base := time.Now()
	v.now = func() time.Time { return base }

	_, err := v.Verify(context.Background(), cs.sign(t, validFirebaseClaims(), cs.kid))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		_, err := v.Verify(context.Background(), cs.sign(t, validFirebaseClaims(), fmt.Sprintf("bogus-%d", i)))
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	assert.Equal(t, int32(1), cs.hits.Load())

	// 間隔が空けば未知のkidで1回だけ再取得する
	v.now = func() time.Time { return base.Add(2 * time.Minute) }
	for i := 0; i < 5; i++ {
		_, err := v.Verify(context.Background(), cs.sign(t, validFirebaseClaims(), "rotated-in"))
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	assert.Equal(t, int32(2), cs.hits.Load())
}

func TestFirebaseVerifier_RefreshSurvivesCallerCancel(t *testing.T) {
	cs := newCertServer(t)
	certsHandler := cs.srv.Config.Handler

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var hits atomic.Int32
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		certsHandler.ServeHTTP(w, r)
	}))
	t.Cleanup(slow.Close)
	releaseOnce := func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}
	t.Cleanup(releaseOnce)

	v := NewFirebaseVerifier(FirebaseConfig{ProjectID: testProjectID, CertsURL: slow.URL}, slow.Client())
	token := cs.sign(t, validFirebaseClaims(), cs.kid)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := v.Verify(ctx, token)
		firstErr <- err
	}()
	<-started

	secondErr := make(chan error, 1)
	go func() {
		_, err := v.Verify(context.Background(), token)
		secondErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, ErrInvalidToken)

	releaseOnce()
	assert.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFirebaseVerifier_RejectsInvalidTokens(t *testing.T) {
	cs := newCertServer(t)

	tests := []struct {
		name   string
		mutate func(c *firebaseClaims)
		kid    string
	}{
		{
			name:   "wrong audience",
			mutate: func(c *firebaseClaims) { c.Audience = jwt.ClaimStrings{"other-project"} },
		},
		{
			name:   "wrong issuer",
			mutate: func(c *firebaseClaims) { c.Issuer = "https://securetoken.google.com/other-project" },
		},
		{
			name:   "expired",
			mutate: func(c *firebaseClaims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) },
		},
		{
			name:   "issued in the future",
			mutate: func(c *firebaseClaims) { c.IssuedAt = jwt.NewNumericDate(time.Now().Add(time.Hour)) },
		},
		{
			name:   "empty subject",
			mutate: func(c *firebaseClaims) { c.Subject = "" },
		},
		{
			name:   "auth_time in the future",
			mutate: func(c *firebaseClaims) { c.AuthTime = time.Now().Add(time.Hour).Unix() },
		},
		{
			name:   "unknown kid",
			mutate: func(_ *firebaseClaims) {},
			kid:    "rotated-away",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFirebaseVerifier(FirebaseConfig{ProjectID: testProjectID, CertsURL: cs.srv.URL}, cs.srv.Client())
			claims := validFirebaseClaims()
			tt.mutate(claims)
			kid := tt.kid
			if kid == "" {
				kid = cs.kid
			}

			_, err := v.Verify(context.Background(), cs.sign(t, claims, kid))
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestFirebaseVerifier_RejectsHMACToken(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(FirebaseConfig{ProjectID: testProjectID, CertsURL: cs.srv.URL}, cs.srv.Client())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validFirebaseClaims())
	token.Header["kid"] = cs.kid
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFirebaseVerifier_CertsEndpointDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cs := newCertServer(t)
	v := NewFirebaseVerifier(FirebaseConfig{ProjectID: testProjectID, CertsURL: srv.URL}, srv.Client())

	_, err := v.Verify(context.Background(), cs.sign(t, validFirebaseClaims(), cs.kid))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCacheTTL(t *testing.T) {
	assert.Equal(t, 2*time.Hour, cacheTTL("public, max-age=7200, must-revalidate"))
	assert.Equal(t, defaultCertsTTL, cacheTTL("no-cache"))
	assert.Equal(t, defaultCertsTTL, cacheTTL(""))
}

func TestGoogleVerifier_Verify(t *testing.T) {
	v := NewGoogleVerifier("client-123")
	v.validate = func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
		if audience != "client-123" {
			return nil, errors.New("audience mismatch")
		}
		if token != "good" {
			return nil, errors.New("bad signature")
		}
		return &idtoken.Payload{
			Subject: "g-1",
			Claims:  map[string]interface{}{"email": "g@example.com", "name": "Gee"},
		}, nil
	}

	p, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, model.ProviderGoogle, p.Provider)
	assert.Equal(t, "g-1", p.Subject)
	assert.Equal(t, "g@example.com", p.Email)
	assert.Equal(t, "Gee", p.Name)

	_, err = v.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type stubIssuerVerifier struct {
	issuers []string
	calls   int
}

func (s *stubIssuerVerifier) Issuers() []string { return s.issuers }

func (s *stubIssuerVerifier) Verify(_ context.Context, _ string) (*Principal, error) {
	s.calls++
	return &Principal{Subject: s.issuers[0]}, nil
}

func unsignedToken(t *testing.T, iss string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: iss})
	signed, err := token.SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return signed
}

func TestMultiVerifier_RoutesByIssuer(t *testing.T) {
	firebase := &stubIssuerVerifier{issuers: []string{"https://securetoken.google.com/p"}}
	google := &stubIssuerVerifier{issuers: []string{"https://accounts.google.com", "accounts.google.com"}}
	m := NewMultiVerifier(firebase, google)

	p, err := m.Verify(context.Background(), unsignedToken(t, "accounts.google.com"))
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.google.com", p.Subject)
	assert.Equal(t, 1, google.calls)
	assert.Equal(t, 0, firebase.calls)

	_, err = m.Verify(context.Background(), unsignedToken(t, "https://securetoken.google.com/p"))
	require.NoError(t, err)
	assert.Equal(t, 1, firebase.calls)
}

func TestMultiVerifier_RejectsUnknownIssuerAndGarbage(t *testing.T) {
	m := NewMultiVerifier(&stubIssuerVerifier{issuers: []string{"https://accounts.google.com"}})

	_, err := m.Verify(context.Background(), unsignedToken(t, "https://evil.example.com"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify(context.Background(), unsignedToken(t, ""))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
