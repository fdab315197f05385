package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/pitchdeck/internal/model"
)

const (
	defaultFirebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	firebaseIssuerPrefix    = "https://securetoken.google.com/"

	// Cache-Controlにmax-ageがない場合の証明書キャッシュ期間
	defaultCertsTTL = time.Hour

	// キャッシュが有効な間に未知のkidで再取得を許す最小間隔
	minForcedRefreshInterval = time.Minute

	certsFetchTimeout = 10 * time.Second

	maxSubjectLength = 128
	maxCertsBodySize = 1 << 20
)

var maxAgePattern = regexp.MustCompile(`max-age=(\d+)`)

// FirebaseConfig はFirebaseVerifierの設定。
type FirebaseConfig struct {
	ProjectID string

	// テスト用にオーバーライド可能なURL
	CertsURL string
}

// firebaseClaims はFirebase IDトークンのクレーム。
type firebaseClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Name     string `json:"name"`
	AuthTime int64  `json:"auth_time"`
}

// FirebaseVerifier はFirebase AuthenticationのIDトークンを検証する。
// 署名鍵はsecuretokenのx509証明書エンドポイントから取得し、max-ageの間キャッシュする。
type FirebaseVerifier struct {
	config     FirebaseConfig
	httpClient *http.Client
	now        func() time.Time

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	expiresAt   time.Time
	lastFetched time.Time

	group singleflight.Group
}

// NewFirebaseVerifier はFirebaseVerifierを生成する。
func NewFirebaseVerifier(config FirebaseConfig, httpClient *http.Client) *FirebaseVerifier {
	if config.CertsURL == "" {
		config.CertsURL = defaultFirebaseCertsURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &FirebaseVerifier{
		config:     config,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Issuers はFirebaseプロジェクトのissuerを返す。
func (v *FirebaseVerifier) Issuers() []string {
	return []string{firebaseIssuerPrefix + v.config.ProjectID}
}

// Verify はFirebase IDトークンを検証する。
func (v *FirebaseVerifier) Verify(ctx context.Context, rawToken string) (*Principal, error) {
	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims,
		func(token *jwt.Token) (any, error) {
			kid, _ := token.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid header")
			}
			return v.publicKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(firebaseIssuerPrefix+v.config.ProjectID),
		jwt.WithAudience(v.config.ProjectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || len(claims.Subject) > maxSubjectLength {
		return nil, fmt.Errorf("%w: invalid subject", ErrInvalidToken)
	}
	if claims.AuthTime > 0 && time.Unix(claims.AuthTime, 0).After(v.now()) {
		return nil, fmt.Errorf("%w: auth_time is in the future", ErrInvalidToken)
	}

	return &Principal{
		Provider: model.ProviderFirebase,
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
	}, nil
}

// publicKey はkidに対応する公開鍵を返す。キャッシュが期限切れなら再取得する。
// キャッシュが有効なまま未知のkidが来た場合の再取得はminForcedRefreshIntervalに1回まで。
func (v *FirebaseVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	now := v.now()
	fresh := now.Before(v.expiresAt)
	recentlyFetched := now.Sub(v.lastFetched) < minForcedRefreshInterval
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}
	if fresh && recentlyFetched {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}

	// 同時に期限切れを検知したリクエストの取得は1回にまとめる。
	// 取得は呼び出し元のキャンセルに引きずられない。
	ch := v.group.DoChan("certs", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), certsFetchTimeout)
		defer cancel()
		return nil, v.refreshKeys(fetchCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return key, nil
}

// refreshKeys は証明書エンドポイントから公開鍵を取得しキャッシュを置き換える。
func (v *FirebaseVerifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.CertsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create certs request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("certs endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCertsBodySize))
	if err != nil {
		return fmt.Errorf("failed to read certs: %w", err)
	}

	var certs map[string]string
	if err := json.Unmarshal(body, &certs); err != nil {
		return fmt.Errorf("failed to decode certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemCert := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemCert))
		if err != nil {
			return fmt.Errorf("failed to parse cert %s: %w", kid, err)
		}
		keys[kid] = key
	}

	now := v.now()
	v.mu.Lock()
	v.keys = keys
	v.expiresAt = now.Add(cacheTTL(resp.Header.Get("Cache-Control")))
	v.lastFetched = now
	v.mu.Unlock()

	return nil
}

// cacheTTL はCache-Controlヘッダーのmax-ageを返す。
func cacheTTL(cacheControl string) time.Duration {
	m := maxAgePattern.FindStringSubmatch(cacheControl)
	if m == nil {
		return defaultCertsTTL
	}
	sec, err := strconv.Atoi(m[1])
	if err != nil || sec <= 0 {
		return defaultCertsTTL
	}
	return time.Duration(sec) * time.Second
}

// compile-time interface check
var _ IssuerVerifier = (*FirebaseVerifier)(nil)
