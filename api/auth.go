package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"kanban-api/domain"
	"kanban-api/kanban"
)

const defaultJWKSCacheTTL = 15 * time.Minute

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

const bearerPrefix = "Bearer "

// AuthConfig configures token verification. A non-empty TestSecret switches
// to HS256 shared-secret mode; otherwise tokens are RS256 verified by JWKS.
type AuthConfig struct {
	Audience       string
	Issuer         string
	TestSecret     []byte
	ClaimNamespace string
	JWKSCacheTTL   time.Duration
}

// Auth validates incoming JWT tokens and resolves the acting user.
type Auth struct {
	JWKS *keyfunc.JWKS
	cfg  AuthConfig

	parser   *jwt.Parser
	keyCache sync.Map
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates a new Auth instance.
func NewAuth(jwks *keyfunc.JWKS, cfg AuthConfig) *Auth {
	if cfg.JWKSCacheTTL == 0 {
		cfg.JWKSCacheTTL = defaultJWKSCacheTTL
	}
	a := &Auth{JWKS: jwks, cfg: cfg}
	if a.testMode() {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	} else {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	}
	return a
}

func (a *Auth) testMode() bool { return len(a.cfg.TestSecret) > 0 }

// ActorFromAuthHeader verifies the bearer token of an Authorization header.
// Every failure wraps domain.ErrUnauthenticated.
func (a *Auth) ActorFromAuthHeader(h string) (kanban.Actor, error) {
	token, err := bearerToken(h)
	if err != nil {
		return kanban.Actor{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	actor, err := a.ActorFromBearer(token)
	if err != nil {
		return kanban.Actor{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	return actor, nil
}

// ActorFromBearer verifies a raw bearer token.
func (a *Auth) ActorFromBearer(token string) (kanban.Actor, error) {
	parsedToken, err := a.parser.Parse(token, func(t *jwt.Token) (any, error) {
		if a.testMode() {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.cfg.TestSecret, nil
		}
		return a.keyForToken(t)
	})
	if err != nil {
		return kanban.Actor{}, err
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return kanban.Actor{}, errors.New("invalid claims")
	}

	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return kanban.Actor{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return kanban.Actor{}, errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return kanban.Actor{}, errors.New("token used before issued")
	}
	if a.cfg.Audience != "" && !claims.VerifyAudience(a.cfg.Audience, false) {
		return kanban.Actor{}, errors.New("invalid audience")
	}
	if a.cfg.Issuer != "" && !claims.VerifyIssuer(a.cfg.Issuer, false) {
		return kanban.Actor{}, errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return kanban.Actor{}, errors.New("missing sub")
	}
	role, _ := a.claim(claims, "role").(string)
	accounts, err := accountIDs(a.claim(claims, "account_ids"))
	if err != nil {
		return kanban.Actor{}, err
	}
	return kanban.Actor{UserID: sub, Role: kanban.Role(role), AccountIDs: accounts}, nil
}

// claim prefers the namespaced custom claim when a namespace is configured.
func (a *Auth) claim(claims jwt.MapClaims, name string) any {
	if a.cfg.ClaimNamespace != "" {
		if v, ok := claims[a.cfg.ClaimNamespace+name]; ok {
			return v
		}
	}
	return claims[name]
}

func accountIDs(v any) ([]int64, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, errors.New("invalid account_ids claim")
	}
	out := make([]int64, 0, len(list))
	for _, item := range list {
		switch n := item.(type) {
		case float64:
			if n != float64(int64(n)) {
				return nil, errors.New("invalid account_ids claim")
			}
			out = append(out, int64(n))
		case string:
			id, ok := domain.ParseID([]byte(n))
			if !ok {
				return nil, errors.New("invalid account_ids claim")
			}
			out = append(out, id)
		default:
			return nil, errors.New("invalid account_ids claim")
		}
	}
	return out, nil
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.cfg.JWKSCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.cfg.JWKSCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.cfg.JWKSCacheTTL)})
	}
	return key, nil
}

func bearerToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(raw, bearerPrefix)
	if !ok || token == "" {
		return "", errBadAuthorization
	}
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
