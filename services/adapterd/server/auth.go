package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"
)

// AuthConfig controls bearer-token authentication.
type AuthConfig struct {
	Enabled   bool
	Secret    string
	Issuer    string
	ClockSkew time.Duration
}

// Claims are the adapterd token claims. Subject carries the caller address
// and Scope a space separated scope list.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

type principal struct {
	caller common.Address
	scopes []string
}

type principalKey struct{}

// Authenticator validates HS256 bearer tokens.
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
	logger *slog.Logger
	onDeny func(reason string)
}

func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = time.Minute
	}
	return &Authenticator{cfg: cfg, secret: []byte(strings.TrimSpace(cfg.Secret)), logger: logger}
}

// Enabled reports whether tokens are checked at all.
func (a *Authenticator) Enabled() bool { return a != nil && a.cfg.Enabled }

// Middleware rejects requests without a valid token carrying every scope in
// required. It is a pass-through when authentication is disabled.
func (a *Authenticator) Middleware(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			raw := extractBearer(r.Header.Get("Authorization"))
			if raw == "" {
				a.deny(w, http.StatusUnauthorized, "missing bearer token", "unauthorized")
				return
			}
			claims, err := a.parse(raw)
			if err != nil {
				a.logger.Warn("token rejected", "error", err)
				a.deny(w, http.StatusUnauthorized, "invalid token", "unauthorized")
				return
			}
			if !common.IsHexAddress(claims.Subject) {
				a.deny(w, http.StatusUnauthorized, "token subject is not an address", "unauthorized")
				return
			}
			p := principal{caller: common.HexToAddress(claims.Subject), scopes: strings.Fields(claims.Scope)}
			if !hasScopes(p.scopes, required) {
				a.deny(w, http.StatusForbidden, "insufficient scope", "forbidden")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
		})
	}
}

func (a *Authenticator) deny(w http.ResponseWriter, status int, msg, code string) {
	if a.onDeny != nil {
		a.onDeny(code)
	}
	writeError(w, status, msg, code)
}

func (a *Authenticator) parse(raw string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

// IssueToken mints a token for caller. adapterctl uses it to talk to a
// daemon that shares the secret.
func IssueToken(secret, issuer string, caller common.Address, scopes []string, ttl time.Duration) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.New("auth secret required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := Claims{
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   caller.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

func hasScopes(scopes, required []string) bool {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	for _, req := range required {
		if _, ok := set[req]; !ok {
			return false
		}
	}
	return true
}

func extractBearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
