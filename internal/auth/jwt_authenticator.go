package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const defaultIssuer = "fold-planner"

// JWTAuthenticator guards the admin routes with a bearer token. The key function decides
// whether tokens are checked against a shared secret or a remote JWK set.
type JWTAuthenticator struct {
	keyFn   func(t *jwt.Token) (any, error)
	methods []string
	kind    string
}

func NewJWTAuthenticatorWithKeyFn(keyFn func(t *jwt.Token) (any, error), methods ...string) (*JWTAuthenticator, error) {
	if len(methods) == 0 {
		methods = []string{jwt.SigningMethodRS256.Name}
	}
	return &JWTAuthenticator{keyFn: keyFn, methods: methods}, nil
}

// NewLocalAuthenticator accepts HS256 tokens signed with secret.
func NewLocalAuthenticator(secret string) (*JWTAuthenticator, error) {
	if secret == "" {
		return nil, errors.New("local authentication requires a secret")
	}
	key := []byte(secret)
	a, err := NewJWTAuthenticatorWithKeyFn(func(_ *jwt.Token) (any, error) {
		return key, nil
	}, jwt.SigningMethodHS256.Name)
	if err != nil {
		return nil, err
	}
	a.kind = LocalAuthentication
	return a, nil
}

// NewJWKAuthenticator accepts RS256 tokens whose keys are published at jwkCertUrl.
func NewJWKAuthenticator(ctx context.Context, jwkCertUrl string) (*JWTAuthenticator, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwkCertUrl})
	if err != nil {
		return nil, fmt.Errorf("failed to get public keys: %w", err)
	}

	a, err := NewJWTAuthenticatorWithKeyFn(k.Keyfunc)
	if err != nil {
		return nil, err
	}
	a.kind = JWKAuthentication
	return a, nil
}

// GenerateLocalToken signs a token accepted by NewLocalAuthenticator.
func GenerateLocalToken(secret, username string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("secret is empty")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    defaultIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString([]byte(secret))
}

func (a *JWTAuthenticator) Authenticate(token string) (User, error) {
	parser := jwt.NewParser(jwt.WithValidMethods(a.methods), jwt.WithIssuedAt(), jwt.WithExpirationRequired())
	t, err := parser.Parse(token, a.keyFn)
	if err != nil {
		zap.S().Named("auth").Errorw("failed to parse or the token is invalid", "error", err)
		return User{}, fmt.Errorf("failed to authenticate token: %w", err)
	}

	if !t.Valid {
		return User{}, fmt.Errorf("failed to parse or validate token")
	}

	return a.parseToken(t)
}

func (a *JWTAuthenticator) parseToken(userToken *jwt.Token) (User, error) {
	claims, ok := userToken.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, errors.New("failed to parse jwt token claims")
	}

	username, _ := claims["preferred_username"].(string)
	if username == "" {
		username, _ = claims["sub"].(string)
	}
	if username == "" {
		return User{}, errors.New("token has no subject")
	}

	user := User{Username: username, Method: a.kind}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		user.ExpiresAt = &exp.Time
	}
	return user, nil
}

func (a *JWTAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || accessToken == "" {
			http.Error(w, "No token provided", http.StatusUnauthorized)
			return
		}

		user, err := a.Authenticate(accessToken)
		if err != nil {
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		ctx := NewUserContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
