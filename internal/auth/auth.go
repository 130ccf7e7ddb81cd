package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kubev2v/fold-planner/internal/config"
	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticator(next http.Handler) http.Handler
}

const (
	NoneAuthentication  string = "none"
	LocalAuthentication string = "local"
	JWKAuthentication   string = "jwk"
)

func NewAuthenticator(authConfig config.Auth) (Authenticator, error) {
	zap.S().Named("auth").Infof("authentication: '%s'", authConfig.AuthenticationType)

	switch authConfig.AuthenticationType {
	case LocalAuthentication:
		return NewLocalAuthenticator(authConfig.Secret)
	case JWKAuthentication:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return NewJWKAuthenticator(ctx, authConfig.JwkCertURL)
	case NoneAuthentication, "":
		return NewNoneAuthenticator()
	default:
		return nil, fmt.Errorf("unknown authentication type %q", authConfig.AuthenticationType)
	}
}
