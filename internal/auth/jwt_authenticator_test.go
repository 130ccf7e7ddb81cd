package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kubev2v/fold-planner/internal/auth"
	"github.com/kubev2v/fold-planner/internal/config"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type handler struct {
	user auth.User
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.user, _ = auth.UserFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func serve(a auth.Authenticator, token string) (int, *handler) {
	h := &handler{}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/jobs", nil)
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	rec := httptest.NewRecorder()
	a.Authenticator(h).ServeHTTP(rec, req)
	return rec.Code, h
}

func rsaToken(claims jwt.MapClaims) (string, func(t *jwt.Token) (any, error)) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	Expect(err).To(BeNil())

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	ss, err := token.SignedString(privateKey)
	Expect(err).To(BeNil())

	return ss, func(t *jwt.Token) (any, error) {
		return privateKey.Public(), nil
	}
}

var _ = Describe("authentication", func() {
	Context("local", func() {
		It("accepts a token signed with the secret", func() {
			a, err := auth.NewLocalAuthenticator("s3cret")
			Expect(err).To(BeNil())

			token, err := auth.GenerateLocalToken("s3cret", "operator", time.Hour)
			Expect(err).To(BeNil())

			user, err := a.Authenticate(token)
			Expect(err).To(BeNil())
			Expect(user.Username).To(Equal("operator"))
			Expect(user.Method).To(Equal(auth.LocalAuthentication))
			Expect(user.ExpiresAt).NotTo(BeNil())
			Expect(*user.ExpiresAt).To(BeTemporally("~", time.Now().Add(time.Hour), 5*time.Second))

			code, h := serve(a, token)
			Expect(code).To(Equal(http.StatusOK))
			Expect(h.user.Username).To(Equal("operator"))
		})

		It("rejects a token signed with another secret", func() {
			a, err := auth.NewLocalAuthenticator("s3cret")
			Expect(err).To(BeNil())

			token, err := auth.GenerateLocalToken("other", "operator", time.Hour)
			Expect(err).To(BeNil())

			code, _ := serve(a, token)
			Expect(code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects an expired token", func() {
			a, err := auth.NewLocalAuthenticator("s3cret")
			Expect(err).To(BeNil())

			token, err := auth.GenerateLocalToken("s3cret", "operator", -time.Minute)
			Expect(err).To(BeNil())

			_, err = a.Authenticate(token)
			Expect(err).NotTo(BeNil())
		})

		It("rejects a request without a token", func() {
			a, err := auth.NewLocalAuthenticator("s3cret")
			Expect(err).To(BeNil())

			code, _ := serve(a, "")
			Expect(code).To(Equal(http.StatusUnauthorized))
		})

		It("requires a secret", func() {
			_, err := auth.NewLocalAuthenticator("")
			Expect(err).NotTo(BeNil())
		})
	})

	Context("jwk", func() {
		It("accepts an RS256 token", func() {
			token, keyFn := rsaToken(jwt.MapClaims{
				"preferred_username": "batman",
				"sub":                "1234",
				"iat":                time.Now().Unix(),
				"exp":                time.Now().Add(time.Hour).Unix(),
			})
			a, err := auth.NewJWTAuthenticatorWithKeyFn(keyFn)
			Expect(err).To(BeNil())

			user, err := a.Authenticate(token)
			Expect(err).To(BeNil())
			Expect(user.Username).To(Equal("batman"))
		})

		It("rejects a token without expiration", func() {
			token, keyFn := rsaToken(jwt.MapClaims{
				"sub": "1234",
				"iat": time.Now().Unix(),
			})
			a, err := auth.NewJWTAuthenticatorWithKeyFn(keyFn)
			Expect(err).To(BeNil())

			_, err = a.Authenticate(token)
			Expect(err).NotTo(BeNil())
		})

		It("rejects an HS256 token", func() {
			_, keyFn := rsaToken(jwt.MapClaims{})
			a, err := auth.NewJWTAuthenticatorWithKeyFn(keyFn)
			Expect(err).To(BeNil())

			token, err := auth.GenerateLocalToken("s3cret", "operator", time.Hour)
			Expect(err).To(BeNil())

			code, _ := serve(a, token)
			Expect(code).To(Equal(http.StatusUnauthorized))
		})
	})

	Context("factory", func() {
		It("lets every request through without authentication", func() {
			cfg, err := config.Load()
			Expect(err).To(BeNil())
			cfg.Service.Auth.AuthenticationType = auth.NoneAuthentication

			a, err := auth.NewAuthenticator(cfg.Service.Auth)
			Expect(err).To(BeNil())

			code, h := serve(a, "")
			Expect(code).To(Equal(http.StatusOK))
			Expect(h.user.Username).To(Equal("admin"))
			Expect(h.user.Method).To(Equal(auth.NoneAuthentication))
		})

		It("builds a local authenticator", func() {
			a, err := auth.NewAuthenticator(config.Auth{AuthenticationType: auth.LocalAuthentication, Secret: "s3cret"})
			Expect(err).To(BeNil())
			Expect(a).To(BeAssignableToTypeOf(&auth.JWTAuthenticator{}))
		})

		It("fails on an unknown type", func() {
			_, err := auth.NewAuthenticator(config.Auth{AuthenticationType: "rhsso"})
			Expect(err).NotTo(BeNil())
		})
	})
})
