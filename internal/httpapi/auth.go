package httpapi

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/slackmgr/todos/internal/config"
	"github.com/slackmgr/todos/task"
)

const callerKey = "callerID"

// IdentityVerifier turns a bearer token into a caller ID.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// JWTVerifier verifies signed tokens and returns their subject as the caller
// ID. Keys come from a shared secret (HS256), a PEM encoded RSA public key
// (RS256) or a JWKS endpoint, where the key is picked by the token's kid.
type JWTVerifier struct {
	methods  []string
	keyFunc  jwt.Keyfunc
	issuer   string
	audience string
}

var _ IdentityVerifier = (*JWTVerifier)(nil)

// jwksMethods are the algorithms accepted from a key set. HMAC is excluded so
// a public key can never be used as a shared secret.
var jwksMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512", "PS256", "PS384", "PS512"}

// NewJWTVerifier creates a verifier from cfg. With a JWKS endpoint the key
// set is fetched once up front and refreshed in the background until ctx is
// done; a token signed with an unknown kid triggers a rate limited refresh,
// which picks up rotated keys.
func NewJWTVerifier(ctx context.Context, cfg config.JWTConfig) (*JWTVerifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	v := &JWTVerifier{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}

	switch {
	case cfg.Secret != "":
		secret := []byte(cfg.Secret)

		v.methods = []string{jwt.SigningMethodHS256.Alg()}
		v.keyFunc = func(*jwt.Token) (any, error) { return secret, nil }
	case cfg.PublicKeyFile != "":
		pem, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read JWT public key file %s: %w", cfg.PublicKeyFile, err)
		}

		key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JWT public key file %s: %w", cfg.PublicKeyFile, err)
		}

		v.methods = []string{jwt.SigningMethodRS256.Alg()}
		v.keyFunc = func(*jwt.Token) (any, error) { return key, nil }
	default:
		endpoint := cfg.JWKSEndpoint()

		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{endpoint})
		if err != nil {
			return nil, fmt.Errorf("failed to load JWKS from %s: %w", endpoint, err)
		}

		v.methods = jwksMethods
		v.keyFunc = jwks.Keyfunc
	}

	return v, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods(v.methods)}

	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &jwt.RegisteredClaims{}

	if _, err := jwt.ParseWithClaims(token, claims, v.keyFunc, opts...); err != nil {
		return "", fmt.Errorf("%w: %w", task.ErrUnauthenticated, err)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: token has no subject", task.ErrUnauthenticated)
	}

	return claims.Subject, nil
}

// authenticate resolves the caller from the Authorization header. Requests
// without a valid bearer token never reach the handler.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return fmt.Errorf("%w: missing bearer token", task.ErrUnauthenticated)
		}

		ctx := c.Request().Context()

		callerID, err := s.verifier.Verify(ctx, token)
		if err != nil {
			s.logger(ctx).Debugf("Token rejected: %s", err)
			return err
		}

		if callerID == "" {
			return task.ErrUnauthenticated
		}

		logger := s.logger(ctx).WithField("caller_id", callerID)
		c.SetRequest(c.Request().WithContext(task.ContextWithLogger(ctx, logger)))
		c.Set(callerKey, callerID)

		return next(c)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

func callerID(c echo.Context) string {
	id, _ := c.Get(callerKey).(string)
	return id
}
