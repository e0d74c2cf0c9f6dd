package httpapi_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/slackmgr/todos/internal/config"
	"github.com/slackmgr/todos/internal/httpapi"
	"github.com/slackmgr/todos/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePublicKey(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jwt.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))

	return path
}

func TestNewJWTVerifier_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := httpapi.NewJWTVerifier(context.Background(), config.JWTConfig{})
	require.Error(t, err)

	_, err = httpapi.NewJWTVerifier(context.Background(), config.JWTConfig{PublicKeyFile: filepath.Join(t.TempDir(), "missing.pem")})
	require.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a key"), 0o600))

	_, err = httpapi.NewJWTVerifier(context.Background(), config.JWTConfig{PublicKeyFile: garbage})
	require.Error(t, err)
}

func TestJWTVerifier_RS256(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	verifier, err := httpapi.NewJWTVerifier(context.Background(), config.JWTConfig{PublicKeyFile: writePublicKey(t, key)})
	require.NoError(t, err)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{Subject: "u1"}).SignedString(key)
	require.NoError(t, err)

	caller, err := verifier.Verify(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", caller)

	// An HS256 token must not be accepted by an RS256 verifier.
	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), hs)
	require.ErrorIs(t, err, task.ErrUnauthenticated)
}

func TestJWTVerifier_IssuerAndAudience(t *testing.T) {
	t.Parallel()

	verifier, err := httpapi.NewJWTVerifier(context.Background(), config.JWTConfig{
		Secret:   "secret",
		Issuer:   "https://issuer.example.com",
		Audience: "todos",
	})
	require.NoError(t, err)

	sign := func(claims jwt.RegisteredClaims) string {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		return signed
	}

	caller, err := verifier.Verify(context.Background(), sign(jwt.RegisteredClaims{
		Subject:  "u1",
		Issuer:   "https://issuer.example.com",
		Audience: jwt.ClaimStrings{"todos"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "u1", caller)

	_, err = verifier.Verify(context.Background(), sign(jwt.RegisteredClaims{
		Subject:  "u1",
		Issuer:   "https://other.example.com",
		Audience: jwt.ClaimStrings{"todos"},
	}))
	require.ErrorIs(t, err, task.ErrUnauthenticated)

	_, err = verifier.Verify(context.Background(), sign(jwt.RegisteredClaims{
		Subject: "u1",
		Issuer:  "https://issuer.example.com",
	}))
	require.ErrorIs(t, err, task.ErrUnauthenticated)
}

type jwksServer struct {
	mu   sync.Mutex
	keys map[string]*rsa.PrivateKey
}

func (j *jwksServer) publish(kid string, key *rsa.PrivateKey) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.keys = map[string]*rsa.PrivateKey{kid: key}
}

func (j *jwksServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/.well-known/jwks.json" {
		http.NotFound(w, r)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	keys := make([]map[string]string, 0, len(j.keys))

	for kid, key := range j.keys {
		keys = append(keys, map[string]string{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"keys": keys})
}

func signWithKID(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.RegisteredClaims) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid

	signed, err := tok.SignedString(key)
	require.NoError(t, err)

	return signed
}

func TestJWTVerifier_JWKSFromIssuerWithKeyRotation(t *testing.T) {
	t.Parallel()

	first, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	second, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keys := &jwksServer{}
	keys.publish("k1", first)

	srv := httptest.NewServer(keys)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	verifier, err := httpapi.NewJWTVerifier(ctx, config.JWTConfig{Issuer: srv.URL})
	require.NoError(t, err)

	caller, err := verifier.Verify(ctx, signWithKID(t, first, "k1", jwt.RegisteredClaims{Subject: "u1", Issuer: srv.URL}))
	require.NoError(t, err)
	assert.Equal(t, "u1", caller)

	keys.publish("k2", second)

	caller, err = verifier.Verify(ctx, signWithKID(t, second, "k2", jwt.RegisteredClaims{Subject: "u2", Issuer: srv.URL}))
	require.NoError(t, err)
	assert.Equal(t, "u2", caller)

	_, err = verifier.Verify(ctx, signWithKID(t, second, "k2", jwt.RegisteredClaims{Subject: "u2", Issuer: "https://other.example.com"}))
	require.ErrorIs(t, err, task.ErrUnauthenticated)
}

func TestJWTVerifier_JWKSURLRejectsHMAC(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keys := &jwksServer{}
	keys.publish("k1", key)

	srv := httptest.NewServer(keys)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	verifier, err := httpapi.NewJWTVerifier(ctx, config.JWTConfig{JWKSURL: srv.URL + "/.well-known/jwks.json"})
	require.NoError(t, err)

	caller, err := verifier.Verify(ctx, signWithKID(t, key, "k1", jwt.RegisteredClaims{Subject: "u1"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", caller)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"})
	hs.Header["kid"] = "k1"

	signed, err := hs.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = verifier.Verify(ctx, signed)
	require.ErrorIs(t, err, task.ErrUnauthenticated)
}
