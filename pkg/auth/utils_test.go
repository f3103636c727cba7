package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/require"
)

const testKeyID = "test-key-1"

// testKeyPair bundles an RSA signing key with the JWKS that publishes its
// public half.
type testKeyPair struct {
	private *rsa.PrivateKey
	kid     string
	set     jwk.Set
}

func newTestKeyPair(t *testing.T, kid string) *testKeyPair {
	t.Helper()

	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "failed to generate RSA key pair")

	key, err := jwk.Import(&private.PublicKey)
	require.NoError(t, err, "failed to create JWK from public key")
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, "RS256"))
	require.NoError(t, key.Set(jwk.KeyUsageKey, "sig"))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(key))

	return &testKeyPair{private: private, kid: kid, set: set}
}

// sign produces a signed token with the pair's key id in the header.
func (p *testKeyPair) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = p.kid

	signed, err := token.SignedString(p.private)
	require.NoError(t, err, "failed to sign token")
	return signed
}

// jwksServer serves a JWKS document and counts fetches.
type jwksServer struct {
	srv     *httptest.Server
	fetches atomic.Int64
	fail    atomic.Bool
}

func newJWKSServer(t *testing.T, set jwk.Set) *jwksServer {
	t.Helper()

	s := &jwksServer{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.fetches.Add(1)
		if s.fail.Load() {
			http.Error(w, "temporarily unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		buf, err := json.Marshal(set)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(buf)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *jwksServer) URL() string {
	return s.srv.URL
}

// newRawServer serves a fixed body with a 200 status.
func newRawServer(t *testing.T, body string) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// futureExp returns an expiry claim one hour from now.
func futureExp() int64 {
	return time.Now().Add(time.Hour).Unix()
}
