// Package jwks_testutil provides an in-process JWKS endpoint and token minting
// for tests that exercise RS256 verification.
package jwks_testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fitness-tracker/fitness-platform/internal/platform/auth/jwtverifier"
)

type Keypair struct {
	Kid     string
	Private *rsa.PrivateKey
}

func GenerateRSAKeypair(kid string) (Keypair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Kid: kid, Private: priv}, nil
}

// NewRotatingJWKSServer returns a JWKS server whose key set can be swapped at runtime.
//
// Use SetKeys to rotate keys.
func NewRotatingJWKSServer() (*httptest.Server, func(keys []Keypair)) {
	var jwksJSON atomic.Value // string
	jwksJSON.Store(`{"keys":[]}`)

	setKeys := func(keys []Keypair) {
		out := jwtverifier.JWKSet{Keys: make([]jwtverifier.JWK, 0, len(keys))}
		for _, kp := range keys {
			out.Keys = append(out.Keys, jwtverifier.RSAPublicJWK(kp.Kid, &kp.Private.PublicKey))
		}
		b, _ := json.Marshal(out)
		jwksJSON.Store(string(b))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(jwksJSON.Load().(string)))
	}))

	return srv, setKeys
}

// MintRS256JWT creates a signed JWT using RS256 with the given keypair.
//
// aud may be either a string or []string. An empty sub is omitted.
func MintRS256JWT(kp Keypair, iss string, aud any, sub string, now time.Time, expDelta time.Duration, nbfDelta *time.Duration) (string, error) {
	return MintRS256JWTWithClaims(kp, iss, aud, sub, now, expDelta, nbfDelta, nil)
}

// MintRS256JWTWithClaims is MintRS256JWT with additional top-level claims
// such as email or given_name.
func MintRS256JWTWithClaims(kp Keypair, iss string, aud any, sub string, now time.Time, expDelta time.Duration, nbfDelta *time.Duration, extra map[string]any) (string, error) {
	claims := jwt.MapClaims{
		"iss": iss,
		"aud": aud,
		"iat": now.Unix(),
		"exp": now.Add(expDelta).Unix(),
	}
	if sub != "" {
		claims["sub"] = sub
	}
	if nbfDelta != nil {
		claims["nbf"] = now.Add(*nbfDelta).Unix()
	}
	for k, v := range extra {
		claims[k] = v
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kp.Kid
	return tok.SignedString(kp.Private)
}
