package main

import (
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fitness-tracker/fitness-platform/internal/platform/auth/jwtverifier"
)

type issuer struct {
	Issuer   string
	Audience string
	Kid      string
	TTL      time.Duration
	Key      *rsa.PrivateKey
	Now      func() time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

func (i *issuer) mint(c tokenClaims) (string, time.Time, error) {
	now := i.Now().UTC()
	exp := now.Add(i.TTL)
	c.Issuer = i.Issuer
	c.Audience = jwt.ClaimStrings{i.Audience}
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(exp)
	c.NotBefore = jwt.NewNumericDate(now.Add(-5 * time.Second)) // small skew tolerance for local use

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	tok.Header["kid"] = i.Kid
	s, err := tok.SignedString(i.Key)
	return s, exp, err
}

func (i *issuer) Handler() http.Handler {
	jwks, _ := json.Marshal(jwtverifier.JWKSet{Keys: []jwtverifier.JWK{
		jwtverifier.RSAPublicJWK(i.Kid, &i.Key.PublicKey),
	}})

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Common JWKS path used by many providers.
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(jwks)
	})

	// Mint a JWT:
	//   GET /token?sub=abc123&email=a@b.com&given_name=A&family_name=B
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sub := strings.TrimSpace(q.Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}

		c := tokenClaims{
			Email:      strings.TrimSpace(q.Get("email")),
			GivenName:  strings.TrimSpace(q.Get("given_name")),
			FamilyName: strings.TrimSpace(q.Get("family_name")),
		}
		c.Subject = sub
		token, exp, err := i.mint(c)
		if err != nil {
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"sub":   sub,
			"iss":   i.Issuer,
			"aud":   i.Audience,
			"exp":   exp.Unix(),
		})
	})

	return mux
}
