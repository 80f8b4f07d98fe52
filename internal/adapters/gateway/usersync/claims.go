package usersync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fitness-tracker/fitness-platform/internal/platform/auth/jwtverifier"
)

// Claims are the identity claims read from a bearer token. They live for a
// single request and are never stored.
type Claims struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

type DecodeReason string

const (
	ReasonMissingHeader  DecodeReason = "missing_header"
	ReasonBadScheme      DecodeReason = "bad_scheme"
	ReasonMalformedToken DecodeReason = "malformed_token"
	ReasonMissingSubject DecodeReason = "missing_subject"
	ReasonUnverified     DecodeReason = "verification_failed"
)

// DecodeError reports why no claims could be read from the Authorization header.
type DecodeError struct {
	Reason DecodeReason
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "decode claims: " + string(e.Reason)
	}
	return fmt.Sprintf("decode claims: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(reason DecodeReason, err error) *DecodeError {
	return &DecodeError{Reason: reason, Err: err}
}

// Decoder turns an Authorization header value into identity claims.
type Decoder interface {
	Decode(ctx context.Context, authorization string) (Claims, error)
}

// BearerToken returns the token from "<scheme> <token>". The scheme must be
// Bearer (any case) and be separated from the token by a space.
func BearerToken(authorization string) (string, error) {
	if strings.TrimSpace(authorization) == "" {
		return "", decodeErr(ReasonMissingHeader, nil)
	}
	scheme, token, ok := strings.Cut(authorization, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", decodeErr(ReasonBadScheme, errors.New("expected Bearer scheme"))
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", decodeErr(ReasonMalformedToken, errors.New("empty token"))
	}
	return token, nil
}

// UnverifiedDecoder reads the token payload without checking the signature.
type UnverifiedDecoder struct {
	parser *jwt.Parser
}

func NewUnverifiedDecoder() *UnverifiedDecoder {
	return &UnverifiedDecoder{parser: jwt.NewParser()}
}

func (d *UnverifiedDecoder) Decode(_ context.Context, authorization string) (Claims, error) {
	raw, err := BearerToken(authorization)
	if err != nil {
		return Claims{}, err
	}
	mc := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(raw, mc); err != nil {
		return Claims{}, decodeErr(ReasonMalformedToken, err)
	}
	sub, err := mc.GetSubject()
	if err != nil {
		return Claims{}, decodeErr(ReasonMalformedToken, err)
	}
	if sub == "" {
		return Claims{}, decodeErr(ReasonMissingSubject, nil)
	}
	return Claims{
		Subject:   sub,
		Email:     stringClaim(mc, "email"),
		FirstName: stringClaim(mc, "given_name"),
		LastName:  stringClaim(mc, "family_name"),
	}, nil
}

// Non-string values are treated as absent.
func stringClaim(mc jwt.MapClaims, name string) string {
	s, _ := mc[name].(string)
	return s
}

// TokenVerifier is satisfied by *jwtverifier.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (jwtverifier.Claims, error)
}

// VerifyingDecoder only returns claims from tokens whose signature, issuer,
// audience and validity window check out.
type VerifyingDecoder struct {
	verifier TokenVerifier
}

func NewVerifyingDecoder(v TokenVerifier) *VerifyingDecoder {
	return &VerifyingDecoder{verifier: v}
}

func (d *VerifyingDecoder) Decode(ctx context.Context, authorization string) (Claims, error) {
	raw, err := BearerToken(authorization)
	if err != nil {
		return Claims{}, err
	}
	c, err := d.verifier.Verify(ctx, raw)
	if err != nil {
		return Claims{}, decodeErr(ReasonUnverified, err)
	}
	if c.Subject == "" {
		return Claims{}, decodeErr(ReasonMissingSubject, nil)
	}
	return Claims{
		Subject:   c.Subject,
		Email:     c.Email,
		FirstName: c.GivenName,
		LastName:  c.FamilyName,
	}, nil
}
