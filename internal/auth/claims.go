package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	errMissingSubject = errors.New("auth: token missing subject")
	errUnknownRole    = errors.New("auth: token carries no known staff role")
)

// staffRoleValidator rejects tokens without a subject or a known staff role.
var staffRoleValidator = jwt.ValidatorFunc(func(_ context.Context, tok jwt.Token) jwt.ValidationError {
	if tok.Subject() == "" {
		return jwt.NewValidationError(errMissingSubject)
	}
	raw, _ := tok.Get(roleClaim)
	if role, _ := raw.(string); !ValidRole(role) {
		return jwt.NewValidationError(errUnknownRole)
	}
	return nil
})

// claimsVerifier checks a parsed staff token against the terminal's expected
// issuer, audience and algorithm.
type claimsVerifier struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Verify validates tok at instant now and returns its staff claims.
func (v claimsVerifier) Verify(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) (Claims, error) {
	if tok == nil {
		return Claims{}, errors.New("auth: token is nil")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return Claims{}, fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}
	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithValidator(staffRoleValidator),
	}
	if v.ClockSkew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	if err := jwt.Validate(tok, opts...); err != nil {
		return Claims{}, err
	}
	raw, _ := tok.Get(roleClaim)
	role, _ := raw.(string)
	return Claims{UserID: tok.Subject(), Role: role}, nil
}
