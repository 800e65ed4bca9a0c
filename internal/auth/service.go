package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Staff roles recognised by the till API.
const (
	RoleCashier = "cashier"
	RoleManager = "manager"
)

const (
	roleClaim              = "role"
	httpStatusUnauthorized = 401
)

// Claims is the verified identity carried by a staff access token.
type Claims struct {
	UserID string
	Role   string
}

// ServiceConfig configures token signing and verification.
type ServiceConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	AccessTTL time.Duration
	ClockSkew time.Duration
	Now       func() time.Time
}

// Service signs and verifies HS256 staff access tokens.
type Service struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	clockSkew time.Duration
	signer    jwa.SignatureAlgorithm
	verifier  claimsVerifier
	now       func() time.Time
}

// NewService constructs a token service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 12 * time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		accessTTL: accessTTL,
		clockSkew: cfg.ClockSkew,
		signer:    jwa.HS256,
		verifier: claimsVerifier{
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			ClockSkew: cfg.ClockSkew,
			Algorithm: jwa.HS256,
		},
		now: now,
	}, nil
}

// IssueStaffToken signs an access token for a staff member.
func (s *Service) IssueStaffToken(userID, role string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, errors.New("auth: user id is required")
	}
	if !ValidRole(role) {
		return "", time.Time{}, fmt.Errorf("auth: unknown role %q", role)
	}
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	builder := jwt.NewBuilder().
		Subject(userID).
		Issuer(s.issuer).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(roleClaim, role)
	if s.audience != "" {
		builder = builder.Audience([]string{s.audience})
	}
	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// ParseAccessToken verifies token and returns its claims.
func (s *Service) ParseAccessToken(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "missing token", httpStatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", httpStatusUnauthorized, err)
	}
	if algorithm != s.signer {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", httpStatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", httpStatusUnauthorized, err)
	}
	claims, err := s.verifier.Verify(parsed, algorithm, s.now())
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", httpStatusUnauthorized, err)
	}
	return claims, nil
}

// ValidRole reports whether role is a known staff role.
func ValidRole(role string) bool {
	switch role {
	case RoleCashier, RoleManager:
		return true
	}
	return false
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
