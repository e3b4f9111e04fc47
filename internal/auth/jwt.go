package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odyssey-erp/campus-erp/internal/rbac"
)

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the payload of an access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates a raw token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID string, role rbac.Role) (token string, expiresAt time.Time, err error)
}

// JWTService issues and verifies HS256 tokens.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// JWTConfig configures JWTService.
type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
}

// NewJWTService builds a JWTService.
func NewJWTService(cfg JWTConfig) *JWTService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTService{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: ttl, leeway: cfg.Leeway, now: time.Now}
}

// TTL returns the token lifetime.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for userID.
func (s *JWTService) Issue(userID string, role rbac.Role) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, algorithm, expiry and issuer.
func (s *JWTService) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
