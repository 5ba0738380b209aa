package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminClaims identifies the bearer as the station operator. The admin
// HTTP dashboard has exactly one principal; there is no per-user role
// set to encode, unlike the driver-facing wire protocol.
type AdminClaims struct {
	jwt.RegisteredClaims
}

// AdminTokenService issues and validates the bearer tokens protecting
// the admin dashboard's HTTP routes. It is unrelated to the TCP wire
// protocol's register/login actions, which never return a token.
type AdminTokenService struct {
	secret   []byte
	ttl      time.Duration
	operator string
	log      *zap.Logger
}

func NewAdminTokenService(secret string, ttl time.Duration, operator string, log *zap.Logger) *AdminTokenService {
	return &AdminTokenService{secret: []byte(secret), ttl: ttl, operator: operator, log: log}
}

// Issue signs a fresh admin token. The caller has already verified the
// operator credential via a CredentialStore.
func (s *AdminTokenService) Issue() (string, error) {
	now := time.Now()
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		s.log.Error("failed to sign admin token", zap.Error(err))
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// Validate parses and checks a bearer token, returning the subject on
// success.
func (s *AdminTokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid admin token: %w", err)
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok {
		return "", fmt.Errorf("invalid admin token claims")
	}
	return claims.Subject, nil
}
