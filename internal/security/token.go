package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/WeCr8/goodbodybucks/internal/models"
)

var (
	// ErrInvalidToken means the bearer token failed verification
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims carries the resolved principal inside a bearer token
type Claims struct {
	FamilyID string `json:"fid"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager mints and verifies HS256 bearer tokens. The core trusts
// the principal a verified token resolves to.
type TokenManager struct {
	secret   []byte
	duration time.Duration
}

// NewTokenManager creates a token manager with the given signing secret
func NewTokenManager(secret string, duration time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), duration: duration}
}

// Mint issues a token for a member
func (tm *TokenManager) Mint(familyID, memberID, role string, now time.Time) (string, error) {
	claims := Claims{
		FamilyID: familyID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   memberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.duration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a bearer token and returns the principal it carries
func (tm *TokenManager) Verify(tokenString string) (models.Principal, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return models.Principal{}, ErrInvalidToken
	}
	if claims.FamilyID == "" || claims.Subject == "" {
		return models.Principal{}, ErrInvalidToken
	}

	return models.Principal{
		FamilyID: claims.FamilyID,
		MemberID: claims.Subject,
		Role:     claims.Role,
	}, nil
}
