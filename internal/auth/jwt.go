package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rgayle/waterwatch/internal/models"
)

// Claims is the payload of every session token. It carries everything the
// scope resolver needs (user id, role, parish) so request handling never
// has to hit the users table to know who is calling.
type Claims struct {
	UserID   uuid.UUID   `json:"user_id"`
	Role     models.Role `json:"role"`
	Parish   string      `json:"parish"`
	FullName string      `json:"full_name"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 session token for a user. HS256 is enough
// here: a single service both issues and verifies.
func GenerateToken(u *models.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID:   u.ID,
		Role:     u.Role,
		Parish:   u.Parish,
		FullName: u.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "waterwatch",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature, expiry and signing method, and returns the
// embedded claims. Restricting the method to HMAC blocks the classic
// algorithm-confusion attack.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
