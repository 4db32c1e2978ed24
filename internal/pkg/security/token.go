package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/duedesk/DueDesk/internal/pkg/env"
)

// DefaultAccessTokenTTL is how long an issued API token stays valid.
const DefaultAccessTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

// jwtSecret returns the signing secret from the environment.
func jwtSecret() []byte {
	return []byte(env.GetEnv("JWT_SECRET", ""))
}

// GenerateAccessToken issues a signed HS256 token carrying the user identity.
func GenerateAccessToken(userID uint, email string, isAdmin bool) (string, error) {
	secret := jwtSecret()
	if len(secret) == 0 {
		return "", errors.New("JWT_SECRET is not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"admin":   isAdmin,
		"iat":     now.Unix(),
		"exp":     now.Add(DefaultAccessTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// AccessTokenClaims is the decoded identity of a verified token.
type AccessTokenClaims struct {
	UserID  uint
	Email   string
	IsAdmin bool
}

// ParseAccessToken verifies the signature and expiry and extracts the claims.
func ParseAccessToken(tokenString string) (*AccessTokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return nil, ErrInvalidToken
	}

	out := &AccessTokenClaims{UserID: uint(userIDFloat)}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if admin, ok := claims["admin"].(bool); ok {
		out.IsAdmin = admin
	}
	return out, nil
}
