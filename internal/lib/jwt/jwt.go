package jwt

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const AccessAuth = "auth"

var ErrInvalidToken = errors.New("invalid token")

// Claims carry the owner id and the access scope. ID (jti) is random so two tokens issued
// to the same user within one second still differ.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"_id"`
	Access string `json:"access"`
}

// NewToken signs a token for userID with the given access scope.
// A ttl of zero or less produces a token without expiry.
func NewToken(userID, access, secret string, ttl time.Duration) (string, error) {
	const op = "jwt.NewToken"

	jti, err := randomID()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       jti,
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID: userID,
		Access: access,
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// ParseToken checks signature, algorithm and expiry. It never touches storage.
func ParseToken(tokenStr, secret string) (Claims, error) {
	const op = "jwt.ParseToken"

	var claims Claims

	parsed, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if !parsed.Valid || claims.UserID == "" || claims.Access == "" {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

func randomID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
