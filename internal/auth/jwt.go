package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by tokens issued by the main admin backend. This service
// only validates them; it never runs a login flow of its own.
type Claims struct {
	UserID     int64  `json:"user_id"`
	SucursalID int64  `json:"sucursal_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken exists for the seeder and for tests; production tokens come
// from the auth service.
func GenerateToken(secret string, userID, sucursalID int64, role string) (string, error) {
	claims := Claims{
		UserID:     userID,
		SucursalID: sucursalID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
