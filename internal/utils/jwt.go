package utils

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// These should normally come from environment variables for security.
	AccessTokenSecret  = []byte(os.Getenv("ACCESS_TOKEN_SECRET"))
	RefreshTokenSecret = []byte(os.Getenv("REFRESH_TOKEN_SECRET"))
)

// Claims represents JWT claims.
type Claims struct {
	UserID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a signed token for the user with the given lifetime.
// The returned jti identifies the token server-side (redis session /
// blacklist entries).
func GenerateJWT(userID uuid.UUID, ttl time.Duration, secret []byte) (string, string, error) {
	jti := uuid.NewString()

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", "", err
	}

	return signed, jti, nil
}

// VerifyJWT parses and validates a JWT string.
func VerifyJWT(tokenStr string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
