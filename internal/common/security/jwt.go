package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"

	"spotbroker/internal/platform/config"
)

const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = NewTokenAuth(config.AppConfig.JWTKey)
}

func NewTokenAuth(key []byte) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", key, nil)
}

// GenerateToken signs a token for subject with the configured expiry.
func GenerateToken(subject, role string) (string, error) {
	return GenerateTokenWith(TokenAuth, subject, role, config.AppConfig.JWTExp)
}

func GenerateTokenWith(auth *jwtauth.JWTAuth, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	_, tokenString, err := auth.Encode(claims)
	return tokenString, err
}

func GetSubjectFromClaims(claims map[string]interface{}) (string, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("sub claim is missing or not a string")
	}
	return sub, nil
}

func GetRoleFromClaims(claims map[string]interface{}) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}
