package service

import (
	"context"
	"crypto/subtle"
	"fmt"

	"spotbroker/internal/common"
	"spotbroker/internal/common/security"
)

// AuthService authenticates the single operator account allowed to resize
// the pool.
type AuthService struct {
	adminUsername     string
	adminPasswordHash string
}

func NewAuthService(adminUsername, adminPasswordHash string) *AuthService {
	return &AuthService{adminUsername: adminUsername, adminPasswordHash: adminPasswordHash}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, common.ErrBadRequest
	}
	if s.adminPasswordHash == "" {
		// No admin configured, nobody can log in.
		return nil, common.ErrUnauthorized
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.adminUsername)) == 1
	passOK := security.CheckPasswordHash(req.Password, s.adminPasswordHash)
	if !userOK || !passOK {
		return nil, common.ErrUnauthorized
	}

	token, err := security.GenerateToken(req.Username, security.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Token: token, Role: security.RoleAdmin}, nil
}
