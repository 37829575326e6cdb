package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"spotbroker/internal/common"
	"spotbroker/internal/common/security"
	"spotbroker/internal/platform/config"
)

func setupJWT(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour}
	security.InitJWT()
}

func TestAuthService_Login(t *testing.T) {
	setupJWT(t)
	hash, err := security.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	svc := NewAuthService("admin", hash)
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{Username: "admin", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Token == "" || resp.Role != security.RoleAdmin {
		t.Errorf("unexpected response %+v", resp)
	}

	tests := []struct {
		name string
		req  LoginRequest
		want error
	}{
		{"wrong password", LoginRequest{Username: "admin", Password: "nope"}, common.ErrUnauthorized},
		{"wrong user", LoginRequest{Username: "root", Password: "hunter2"}, common.ErrUnauthorized},
		{"missing fields", LoginRequest{Username: "admin"}, common.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAuthService_NoAdminConfigured(t *testing.T) {
	setupJWT(t)
	svc := NewAuthService("admin", "")
	_, err := svc.Login(context.Background(), LoginRequest{Username: "admin", Password: "x"})
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
