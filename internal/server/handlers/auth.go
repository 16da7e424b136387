// Handles sign in, registration and session management.

package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maruel/memoir/internal/server/dto"
	"github.com/maruel/memoir/internal/server/reqctx"
	"github.com/maruel/memoir/internal/storage"
)

// AuthHandler handles authentication requests.
type AuthHandler struct {
	svc *Services
	cfg *Config
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *Services, cfg *Config) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg}
}

// Login signs the user in, registering the account first when the name is new.
func (h *AuthHandler) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, created, err := h.svc.Users.SignIn(req.Username, req.Password)
	if err != nil {
		slog.InfoContext(ctx, "Sign in rejected", "user", req.Username, "ip", reqctx.ClientIP(ctx), "err", err)
		return nil, storageError(err, "user", "sign in")
	}
	if created {
		slog.InfoContext(ctx, "User registered", "user", user.Username, "id", user.ID)
	}
	return h.respond(user, created)
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	user, err := h.svc.Users.Register(req.Username, req.Password)
	if err != nil {
		return nil, storageError(err, "user", "create user")
	}
	slog.InfoContext(ctx, "User registered", "user", user.Username, "id", user.ID)
	return h.respond(user, true)
}

// Me returns the current user.
func (h *AuthHandler) Me(_ context.Context, user *storage.User, _ *dto.GetMeRequest) (*dto.UserResponse, error) {
	resp := userToResponse(user)
	return &resp, nil
}

// Logout revokes the current session.
func (h *AuthHandler) Logout(ctx context.Context, _ *storage.User, _ *dto.LogoutRequest) (*dto.LogoutResponse, error) {
	sid := reqctx.SessionID(ctx)
	if sid == "" {
		return &dto.LogoutResponse{Ok: true}, nil
	}
	if err := h.svc.Sessions.Revoke(sid); err != nil {
		slog.ErrorContext(ctx, "Failed to revoke session", "err", err)
		return nil, dto.InternalWithError("Failed to logout", err)
	}
	return &dto.LogoutResponse{Ok: true}, nil
}

func (h *AuthHandler) respond(user *storage.User, created bool) (*dto.AuthResponse, error) {
	token, err := h.GenerateTokenWithSession(user)
	if err != nil {
		return nil, dto.InternalWithError("Failed to generate token", err)
	}
	return &dto.AuthResponse{Token: token, User: userToResponse(user), Created: created}, nil
}

// GenerateTokenWithSession creates a session and returns a JWT token
// referencing it. The token expires with the session.
func (h *AuthHandler) GenerateTokenWithSession(user *storage.User) (string, error) {
	sess, err := h.svc.Sessions.Create(user.ID, h.cfg.SessionTTL)
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(user.ID, 10),
		"sid": sess.TokenID,
		"exp": sess.Expires.Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.cfg.JWTSecret)
	if err != nil {
		_ = h.svc.Sessions.Revoke(sess.TokenID)
		return "", err
	}
	return token, nil
}

func userToResponse(u *storage.User) dto.UserResponse {
	return dto.UserResponse{ID: u.ID, Username: u.Username}
}
