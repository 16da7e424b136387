// Defines shared service dependencies for handlers.

// Package handlers implements the API endpoints.
package handlers

import (
	"time"

	"github.com/maruel/memoir/internal/convert"
	"github.com/maruel/memoir/internal/docdb"
	"github.com/maruel/memoir/internal/storage"
)

// Services holds all service dependencies for handlers.
type Services struct {
	DB        *docdb.Store
	Users     *storage.UserService
	Notes     *storage.NoteService
	Sessions  *storage.SessionService
	Converter *convert.Registry
}

// NewServices returns the services backed by st, converting uploads with conv.
func NewServices(st *storage.Storage, conv *convert.Registry) *Services {
	return &Services{
		DB:        st.DB,
		Users:     st.Users,
		Notes:     st.Notes,
		Sessions:  st.Sessions,
		Converter: conv,
	}
}

// Config holds configuration values needed by handlers.
type Config struct {
	JWTSecret  []byte
	Version    string
	SessionTTL time.Duration
	Quotas     storage.ServerQuotas
}

// NewConfig derives the handler configuration from the server configuration.
func NewConfig(sc *storage.ServerConfig, version string) *Config {
	return &Config{
		JWTSecret:  sc.JWTSecret,
		Version:    version,
		SessionTTL: time.Duration(sc.SessionTTLHours) * time.Hour,
		Quotas:     sc.Quotas,
	}
}
