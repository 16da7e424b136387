// Manages accounts and password authentication.

package storage

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/maruel/memoir/internal/docdb"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
)

// User is an account.
type User struct {
	docdb.Model
	Username     string `json:"username" jsonschema:"description=Login name, unique"`
	PasswordHash string `json:"password_hash" jsonschema:"description=bcrypt hash, or a legacy hex scrypt hash"`
}

// UserService handles user management and authentication.
type UserService struct {
	users    *docdb.Kind[*User]
	maxUsers int

	// mu serializes registrations so user names stay unique.
	mu sync.Mutex
}

// NewUserService returns a service over users. maxUsers of 0 disables the limit.
func NewUserService(users *docdb.Kind[*User], maxUsers int) *UserService {
	return &UserService{users: users, maxUsers: maxUsers}
}

// Register creates a user with a bcrypt password hash.
func (s *UserService) Register(username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &ValidationError{Field: "username", Err: errUsernameRequired}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Err: errPasswordRequired}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Find(username); ok {
		return nil, ErrUserExists
	}
	if s.maxUsers > 0 && s.users.Len() >= s.maxUsers {
		return nil, ErrUserQuotaExceeded
	}
	u := &User{Username: username, PasswordHash: string(hash)}
	if err := s.users.Add(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Find returns the user with the given name.
func (s *UserService) Find(username string) (*User, bool) {
	return s.users.Query().Filter(docdb.Fields{"username": username}).First()
}

// Get returns the user with the given id.
func (s *UserService) Get(id int64) (*User, error) {
	u, ok := s.users.Get(id)
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

// List returns every user in creation order.
func (s *UserService) List() []*User {
	return s.users.Query().All()
}

// Count returns the number of users.
func (s *UserService) Count() int {
	return s.users.Len()
}

// Delete removes the user with the given name. The caller removes the
// user's notes and sessions.
func (s *UserService) Delete(username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Find(strings.TrimSpace(username))
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err := s.users.Remove(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies the password of username.
//
// A valid legacy scrypt hash is replaced by a bcrypt hash.
func (s *UserService) Authenticate(username, password string) (*User, error) {
	u, ok := s.Find(strings.TrimSpace(username))
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if isBcrypt(u.PasswordHash) {
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
		return u, nil
	}
	want, err := legacyHash(password)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(u.PasswordHash)) != 1 {
		return nil, ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.Modify(u, func(u *User) error {
		u.PasswordHash = string(hash)
		return nil
	}); err != nil {
		slog.Warn("failed to upgrade legacy password hash", "user", u.ID, "err", err)
	}
	return u, nil
}

// SignIn authenticates username, registering it first when it does not
// exist yet. created reports whether the account was just made.
func (s *UserService) SignIn(username, password string) (u *User, created bool, err error) {
	if _, ok := s.Find(strings.TrimSpace(username)); !ok {
		u, err = s.Register(username, password)
		if err == nil {
			return u, true, nil
		}
		if !errors.Is(err, ErrUserExists) {
			return nil, false, err
		}
	}
	u, err = s.Authenticate(username, password)
	return u, false, err
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2")
}

// legacyHash returns the hex scrypt hash used by accounts created before
// bcrypt.
func legacyHash(password string) (string, error) {
	key, err := scrypt.Key([]byte(password), []byte("memoir"), 16384, 8, 1, 64)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hex.EncodeToString(key), nil
}
