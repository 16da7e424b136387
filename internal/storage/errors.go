package storage

import "errors"

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a user accesses another user's note.
	ErrForbidden = errors.New("access denied")
	// ErrInvalidCredentials is returned for an unknown user name or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when registering a taken user name.
	ErrUserExists = errors.New("user already exists")
	// ErrUserQuotaExceeded is returned when the server holds its maximum number of users.
	ErrUserQuotaExceeded = errors.New("maximum number of users reached")
	// ErrSessionExpired is returned when validating an expired session.
	ErrSessionExpired = errors.New("session expired")

	errUsernameRequired = errors.New("username is required")
	errPasswordRequired = errors.New("password is required")
	errTitleRequired    = errors.New("title is required")
	errOwnerRequired    = errors.New("owner_id is required")
	errUserIDRequired   = errors.New("user_id is required")
)

// ValidationError reports an invalid field value supplied by the caller.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
