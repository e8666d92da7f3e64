package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not
	// match. The message is shown to end users and deliberately does not say
	// whether the account exists.
	ErrInvalidCredentials = errors.New("Invalid credentials")

	ErrEmailAndPasswordRequired = errors.New("email and password required")
	ErrEmailAlreadyExists       = errors.New("Email already registered")

	// ErrUnknownIdentity is returned when a token validates but no matching
	// account exists.
	ErrUnknownIdentity = errors.New("unknown identity")

	ErrPostNotFound = errors.New("Post not found")
	ErrPostTooLarge = errors.New("Post text exceeds maximum size")
	ErrTextRequired = errors.New("text required")
)
