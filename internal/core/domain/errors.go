package domain

import "errors"

var (
	ErrEmptyIdentity      = errors.New("connection carries no user identity")
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRecipient   = errors.New("invalid recipient id")
	ErrEmptyMessage       = errors.New("empty message body")
	ErrSelfMessage        = errors.New("cannot message yourself")
)
