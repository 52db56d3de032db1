package domain

import "errors"

// Rejections surfaced to the acting connection.
var (
	ErrUsernameTaken = errors.New("username already taken in this room")
	ErrBanned        = errors.New("banned from this room")
)

// Moderation failures that are dropped silently.
var (
	ErrNotAuthorized       = errors.New("not authorized")
	ErrNoSuchTarget        = errors.New("no such target")
	ErrSelfOrRootProtected = errors.New("target is self or root")
)
