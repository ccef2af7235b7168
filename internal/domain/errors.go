package domain

import "errors"

// Domain errors
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrAppNotFound    = errors.New("app not found")
	ErrVanityNotFound = errors.New("vanity name not found")
	ErrUpstream       = errors.New("upstream request failed")
	ErrNoSharedGames  = errors.New("no shared games")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalError  = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrAppNotFound) ||
		errors.Is(err, ErrVanityNotFound)
}
