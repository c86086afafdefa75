package domain

import (
	"errors"
	"fmt"
)

var (
	// Upstream content errors
	ErrNotFound  = errors.New("target does not exist")
	ErrInvisible = errors.New("target data withheld from account")
	ErrMalformed = errors.New("unrecognized upstream response")

	// ErrItemNotFound matches ErrNotFound as well
	ErrItemNotFound = fmt.Errorf("item does not exist: %w", ErrNotFound)

	// Network and rate limiting errors
	ErrRateLimited    = errors.New("rate limited by upstream")
	ErrNetworkFailure = errors.New("network failure")

	// Failover errors
	ErrExhausted = errors.New("no account could access target")

	// Cache errors
	ErrCacheMiss = errors.New("cache miss")

	// Account administration errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrNoAccounts         = errors.New("no accounts configured")
)

// UnavailableError is returned when the upstream permanently refuses access
// to an account or item. Reason carries the upstream-provided message.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	if e.Reason == "" {
		return "unavailable"
	}
	return fmt.Sprintf("unavailable: %s", e.Reason)
}

// StatusError is a non-success upstream status other than rate limiting.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d", e.Code)
}

// Unwrap lets StatusError match ErrNetworkFailure, which is failed over the same way.
func (e *StatusError) Unwrap() error {
	return ErrNetworkFailure
}

// IsUnavailable reports whether err carries an UnavailableError
func IsUnavailable(err error) bool {
	var u *UnavailableError
	return errors.As(err, &u)
}

// IsRetryable reports whether the orchestrator may fail over to another account.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrInvisible) ||
		errors.Is(err, ErrNetworkFailure) ||
		errors.Is(err, ErrMalformed)
}

// Note renders err as the caller-facing note string.
func Note(err error) string {
	var u *UnavailableError
	switch {
	case errors.As(err, &u):
		if u.Reason != "" {
			return u.Reason
		}
		return "unavailable"
	case errors.Is(err, ErrItemNotFound):
		return "tweet not found"
	case errors.Is(err, ErrNotFound):
		return "user not found"
	case errors.Is(err, ErrExhausted):
		return "account blocked or protected"
	default:
		return err.Error()
	}
}
