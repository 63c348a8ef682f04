package domain

import (
	"errors"
)

// Listing errors
var (
	// ErrListingNotFound is returned when no listing matches the given id.
	ErrListingNotFound = errors.New("listing not found")

	// ErrInvalidListing is wrapped with a detail message when a listing breaks
	// one of its invariants (asset present only for HAVE, want only for WANT...).
	ErrInvalidListing = errors.New("invalid listing")
)

// Match errors
var (
	// ErrMatchNotFound is returned when no match exists for the requested pair.
	ErrMatchNotFound = errors.New("match not found")
)

// User / auth errors
var (
	// ErrUserNotFound is returned when no local profile exists for the user id.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnauthorized is returned when no identity is attached to the request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenInvalid is returned when a bearer token cannot be parsed or its
	// signature does not match.
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrForbidden is returned when the caller does not own the listing it is
	// trying to change.
	ErrForbidden = errors.New("forbidden")
)

var notFoundErrors = []error{
	ErrListingNotFound,
	ErrMatchNotFound,
	ErrUserNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// "not found" sentinels.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication errors.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrTokenInvalid)
}

// IsValidation returns true when err describes bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidListing)
}
