// Package errors provides centralized error handling for the release
// automation.
//
// This package defines sentinel errors used for programmatic error
// categorization throughout the application. All error types can be checked
// using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrQueryFailed indicates that a read-only query against an external
	// service (Charmhub, the snap store, the GitHub tags API or the SQA lab)
	// failed at the transport level: non-2xx response, timeout or connection
	// error. Distinct from "no data found", which is never an error.
	ErrQueryFailed = errors.New("query failed")

	// ErrSQACommand indicates that an SQA lab CLI invocation exited non-zero
	// or produced unparseable output.
	ErrSQACommand = errors.New("sqa command failed")

	// ErrInvariant indicates that an external service returned data that
	// violates an expected invariant, e.g. more than one product version
	// where exactly one must exist. Never resolved by picking one record.
	ErrInvariant = errors.New("invariant violation")

	// ErrPromoteFailed indicates that a charmcraft promote command failed
	// after the gating decision had already been made.
	ErrPromoteFailed = errors.New("charm promotion failed")

	// ErrReleaseFailed indicates that a snapcraft release command failed.
	ErrReleaseFailed = errors.New("snap release failed")

	// ErrCommandFailed indicates that an external command execution failed.
	ErrCommandFailed = errors.New("command failed")

	// ErrCommandTimeout indicates an external command exceeded its timeout.
	ErrCommandTimeout = errors.New("command timeout exceeded")

	// ErrMissingCredentials indicates that CHARMCRAFT_AUTH is not set.
	ErrMissingCredentials = errors.New("missing charmhub credentials")

	// ErrMalformedCredentials indicates that the exported charmcraft
	// credentials could not be decoded.
	ErrMalformedCredentials = errors.New("malformed charmhub credentials")

	// ErrInvalidTrack indicates a track name that is not a valid version.
	ErrInvalidTrack = errors.New("invalid track version")

	// ErrNoReleases indicates that no upstream release tags were retrieved.
	ErrNoReleases = errors.New("no upstream releases retrieved")

	// ErrEmptyBundle indicates an axis lookup on a bundle with no charms.
	ErrEmptyBundle = errors.New("bundle has no charms")

	// ErrBuildNotFound indicates that a recorded SQA build no longer exists.
	ErrBuildNotFound = errors.New("build not found")

	// ErrConfigInvalid indicates an invalid configuration value.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrConflictingFlags indicates that mutually exclusive flags were specified.
	ErrConflictingFlags = errors.New("conflicting flags specified")
)
