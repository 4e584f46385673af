// Package errors provides centralized error definitions for the application.
// Errors are organized by the stage of a run that produces them.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
//   - Kind maps a wrapped error to the short category shown to bot users
package errors

import (
	"context"
	"errors"
)

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Channel and entity resolution errors.
var (
	// ErrChannelNotFound indicates a channel could not be found.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNotAChannel indicates the entity is not a channel type.
	ErrNotAChannel = errors.New("entity is not a channel")

	// ErrChannelUnavailable indicates the channel exists but cannot be read
	// (private, access revoked or banned).
	ErrChannelUnavailable = errors.New("channel unavailable")

	// ErrNotAuthorized indicates the user session has not been logged in.
	ErrNotAuthorized = errors.New("telegram session is not authorized")
)

// Collection errors.
var (
	// ErrCollection wraps a per-source collection failure.
	ErrCollection = errors.New("collection failed")

	// ErrAllSourcesFailed indicates that every configured source failed and nothing was collected.
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrFeedStatus indicates a feed responded with a non-200 status.
	ErrFeedStatus = errors.New("unexpected feed status")
)

// Generation errors.
var (
	// ErrGeneration wraps a text generation failure.
	ErrGeneration = errors.New("generation failed")

	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")
)

// Delivery errors.
var (
	// ErrDelivery wraps a non rate-limit transport failure.
	ErrDelivery = errors.New("delivery failed")

	// ErrRateLimited indicates rate limiting was triggered.
	ErrRateLimited = errors.New("rate limited")
)

// Configuration and lifecycle errors.
var (
	// ErrMissingDestination indicates no delivery destination is configured.
	ErrMissingDestination = errors.New("delivery destination is not configured")

	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRunInProgress indicates a run was requested while another is active.
	ErrRunInProgress = errors.New("a run is already in progress")
)

// Error kinds reported to users.
const (
	KindCollection    = "collection"
	KindGeneration    = "generation"
	KindDelivery      = "delivery"
	KindConfiguration = "configuration"
	KindBusy          = "busy"
	KindCanceled      = "canceled"
	KindUnknown       = "unknown"
)

// Kind classifies err into one of the Kind* categories.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRunInProgress):
		return KindBusy
	case errors.Is(err, ErrMissingDestination), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotAuthorized):
		return KindConfiguration
	case errors.Is(err, ErrDelivery):
		return KindDelivery
	case errors.Is(err, ErrGeneration), errors.Is(err, ErrCircuitBreakerOpen):
		return KindGeneration
	case errors.Is(err, ErrCollection), errors.Is(err, ErrAllSourcesFailed),
		errors.Is(err, ErrChannelNotFound), errors.Is(err, ErrChannelUnavailable),
		errors.Is(err, ErrNotAChannel), errors.Is(err, ErrFeedStatus):
		return KindCollection
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
