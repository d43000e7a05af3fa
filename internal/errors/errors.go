// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError is a missing/invalid request field. Never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError means the content store or a provider was unreachable.
type UpstreamError struct {
	Message string
	Cause   error
}

func (e *UpstreamError) Error() string { return e.Message }
func (e *UpstreamError) Unwrap() error { return e.Cause }

// NewStoreUnavailable wraps a content-store connectivity failure with the
// operator hint users expect.
func NewStoreUnavailable(cause error) error {
	return &UpstreamError{
		Message: fmt.Sprintf("%v (probably the content store is down)", cause),
		Cause:   cause,
	}
}

func NewUpstream(cause error, format string, args ...any) error {
	return &UpstreamError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// SubscriptionError means the recipient opted out of the channel. Recorded as
// an "unpublished" event, not a fault.
type SubscriptionError struct {
	ContactID int
	Channel   string
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("contact %d has no active subscription for channel %s", e.ContactID, e.Channel)
}

func NewSubscription(contactID int, channel string) error {
	return &SubscriptionError{ContactID: contactID, Channel: channel}
}

// PartialFailure means some recipients in a batch failed; successes are not
// rolled back.
type PartialFailure struct {
	Failed int
	Total  int
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%d out of %d messages failed to send", e.Failed, e.Total)
}

func NewPartialFailure(failed, total int) error {
	return &PartialFailure{Failed: failed, Total: total}
}

// CredentialError means a channel credential is missing, expired or rejected.
// The credential flips to invalid/disconnected; an operator has to act.
type CredentialError struct {
	Channel string
	Message string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("channel %s credential: %s", e.Channel, e.Message)
}

func NewCredential(channel, format string, args ...any) error {
	return &CredentialError{Channel: channel, Message: fmt.Sprintf(format, args...)}
}

// IsSubscription reports whether err is a SubscriptionError.
func IsSubscription(err error) bool {
	var se *SubscriptionError
	return errors.As(err, &se)
}

// HTTPStatus maps an error onto the status code the API reports.
func HTTPStatus(err error) int {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	var pf *PartialFailure
	if errors.As(err, &pf) {
		return http.StatusPartialContent
	}
	var ce *CredentialError
	if errors.As(err, &ce) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
