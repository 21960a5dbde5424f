package githubapi

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	invalidInputErrorTemplateConstant       = "invalid %s: %s"
	authenticationErrorTemplateConstant     = "authentication failed for organization %s during %s (status %d): %v"
	retryExhaustedErrorTemplateConstant     = "operation %s failed after %d attempts: %v"
	quotaWaitExhaustedErrorTemplateConstant = "operation %s still rate limited after %d quota waits"
	apiStatusErrorTemplateConstant          = "operation %s returned status %d: %s"
	responseDecodingErrorTemplateConstant   = "operation %s response decoding failed: %v"
	notFoundErrorMessageConstant            = "requested resource does not exist"
)

// OperationName identifies an API operation for diagnostics.
type OperationName string

// ErrNotFound reports a 404 answer from the platform. Existence probes rely on
// it being an ordinary negative result rather than a failure.
var ErrNotFound = errors.New(notFoundErrorMessageConstant)

// IsNotFound reports whether the error represents a 404 answer.
func IsNotFound(candidateError error) bool {
	return errors.Is(candidateError, ErrNotFound)
}

// InvalidInputError indicates a session was constructed or invoked with unusable input.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input condition.
func (invalidInput *InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, invalidInput.FieldName, invalidInput.Message)
}

// AuthenticationError indicates the scope credential was rejected. It is fatal for the run.
type AuthenticationError struct {
	Organization string
	Operation    OperationName
	StatusCode   int
	Cause        error
}

// Error describes the failed authentication.
func (authenticationFailure *AuthenticationError) Error() string {
	return fmt.Sprintf(
		authenticationErrorTemplateConstant,
		authenticationFailure.Organization,
		authenticationFailure.Operation,
		authenticationFailure.StatusCode,
		authenticationFailure.Cause,
	)
}

// Unwrap exposes the underlying cause.
func (authenticationFailure *AuthenticationError) Unwrap() error {
	return authenticationFailure.Cause
}

// RetryExhaustedError indicates transient failures persisted beyond the retry ceiling.
type RetryExhaustedError struct {
	Operation OperationName
	Attempts  int
	Cause     error
}

// Error describes the exhausted retry budget.
func (retryExhausted *RetryExhaustedError) Error() string {
	return fmt.Sprintf(retryExhaustedErrorTemplateConstant, retryExhausted.Operation, retryExhausted.Attempts, retryExhausted.Cause)
}

// Unwrap exposes the underlying cause.
func (retryExhausted *RetryExhaustedError) Unwrap() error {
	return retryExhausted.Cause
}

// QuotaWaitExhaustedError indicates rate-limit waits kept recurring beyond the wait ceiling.
type QuotaWaitExhaustedError struct {
	Operation OperationName
	Waits     int
}

// Error describes the exhausted quota wait budget.
func (quotaExhausted *QuotaWaitExhaustedError) Error() string {
	return fmt.Sprintf(quotaWaitExhaustedErrorTemplateConstant, quotaExhausted.Operation, quotaExhausted.Waits)
}

// APIStatusError carries a non-retryable HTTP status answer for caller disposition.
type APIStatusError struct {
	Operation  OperationName
	StatusCode int
	Message    string
}

// Error describes the status answer.
func (statusFailure *APIStatusError) Error() string {
	return fmt.Sprintf(apiStatusErrorTemplateConstant, statusFailure.Operation, statusFailure.StatusCode, statusFailure.Message)
}

// IsConflict reports whether the error is an HTTP 409 answer, used by the
// create-then-update-on-conflict discipline.
func IsConflict(candidateError error) bool {
	statusFailure := &APIStatusError{}
	if errors.As(candidateError, &statusFailure) {
		return statusFailure.StatusCode == http.StatusConflict
	}
	return false
}

// ResponseDecodingError indicates a response payload could not be interpreted.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingFailure *ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingFailure.Operation, decodingFailure.Cause)
}

// Unwrap exposes the underlying cause.
func (decodingFailure *ResponseDecodingError) Unwrap() error {
	return decodingFailure.Cause
}
