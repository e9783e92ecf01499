// Package apierrors defines the closed set of typed errors every provider
// and engine in this module returns, matching the error taxonomy: Validation,
// NotFound, Conflict, DependentFailure, Internal. Each carries a
// service-specific code and an HTTP status a protocol adaptor would use,
// even though the adaptors themselves are out of scope here.
package apierrors

import (
	"errors"
	"fmt"
)

// ValidationError represents a malformed request, unknown action, or bad
// type — local to the adaptor or provider that detected it.
type ValidationError struct {
	Code    string // e.g. InvalidAction, InvalidParameterValue, ValidationException
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationError) HTTPStatus() int { return 400 }

// NewValidationError builds a ValidationError without a specific field.
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// NewFieldValidationError builds a ValidationError scoped to one field.
func NewFieldValidationError(code, message, field string) *ValidationError {
	return &ValidationError{Code: code, Message: message, Field: field}
}

// NotFoundError represents an unknown resource.
type NotFoundError struct {
	Service      string // e.g. "s3", "dynamodb", "sqs"
	ResourceType string // e.g. "bucket", "table", "queue"
	ResourceName string
	Code         string // e.g. NoSuchBucket, ResourceNotFoundException, TableNotFoundException
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %q not found", e.Code, e.ResourceType, e.ResourceName)
}

func (e *NotFoundError) HTTPStatus() int { return 404 }

// IsNotFound reports whether err is (or wraps) a *NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// NewNotFoundError builds a NotFoundError for the given service/type/name.
func NewNotFoundError(service, resourceType, resourceName, code string) *NotFoundError {
	return &NotFoundError{Service: service, ResourceType: resourceType, ResourceName: resourceName, Code: code}
}

// Per-service NotFoundError factories, mirroring the taxonomy spec §7
// names explicitly.
var (
	NewNoSuchBucketError = func(bucket string) *NotFoundError {
		return NewNotFoundError("s3", "bucket", bucket, "NoSuchBucket")
	}
	NewNoSuchKeyError = func(bucket, key string) *NotFoundError {
		return NewNotFoundError("s3", "object", bucket+"/"+key, "NoSuchKey")
	}
	NewTableNotFoundError = func(table string) *NotFoundError {
		return NewNotFoundError("dynamodb", "table", table, "TableNotFoundException")
	}
	NewResourceNotFoundError = func(service, name string) *NotFoundError {
		return NewNotFoundError(service, "resource", name, "ResourceNotFoundException")
	}
	NewQueueNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("sqs", "queue", name, "QueueDoesNotExist")
	}
	NewTopicNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("sns", "topic", name, "NotFoundException")
	}
	NewStateMachineNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("states", "state machine", name, "StateMachineDoesNotExist")
	}
	NewExecutionNotFoundError = func(arn string) *NotFoundError {
		return NewNotFoundError("states", "execution", arn, "ExecutionDoesNotExist")
	}
	NewFunctionNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("lambda", "function", name, "ResourceNotFoundException")
	}
	NewProviderNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("orchestrator", "provider", name, "ProviderNotFound")
	}
)

// ConflictError represents a duplicate create or a failed precondition.
type ConflictError struct {
	Code    string
	Message string
	// Status is 409 by default; some dialects use 400 for conflicts
	// (e.g. ResourceInUseException is modelled as HTTP 400 in the
	// typed-JSON dialect).
	Status int
}

func (e *ConflictError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func (e *ConflictError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return 409
}

// NewConflictError builds a ConflictError with the default 409 status.
func NewConflictError(code, message string) *ConflictError {
	return &ConflictError{Code: code, Message: message, Status: 409}
}

// NewConflictError400 builds a ConflictError reported as HTTP 400, for
// dialects (like DynamoDB's typed-JSON) that report conflicts that way.
func NewConflictError400(code, message string) *ConflictError {
	return &ConflictError{Code: code, Message: message, Status: 400}
}

// DependentFailureError represents a compute-handler error, a transaction
// conflict, or a choice with no match — a failure in a collaborator the
// core invoked, not in the request itself.
type DependentFailureError struct {
	Code  string
	Cause string
	Err   error
}

func (e *DependentFailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Cause, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Cause)
}

func (e *DependentFailureError) Unwrap() error { return e.Err }

func (e *DependentFailureError) HTTPStatus() int { return 500 }

// NewDependentFailureError wraps err as a DependentFailureError with the
// given taxonomy code and human cause.
func NewDependentFailureError(code, cause string, err error) *DependentFailureError {
	return &DependentFailureError{Code: code, Cause: cause, Err: err}
}

// InternalError represents a programmer error or I/O failure: logged at
// ERROR, surfaced generically.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return fmt.Sprintf("internal error: %v", e.Err) }

func (e *InternalError) Unwrap() error { return e.Err }

func (e *InternalError) HTTPStatus() int { return 500 }

// NewInternalError wraps err as an InternalError.
func NewInternalError(err error) *InternalError { return &InternalError{Err: err} }

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConflict reports whether err is (or wraps) a *ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsDependentFailure reports whether err is (or wraps) a
// *DependentFailureError.
func IsDependentFailure(err error) bool {
	var d *DependentFailureError
	return errors.As(err, &d)
}

// HTTPStatuser is implemented by every error type in this package; a
// protocol adaptor uses it to pick the response status without a type
// switch over every concrete type.
type HTTPStatuser interface {
	HTTPStatus() int
}

// StatusOf returns the HTTP status for err if it implements HTTPStatuser,
// defaulting to 500 for anything else (the Internal bucket of §7).
func StatusOf(err error) int {
	var s HTTPStatuser
	if errors.As(err, &s) {
		return s.HTTPStatus()
	}
	return 500
}
