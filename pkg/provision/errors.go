package provision

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a provisioning error for callers and metrics.
type ErrorCode string

const (
	// Validation errors: synchronous, cheap, produce no side effects.

	// CodeUnsupportedEngine indicates the requested engine kind is not in
	// the permitted set.
	CodeUnsupportedEngine ErrorCode = "UNSUPPORTED_ENGINE"

	// CodeQuotaExceeded indicates the owner already holds the plan's
	// maximum number of active instances for this engine.
	CodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"

	// CodeUserNotFound indicates the owner does not exist.
	CodeUserNotFound ErrorCode = "USER_NOT_FOUND"

	// CodeForbidden indicates the caller does not own the target instance.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// CodeNotFound indicates the target instance does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidIdentifier indicates identifier sanitization produced an
	// empty result.
	CodeInvalidIdentifier ErrorCode = "INVALID_IDENTIFIER"

	// External-protocol errors: recorded in the audit trail and terminal
	// for the enclosing call.

	// CodeProvisioningFailed indicates the engine adapter's Create failed.
	CodeProvisioningFailed ErrorCode = "PROVISIONING_FAILED"

	// CodeDestructionFailed indicates the engine adapter's Destroy failed.
	// The local instance row is preserved.
	CodeDestructionFailed ErrorCode = "DESTRUCTION_FAILED"

	// CodeInternal indicates a store or other internal failure.
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ProvisionError is a classified orchestrator error carrying the engine
// identity and underlying cause where applicable.
type ProvisionError struct {
	// Code is the error classification.
	Code ErrorCode `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Engine is the engine kind involved, if applicable.
	Engine EngineKind `json:"engine,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ProvisionError) Error() string {
	switch {
	case e.Engine != "" && e.Err != nil:
		return fmt.Sprintf("[%s] %s (engine=%s): %v", e.Code, e.Message, e.Engine, e.Err)
	case e.Engine != "":
		return fmt.Sprintf("[%s] %s (engine=%s)", e.Code, e.Message, e.Engine)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// Is implements error equality for errors.Is: two ProvisionErrors match
// when their codes match.
func (e *ProvisionError) Is(target error) bool {
	t, ok := target.(*ProvisionError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewUnsupportedEngine creates an UnsupportedEngine validation error.
func NewUnsupportedEngine(engine string) *ProvisionError {
	return &ProvisionError{
		Code:    CodeUnsupportedEngine,
		Message: fmt.Sprintf("engine not permitted: %s", engine),
		Engine:  EngineKind(engine),
	}
}

// NewQuotaExceeded creates a QuotaExceeded validation error.
func NewQuotaExceeded(engine EngineKind, plan string, limit int) *ProvisionError {
	return &ProvisionError{
		Code:    CodeQuotaExceeded,
		Message: fmt.Sprintf("plan %s allows at most %d %s instances", plan, limit, engine),
		Engine:  engine,
	}
}

// NewUserNotFound creates a UserNotFound validation error.
func NewUserNotFound(ownerID int64) *ProvisionError {
	return &ProvisionError{
		Code:    CodeUserNotFound,
		Message: fmt.Sprintf("user %d not found", ownerID),
	}
}

// NewForbidden creates a Forbidden validation error.
func NewForbidden(instanceID string) *ProvisionError {
	return &ProvisionError{
		Code:    CodeForbidden,
		Message: fmt.Sprintf("instance %s is not owned by the caller", instanceID),
	}
}

// NewNotFound creates a NotFound validation error.
func NewNotFound(instanceID string) *ProvisionError {
	return &ProvisionError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("instance %s not found", instanceID),
	}
}

// NewInvalidIdentifier creates an InvalidIdentifier error.
func NewInvalidIdentifier(msg string) *ProvisionError {
	return &ProvisionError{
		Code:    CodeInvalidIdentifier,
		Message: msg,
	}
}

// NewProvisioningError wraps an adapter Create failure with engine identity.
func NewProvisioningError(engine EngineKind, err error) *ProvisionError {
	return &ProvisionError{
		Code:    CodeProvisioningFailed,
		Message: "provisioning failed",
		Engine:  engine,
		Err:     err,
	}
}

// NewDestructionError wraps an adapter Destroy failure with engine identity.
func NewDestructionError(engine EngineKind, err error) *ProvisionError {
	return &ProvisionError{
		Code:    CodeDestructionFailed,
		Message: "destruction failed",
		Engine:  engine,
		Err:     err,
	}
}

// NewInternalError wraps a store or other internal failure.
func NewInternalError(msg string, err error) *ProvisionError {
	return &ProvisionError{
		Code:    CodeInternal,
		Message: msg,
		Err:     err,
	}
}

// CodeOf extracts the error code from an error chain, or CodeInternal if
// the error is not a ProvisionError.
func CodeOf(err error) ErrorCode {
	var e *ProvisionError
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsValidation returns true if the error is one of the synchronous
// validation failures that produce no side effects.
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case CodeUnsupportedEngine, CodeQuotaExceeded, CodeUserNotFound,
		CodeForbidden, CodeNotFound, CodeInvalidIdentifier:
		return true
	default:
		return false
	}
}
