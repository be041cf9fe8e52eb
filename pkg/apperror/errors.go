// Package apperror provides a structured way to handle application errors
// with specific codes, severity levels, and additional details, and maps
// them to process exit codes.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific application error code.
type ErrorCode string

const (
	// Input
	CodeMalformedInput   ErrorCode = "MALFORMED_INPUT"
	CodeUnknownNode      ErrorCode = "UNKNOWN_NODE"
	CodeDuplicateNode    ErrorCode = "DUPLICATE_NODE"
	CodeDuplicateLink    ErrorCode = "DUPLICATE_LINK"
	CodeNegativeCapacity ErrorCode = "NEGATIVE_CAPACITY"
	CodeNegativeCost     ErrorCode = "NEGATIVE_COST"
	CodeInvalidSource    ErrorCode = "INVALID_SOURCE"
	CodeInvalidSink      ErrorCode = "INVALID_SINK"
	CodeSourceEqualsSink ErrorCode = "SOURCE_EQUALS_SINK"
	CodeSelfLoop         ErrorCode = "SELF_LOOP"

	// Solving
	CodeEncodingConsistency ErrorCode = "ENCODING_CONSISTENCY"
	CodeUnsolvableInstance  ErrorCode = "UNSOLVABLE_INSTANCE"
	CodeOracleInconclusive  ErrorCode = "ORACLE_INCONCLUSIVE"
	CodeVerificationFailed  ErrorCode = "VERIFICATION_FAILED"

	// General
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeConfigInvalid   ErrorCode = "CONFIG_INVALID"
	CodeUnavailable     ErrorCode = "UNAVAILABLE"
)

// Severity defines the criticality level of an error.
type Severity int

const (
	// SeverityWarning indicates a non-critical issue that does not stop a solve.
	SeverityWarning Severity = iota
	// SeverityError indicates a standard error that requires attention.
	SeverityError
	// SeverityCritical indicates a defect in the program rather than in its input.
	SeverityCritical
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Error is a custom error type that includes an ErrorCode, message,
// an optional field, additional details, an underlying cause, and a severity level.
type Error struct {
	Code     ErrorCode      // Code is a unique identifier for the type of error.
	Message  string         // Message is a human-readable description of the error.
	Field    string         // Field indicates which input field caused the error, if applicable.
	Details  map[string]any // Details carries the ids and values needed to reproduce the error.
	Cause    error          // Cause is the underlying error that triggered this application error.
	Severity Severity       // Severity indicates the criticality level of the error.
}

// Error implements the error interface, returning a string representation of the error.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Field != "" {
		fmt.Fprintf(&b, " (field: %s)", e.Field)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the wrapped error, allowing for error chain introspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new application error with the given code and message.
// The default severity is SeverityError.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// Wrap creates a new application error that wraps an existing error,
// providing additional context with a code and message.
func Wrap(cause error, code ErrorCode, message string) *Error {
	err := New(code, message)
	err.Cause = cause
	return err
}

// WithDetails adds a key-value pair to the error's details map and returns the modified error.
func (e *Error) WithDetails(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithField sets the field associated with the error and returns the modified error.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithSeverity sets the severity level of the error and returns the modified error.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// Constructors for the solver error taxonomy.

// Malformed reports invalid topology or an invalid service request.
func Malformed(message string) *Error {
	return New(CodeMalformedInput, message)
}

// Inconsistent reports a violated bookkeeping invariant inside the encoder.
func Inconsistent(message string) *Error {
	return New(CodeEncodingConsistency, message).WithSeverity(SeverityCritical)
}

// Unsolvable reports that no budget in the search interval was satisfiable.
func Unsolvable(message string) *Error {
	return New(CodeUnsolvableInstance, message)
}

// Inconclusive reports an oracle call that ended without a verdict.
func Inconclusive(cause error, message string) *Error {
	return Wrap(cause, CodeOracleInconclusive, message)
}

// Is checks if the given error is an application error with a matching ErrorCode.
// It uses errors.As to unwrap the error chain.
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code extracts the ErrorCode from an error. If the error is not an *Error,
// it returns CodeInternal.
func Code(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// DetailsOf returns the details of the first *Error in the chain, or nil.
func DetailsOf(err error) map[string]any {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

// ExitCode maps an error to the process exit status used by the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Code(err) {
	case CodeMalformedInput, CodeUnknownNode, CodeDuplicateNode, CodeDuplicateLink,
		CodeNegativeCapacity, CodeNegativeCost, CodeInvalidSource, CodeInvalidSink,
		CodeSourceEqualsSink, CodeInvalidArgument, CodeConfigInvalid:
		return 2
	case CodeEncodingConsistency:
		return 3
	case CodeUnsolvableInstance:
		return 4
	case CodeOracleInconclusive:
		return 5
	case CodeVerificationFailed:
		return 6
	default:
		return 1
	}
}

// IsCritical checks if the given error is an application error with SeverityCritical.
func IsCritical(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// ValidationErrors is a collection of application errors and warnings,
// typically used for aggregating results of multiple validation checks.
type ValidationErrors struct {
	Errors   []*Error // Errors contains all collected errors (SeverityError and SeverityCritical).
	Warnings []*Error // Warnings contains all collected warnings (SeverityWarning).
}

// NewValidationErrors creates and returns a new empty ValidationErrors collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors:   make([]*Error, 0),
		Warnings: make([]*Error, 0),
	}
}

// Add appends an *Error to the appropriate slice (Errors or Warnings)
// based on its Severity.
func (v *ValidationErrors) Add(err *Error) {
	if err.Severity == SeverityWarning {
		v.Warnings = append(v.Warnings, err)
	} else {
		v.Errors = append(v.Errors, err)
	}
}

// AddWarning creates and adds a new application error with SeverityWarning.
func (v *ValidationErrors) AddWarning(code ErrorCode, message string) *Error {
	warn := New(code, message).WithSeverity(SeverityWarning)
	v.Warnings = append(v.Warnings, warn)
	return warn
}

// AddErrorWithField creates and adds a new application error with a specific field.
func (v *ValidationErrors) AddErrorWithField(code ErrorCode, message, field string) *Error {
	err := New(code, message).WithField(field)
	v.Errors = append(v.Errors, err)
	return err
}

// HasErrors returns true if the collection contains any errors (non-warning severity).
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// ErrorMessages returns a slice of string messages for all collected errors.
func (v *ValidationErrors) ErrorMessages() []string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Error()
	}
	return messages
}

// WarningMessages returns a slice of string messages for all collected warnings.
func (v *ValidationErrors) WarningMessages() []string {
	messages := make([]string, len(v.Warnings))
	for i, warn := range v.Warnings {
		messages[i] = warn.Message
	}
	return messages
}

// Err folds the collected errors into a single *Error with the given code.
// The first error provides the message; every error is listed under
// the "violations" detail. It returns nil when there are no errors.
func (v *ValidationErrors) Err(code ErrorCode) *Error {
	if !v.HasErrors() {
		return nil
	}
	first := v.Errors[0]
	err := New(code, first.Message).WithField(first.Field)
	for k, val := range first.Details {
		err.WithDetails(k, val)
	}
	err.WithDetails("violations", v.ErrorMessages())
	if len(v.Errors) > 1 {
		err.Message = fmt.Sprintf("%s (and %d more)", first.Message, len(v.Errors)-1)
	}
	return err
}
