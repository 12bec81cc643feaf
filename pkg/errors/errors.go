// Package errors provides custom error types for the specimap system.
// These errors separate rejections (validation, ambiguity) from failures
// (enrichment, repository) so callers can tally outcomes instead of aborting.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Join is errors.Join, re-exported so callers need a single errors import.
var Join = errors.Join

// As is errors.As.
var As = errors.As

// Common sentinel errors for the specimap system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrAmbiguous indicates that more than one candidate matched where one was expected
	ErrAmbiguous = errors.New("ambiguous")

	// ErrEnrichment indicates that an external source could not contribute data
	ErrEnrichment = errors.New("enrichment failed")

	// ErrRepository indicates that the backing store rejected a write
	ErrRepository = errors.New("repository error")

	// ErrSourceUnavailable indicates that an external source is temporarily unavailable
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited indicates that an external source rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure. Validation failures are
// rejections: they are never retried and no write is attempted.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// AmbiguityError represents a situation with no single authoritative answer,
// such as duplicate natural-key matches or an unresolved required region.
type AmbiguityError struct {
	Subject    string
	Candidates int
	Message    string
}

// Error implements the error interface
func (e *AmbiguityError) Error() string {
	if e.Candidates > 0 {
		return fmt.Sprintf("ambiguous %s (%d candidates): %s", e.Subject, e.Candidates, e.Message)
	}
	return fmt.Sprintf("ambiguous %s: %s", e.Subject, e.Message)
}

// Is implements errors.Is support
func (e *AmbiguityError) Is(target error) bool {
	return target == ErrAmbiguous
}

// NewAmbiguityError creates a new AmbiguityError
func NewAmbiguityError(subject string, candidates int, message string) *AmbiguityError {
	return &AmbiguityError{Subject: subject, Candidates: candidates, Message: message}
}

// EnrichmentError wraps a failure of a single enricher.
type EnrichmentError struct {
	Enricher string
	Err      error
}

// Error implements the error interface
func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enricher %s: %v", e.Enricher, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *EnrichmentError) Is(target error) bool {
	return target == ErrEnrichment
}

// RepositoryError represents a write rejected by the backing store.
// Soft errors (duplicates, no-ops) are logged as warnings and not
// propagated to the batch layer; hard errors surface as item failures.
type RepositoryError struct {
	Operation string // "create", "update", "find", "validate"
	ID        string
	Soft      bool
	Err       error
}

// Error implements the error interface
func (e *RepositoryError) Error() string {
	kind := "hard"
	if e.Soft {
		kind = "soft"
	}
	if e.ID != "" {
		return fmt.Sprintf("repository %s of %s failed (%s): %v", e.Operation, e.ID, kind, e.Err)
	}
	return fmt.Sprintf("repository %s failed (%s): %v", e.Operation, kind, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RepositoryError) Is(target error) bool {
	return target == ErrRepository
}

// NewRepositoryError creates a new RepositoryError
func NewRepositoryError(operation, id string, soft bool, err error) *RepositoryError {
	return &RepositoryError{Operation: operation, ID: id, Soft: soft, Err: err}
}

// APIError represents an error from an external source API
type APIError struct {
	Source     string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrSourceUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(source string, statusCode int, message string) *APIError {
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", ...
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "lock"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// TimeoutError represents an operation timeout
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Duration != "" {
		return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
	}
	return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
		Message:   message,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsAmbiguous checks if an error is an ambiguity error
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguous)
}

// IsRejection reports whether err is a rejection rather than a failure.
func IsRejection(err error) bool {
	return IsValidationError(err) || IsAmbiguous(err)
}

// IsSoftRepositoryError reports whether err is a repository error the
// store classified as soft.
func IsSoftRepositoryError(err error) bool {
	var repoErr *RepositoryError
	return errors.As(err, &repoErr) && repoErr.Soft
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(source string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}

// WrapEnrichment wraps an error as an EnrichmentError
func WrapEnrichment(enricher string, err error) error {
	if err == nil {
		return nil
	}
	return &EnrichmentError{Enricher: enricher, Err: err}
}
