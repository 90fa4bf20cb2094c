package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable error code surfaced to clients.
type Kind string

const (
	KindValidationFailed     Kind = "VALIDATION_FAILED"
	KindInvalidFilename      Kind = "INVALID_FILENAME"
	KindInvalidExtension     Kind = "INVALID_EXTENSION"
	KindFileTooLarge         Kind = "FILE_TOO_LARGE"
	KindInvalidChunkIndex    Kind = "INVALID_CHUNK_INDEX"
	KindChunkAlreadyUploaded Kind = "CHUNK_ALREADY_UPLOADED"
	KindChunkHashMismatch    Kind = "CHUNK_HASH_MISMATCH"
	KindIncompleteUpload     Kind = "INCOMPLETE_UPLOAD"
	KindIntegrityCheckFailed Kind = "INTEGRITY_CHECK_FAILED"
	KindSessionExpired       Kind = "SESSION_EXPIRED"
	KindInvalidState         Kind = "INVALID_STATE"
	KindNotFound             Kind = "NOT_FOUND"
	KindForbidden            Kind = "FORBIDDEN"
	KindStorageFailure       Kind = "STORAGE_FAILURE"
	KindInternal             Kind = "INTERNAL"
)

// Error carries a client-facing kind and message plus optional detail
// strings (individual violated constraints for validation failures).
type Error struct {
	Kind    Kind
	Message string
	Details []string

	cause error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) WithDetails(details ...string) *Error {
	e.Details = append(e.Details, details...)
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches on Kind so callers can compare against sentinel values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind from err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Sentinels for errors.Is comparisons.
var (
	ErrSessionNotFound = New(KindNotFound, "upload session not found")
	ErrFileNotFound    = New(KindNotFound, "file not found")
	ErrForbidden       = New(KindForbidden, "caller does not own this resource")
)

// HTTPStatus maps an error kind to the transport status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidationFailed, KindInvalidFilename, KindInvalidExtension,
		KindFileTooLarge, KindInvalidChunkIndex, KindIncompleteUpload:
		return http.StatusBadRequest
	case KindChunkAlreadyUploaded, KindInvalidState:
		return http.StatusConflict
	case KindChunkHashMismatch, KindIntegrityCheckFailed:
		return http.StatusUnprocessableEntity
	case KindSessionExpired:
		return http.StatusGone
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
