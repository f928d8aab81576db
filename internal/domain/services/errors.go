package services

import (
	"errors"
	"fmt"

	"github.com/archivus/sitedocs/internal/domain/repositories"
)

// ErrorKind classifies failures for callers and the HTTP layer
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindAuth           ErrorKind = "auth"
	KindStorage        ErrorKind = "storage"
	KindPersistence    ErrorKind = "persistence"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindPartialFailure ErrorKind = "partial_failure"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrVersionNotFound   = errors.New("document version not found")
	ErrApprovalNotFound  = errors.New("approval not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrShareNotFound     = errors.New("share not found")
	ErrNotProjectMember  = errors.New("caller is not a member of the project")
	ErrUnauthenticated   = errors.New("no authenticated caller")
	ErrForbidden         = errors.New("caller may not perform this action")
	ErrEmptyFile         = errors.New("file is empty")
	ErrMissingProject    = errors.New("project id is required")
	ErrFileTooLarge      = errors.New("file exceeds maximum size limit")
	ErrDocumentLocked    = errors.New("document is locked by another user")
	ErrAlreadySuperseded = errors.New("document has already been superseded")
	ErrNotHead           = errors.New("only the head of a document lineage can be deleted")
	ErrNumberInUse       = errors.New("document number belongs to a document the caller cannot see")
	ErrApprovalResolved  = errors.New("approval has already been resolved")
	ErrApprovalMismatch  = errors.New("approval does not belong to document")
	ErrInvalidLineage    = errors.New("document lineage is inconsistent")
)

// Error is the failure value every public operation returns
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
	// Steps is set for partial failures of multi-step operations
	Steps []StepRecord
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or persistence for unclassified errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// MessageOf returns the user-facing message for err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "operation failed"
}

func newError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func validationError(op string, err error) error {
	return newError(KindValidation, op, err.Error(), err)
}

func storageError(op string, err error) error {
	return newError(KindStorage, op, "file storage failed", err)
}

func authError(op string, err error) error {
	return newError(KindAuth, op, err.Error(), err)
}

func conflictError(op string, err error) error {
	return newError(KindConflict, op, err.Error(), err)
}

// persistenceError maps repository errors: not-found lookups become sentinel
// NotFound errors, everything else is a persistence failure.
func persistenceError(op string, err error, notFound error) error {
	if notFound != nil && errors.Is(err, repositories.ErrNotFound) {
		return newError(KindNotFound, op, notFound.Error(), notFound)
	}
	if errors.Is(err, repositories.ErrConflict) {
		return newError(KindConflict, op, "record changed concurrently", err)
	}
	return newError(KindPersistence, op, "database operation failed", err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, repositories.ErrConflict)
}
