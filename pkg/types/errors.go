package types

import (
	"errors"
	"fmt"
	"strings"
)

// Backend lifecycle errors.
var (
	ErrBackendDetached = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
)

// Entity operation errors.
var (
	ErrNotFound       = errors.New("entity not found")
	ErrInvalidID      = errors.New("invalid entity ID")
	ErrInvalidCounter = errors.New("invalid analytics counter")
	ErrValidation     = errors.New("validation failed")
	ErrTerminal       = errors.New("backend operation failed")
)

// Media errors.
var (
	ErrUploadExhausted = errors.New("media upload exhausted all targets")
	ErrBucketNotFound  = errors.New("bucket not found")
	ErrObjectRejected  = errors.New("object rejected by bucket policy")
)

// CodeSchemaCacheStale is the backend code reported while the backend's
// schema cache lags behind a migration.
const CodeSchemaCacheStale = "PGRST204"

// BackendError is an error reported by a reachable backend.
type BackendError struct {
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSchemaCacheStale reports whether err is a backend error caused by a
// stale schema cache.
func IsSchemaCacheStale(err error) bool {
	var be *BackendError
	if !errors.As(err, &be) {
		return false
	}
	return be.Code == CodeSchemaCacheStale ||
		strings.Contains(strings.ToLower(be.Message), "schema cache")
}

// ValidationError reports input rejected before any backend call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TerminalError reports a backend failure that was not retried, or that
// persisted after the last retry.
type TerminalError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TerminalError) Error() string {
	msg := e.Err.Error()
	var be *BackendError
	if errors.As(e.Err, &be) {
		msg = be.Message
	}
	if e.Attempts > 1 {
		return fmt.Sprintf("%s failed after %d attempts: %s", e.Op, e.Attempts, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

// Is matches ErrTerminal.
func (e *TerminalError) Is(target error) bool {
	return target == ErrTerminal
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// UploadAttempt records one failed upload target.
type UploadAttempt struct {
	Target string
	Err    error
}

// MediaUploadExhaustedError reports that every upload target failed for a
// single file and the file was too large to inline.
type MediaUploadExhaustedError struct {
	Name     string
	Size     int
	Ceiling  int
	Attempts []UploadAttempt
}

func (e *MediaUploadExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Target, a.Err))
	}
	return fmt.Sprintf("upload %s (%d bytes) exhausted, inline ceiling %d bytes [%s]",
		e.Name, e.Size, e.Ceiling, strings.Join(parts, "; "))
}

// Is matches ErrUploadExhausted.
func (e *MediaUploadExhaustedError) Is(target error) bool {
	return target == ErrUploadExhausted
}

// FileError ties a failure to the position of the file in a batch.
type FileError struct {
	Index int
	Name  string
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// UploadBatchError reports the files of a batch that could not be stored.
type UploadBatchError struct {
	Uploaded int
	Failures []*FileError
}

func (e *UploadBatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%d of %d files failed: %s",
		len(e.Failures), e.Uploaded+len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the per-file errors to errors.Is and errors.As.
func (e *UploadBatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
