package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the transport layer can pick a status code
// without inspecting messages.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindUnauthorized     Kind = "unauthorized"
	KindUploadFailed     Kind = "upload_failed"
	KindInvalidAsset     Kind = "invalid_asset"
	KindStoreUnavailable Kind = "store_unavailable"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrValidation       = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrForbidden        = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrUploadFailed     = &Error{Kind: KindUploadFailed, Message: "upload failed"}
	ErrInvalidAsset     = &Error{Kind: KindInvalidAsset, Message: "invalid asset"}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable, Message: "store unavailable"}
)

type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field validation failures (field -> rule).
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func UploadFailed(err error) *Error {
	return &Error{Kind: KindUploadFailed, Message: "failed to store image", Err: err}
}

func InvalidAsset(msg string) *Error {
	return &Error{Kind: KindInvalidAsset, Message: msg}
}

func StoreUnavailable(err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: "report store unavailable", Err: err}
}

// KindOf returns the Kind of err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
