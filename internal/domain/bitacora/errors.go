package bitacora

import (
	"errors"
	"fmt"
)

// Kind classifies a facade error for the HTTP boundary.
type Kind int

const (
	// KindInput marks missing/unparseable fields or an unresolvable patient;
	// detected before any write.
	KindInput Kind = iota
	// KindNotFound covers both a missing entry and an entry the caller does
	// not own; the two are indistinguishable on purpose.
	KindNotFound
	// KindPermission marks an insufficient role, detected before storage.
	KindPermission
	// KindStorage marks a transient storage failure; writes roll back, the
	// client sees a generic message.
	KindStorage
)

// Error is the facade's error type. Msg is safe to show the client; Err
// holds the internal cause for logging only.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func inputErr(format string, args ...interface{}) error {
	return &Error{Kind: KindInput, Msg: fmt.Sprintf(format, args...)}
}

func notFoundErr() error {
	return &Error{Kind: KindNotFound, Msg: "registro no encontrado"}
}

func storageErr(err error) error {
	return &Error{Kind: KindStorage, Msg: "error al procesar la solicitud", Err: err}
}

// KindOf extracts the Kind from err; storage is the conservative default
// for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// ClientMessage returns the user-facing message for err, never leaking
// internal error text.
func ClientMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "error al procesar la solicitud"
}
