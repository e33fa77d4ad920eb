// Package apperr defines the recoverable failure kinds the realtime core
// surfaces to the transport. Every kind maps to a stable user-facing message;
// none of these should ever crash the process.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindNotMember         Kind = "not_member"
	KindAlreadyMember     Kind = "already_member"
	KindBlocked           Kind = "blocked"
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindEmptyName         Kind = "empty_name"
	KindNotEmpty          Kind = "not_empty"
	KindSelfRemoval       Kind = "self_removal"
	KindSelfBlock         Kind = "self_block"
	KindAllAlreadyMembers Kind = "all_already_members"
	KindPrivate           Kind = "private"
	KindFull              Kind = "full"
	KindUnknownMembers    Kind = "unknown_members"
	KindUnavailable       Kind = "unavailable"
)

// Error is a structured, recoverable failure carrying its kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// New builds an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or "" if err is not an apperr.Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an apperr.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Unavailable wraps a persistence or storage collaborator failure.
func Unavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: fmt.Sprintf("%s: %v", op, err)}
}
