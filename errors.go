package tinypg

import (
	"fmt"

	"github.com/tinypg/tinypg/internal/protocol"
)

// Error is the root of the driver's error hierarchy.
type Error struct {
	Message string
	Code    string // SQLSTATE, empty when not applicable
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s:%s", e.Code, e.Message)
	}
	return e.Message
}

// baseError lets the types below embed Error under a field name other
// than "Error", so the embedded field does not shadow the Error() method.
type baseError = Error

// Warning is defined for API compatibility; this driver never raises one
// internally.
type Warning struct{ baseError }

// InterfaceError reports a misuse of the driver API itself, as opposed to
// a database-reported condition.
type InterfaceError struct{ baseError }

// DatabaseError is the parent of every error the server reports.
type DatabaseError struct{ baseError }

// InternalError indicates a server-side internal inconsistency.
type InternalError struct{ DatabaseError }

// OperationalError indicates a failure in the operating environment:
// connection loss, timeout, resource exhaustion.
type OperationalError struct{ DatabaseError }

// ProgrammingError indicates a malformed statement or API misuse that the
// server caught: syntax errors, wrong number of parameters, undefined
// tables.
type ProgrammingError struct{ DatabaseError }

// IntegrityError indicates a constraint violation.
type IntegrityError struct{ DatabaseError }

// DataError indicates a problem with the processed data: out-of-range
// values, division by zero, invalid casts.
type DataError struct{ DatabaseError }

// NotSupportedError indicates a method or feature this driver does not
// implement: callproc, nextset, extended query protocol.
type NotSupportedError struct{ DatabaseError }

func newDatabaseError(message, code string) error {
	base := DatabaseError{Error{Message: message, Code: code}}
	switch protocol.ClassifySQLState(code) {
	case protocol.KindNotSupported:
		return &NotSupportedError{base}
	case protocol.KindProgramming:
		return &ProgrammingError{base}
	case protocol.KindData:
		return &DataError{base}
	case protocol.KindIntegrity:
		return &IntegrityError{base}
	case protocol.KindInternal:
		return &InternalError{base}
	case protocol.KindOperational:
		return &OperationalError{base}
	default:
		return &base
	}
}

func errLostConnection() error {
	return &OperationalError{DatabaseError{Error{Message: "Lost connection", Code: "08003"}}}
}

func errCursorClosed() error {
	return &ProgrammingError{DatabaseError{Error{Message: "cursor is closed", Code: "08003"}}}
}

func errConnectionClosed() error {
	return &ProgrammingError{DatabaseError{Error{Message: "connection is closed", Code: "08003"}}}
}

func errParamCountMismatch(want, got int) error {
	return &ProgrammingError{DatabaseError{Error{
		Message: fmt.Sprintf("expected %d parameters, got %d", want, got),
	}}}
}

func errNotSupported(op string) error {
	return &NotSupportedError{DatabaseError{Error{Message: op + " is not supported"}}}
}

func serverError(fields protocol.ErrorFields) error {
	return newDatabaseError(fields.Message(), fields.SQLState())
}
