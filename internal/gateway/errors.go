package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure. Callers branch on it; every gateway
// error carries exactly one kind.
type Kind int

// Failure kinds. KindNone is only returned by Classify for a nil error.
const (
	KindNone Kind = iota
	KindNotConfigured
	KindSchemaMissing
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotConfigured:
		return "not_configured"
	case KindSchemaMissing:
		return "schema_missing"
	case KindTransport:
		return "transport"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the only error type returned by Client operations.
type Error struct {
	Kind       Kind
	Op         string
	Collection Collection
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	msg := "gateway"
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Collection != "" {
		msg += " " + string(e.Collection)
	}
	msg += ": " + e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below, so errors.Is(err, ErrSchemaMissing)
// holds for any schema-missing error regardless of op or collection.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Collection == "" && t.Detail == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrNotConfigured = &Error{Kind: KindNotConfigured}
	ErrSchemaMissing = &Error{Kind: KindSchemaMissing}
	ErrTransport     = &Error{Kind: KindTransport}
)

// Classify returns the kind of err. Errors that did not come from the
// gateway are reported as transport failures.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindTransport
}

// SchemaMissing is returned by backends when the collection's table or the
// asset bucket does not exist.
func SchemaMissing(detail string, err error) *Error {
	return &Error{Kind: KindSchemaMissing, Detail: detail, Err: err}
}

// Transport is returned by backends for any other failure.
func Transport(detail string, err error) *Error {
	return &Error{Kind: KindTransport, Detail: detail, Err: err}
}

// annotate stamps op and collection onto err, classifying foreign errors
// as transport failures.
func annotate(op string, c Collection, err error) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		out := *ge
		out.Op, out.Collection = op, c
		return &out
	}
	return &Error{Kind: KindTransport, Op: op, Collection: c, Err: err}
}
