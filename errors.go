package kozo

import (
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/edwinsyarief/kozo/internal/dsl"
	"github.com/edwinsyarief/kozo/internal/engine"
)

var (
	// ErrRegistration matches every *RegistrationError.
	ErrRegistration = errors.New("kozo: component registration failed")
	// ErrAmbiguousIdentity is reported when two distinct Go types map to the
	// same symbol in one world, or a short name matches several components.
	ErrAmbiguousIdentity = errors.New("kozo: ambiguous component identity")
	// ErrTagDataMismatch is reported when a zero-sized type meets a component
	// carrying data, or the other way around.
	ErrTagDataMismatch = errors.New("kozo: tag/data mismatch")
	// ErrLayoutMismatch is reported when a symbol is already registered with a
	// different size or alignment.
	ErrLayoutMismatch = errors.New("kozo: layout mismatch")
	// ErrInvalidID is reported when the engine hands back an unusable id.
	ErrInvalidID = errors.New("kozo: invalid component id")
	// ErrUnsupportedType is reported for pointer and interface components.
	ErrUnsupportedType = errors.New("kozo: unsupported component type")
	// ErrUnknownName is reported when a name does not resolve to a component.
	ErrUnknownName = errors.New("kozo: unknown name")

	// ErrBuild matches every *BuildError.
	ErrBuild = errors.New("kozo: query build failed")
	// ErrSyntax is the cause of a *BuildError for a malformed DSL expression.
	ErrSyntax = dsl.ErrSyntax

	// ErrNotAlive is returned by entity operations on deleted entities.
	ErrNotAlive = engine.ErrNotAlive
	// ErrWorldFinished is returned by operations on a world after Fini.
	ErrWorldFinished = engine.ErrWorldFinished
)

// RegistrationError reports why a Go type or name could not be mapped to a
// component id. Kind is one of the Err* sentinels above.
type RegistrationError struct {
	Type   reflect.Type
	Symbol string
	Kind   error
	Detail string
}

func (e *RegistrationError) Error() string {
	subject := e.Symbol
	if e.Type != nil {
		subject = e.Type.String()
	}
	if e.Detail == "" {
		return fmt.Sprintf("%v: %s", e.Kind, subject)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, subject, e.Detail)
}

func (e *RegistrationError) Unwrap() error { return e.Kind }

func (e *RegistrationError) Is(target error) bool {
	return target == ErrRegistration
}

func registrationError(t reflect.Type, symbol string, kind error, format string, args ...any) error {
	return &RegistrationError{Type: t, Symbol: symbol, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// BuildError reports why a query could not be built. Term is the index of
// the offending term, or -1 when the problem is not tied to a single term.
type BuildError struct {
	Term  int
	Expr  string
	Msg   string
	Cause error
}

func (e *BuildError) Error() string {
	msg := "kozo: query build failed"
	if e.Term >= 0 {
		msg += fmt.Sprintf(": term %d", e.Term)
	}
	if e.Expr != "" {
		msg += fmt.Sprintf(" in %q", e.Expr)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Cause }

func (e *BuildError) Is(target error) bool {
	return target == ErrBuild
}

// BindingMismatch is the panic value raised when a field is requested with a
// type or access the query term cannot provide.
type BindingMismatch struct {
	Term   int
	Want   reflect.Type
	Have   string
	Reason string
}

func (e *BindingMismatch) Error() string {
	return fmt.Sprintf("ecs: field %d bound as %v, term provides %s: %s", e.Term, e.Want, e.Have, e.Reason)
}
