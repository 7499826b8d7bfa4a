// Package errors provides structured error handling for mount sessions.
//
// Errors raised by the mount reference layer are programmer errors: a
// duplicate acquisition, a release without a matching acquisition, an
// unrecognized transition variant. They are never reconciled silently. Each
// is returned as a *MountError so the mount-pass driver can abort the pass
// and report it through the configured ErrorHandler.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindInvalidState indicates broken reference accounting.
	KindInvalidState
	// KindUnhandledVariant indicates a tree walk met a node type it does not know.
	KindUnhandledVariant
	// KindNilInput indicates a nil value where one is not permitted.
	KindNilInput
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindConfig indicates an invalid configuration or scenario.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidState:
		return "invalid-state"
	case KindUnhandledVariant:
		return "unhandled-variant"
	case KindNilInput:
		return "nil-input"
	case KindPanic:
		return "panic"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Sentinel causes wrapped by MountError. Match them with errors.Is.
var (
	ErrDuplicateAcquire      = errors.New("cannot acquire the same reference more than once")
	ErrReleaseWithoutAcquire = errors.New("trying to release a reference that wasn't acquired")
	ErrStateReleased         = errors.New("extension state already released all references")
	ErrRefUnderflow          = errors.New("mount reference count would drop below zero")
	ErrUnhandledTransition   = errors.New("unhandled transition type")
	ErrNilTransition         = errors.New("adding nil to transition list is not allowed")
)

// MountError represents a structured error raised during a mount session.
type MountError struct {
	// Op is the operation that failed (e.g., "mount.AcquireMountReference").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// ID is the render unit id involved, if any.
	ID int64
	// HasID reports whether ID is meaningful.
	HasID bool
	// Session is the mount session id, if known.
	Session string
	// Extension is the name of the extension involved, if any.
	Extension string
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *MountError) Error() string {
	msg := fmt.Sprintf("%s [%s]", e.Op, e.Kind)
	if e.Session != "" {
		msg += " session=" + e.Session
	}
	if e.Extension != "" {
		msg += " extension=" + e.Extension
	}
	if e.HasID {
		msg += fmt.Sprintf(" id=%d", e.ID)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *MountError) Unwrap() error {
	return e.Err
}

// InvalidState builds a KindInvalidState error for the given render unit id.
func InvalidState(op string, id int64, cause error) *MountError {
	return &MountError{
		Op:        op,
		Kind:      KindInvalidState,
		ID:        id,
		HasID:     true,
		Err:       cause,
		Timestamp: time.Now(),
	}
}

// IsKind reports whether err is a *MountError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	if me, ok := AsMountError(err); ok {
		return me.Kind == kind
	}
	return false
}

// AsMountError finds the first *MountError in err's chain.
func AsMountError(err error) (*MountError, bool) {
	var me *MountError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "mount.Mounter.Mount").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors reported during mount sessions.
type ErrorHandler interface {
	// HandleError is called when a mount operation fails.
	HandleError(err *MountError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
