package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

type handlerBox struct {
	h ErrorHandler
}

var current atomic.Pointer[handlerBox]

func init() {
	SetHandler(nil)
}

// SetHandler installs the handler that receives reported errors and panics.
// nil restores a LogHandler on the global zerolog logger.
func SetHandler(h ErrorHandler) {
	if h == nil {
		h = &LogHandler{}
	}
	current.Store(&handlerBox{h: h})
}

// Handler returns the installed handler.
func Handler() ErrorHandler {
	return current.Load().h
}

// Report stamps err with the current time when unset and hands it to the
// installed handler.
func Report(err *MountError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandleError(err)
}

// ReportPanic hands a recovered panic to the installed handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	Handler().HandlePanic(err)
}

// Recover converts a panic into a *MountError of kind KindPanic stored in
// *out, reporting it first. A panic whose value is already an error is kept
// as the cause so errors.Is still matches it.
// Usage: defer errors.Recover("mount.Mounter.Mount", &err)
func Recover(op string, out *error) {
	r := recover()
	if r == nil {
		return
	}
	now := time.Now()
	stack := CaptureStack()
	ReportPanic(&PanicError{Op: op, Value: r, StackTrace: stack, Timestamp: now})
	if out == nil {
		return
	}
	cause, ok := r.(error)
	if !ok {
		cause = &PanicError{Op: op, Value: r, Timestamp: now}
	}
	*out = &MountError{Op: op, Kind: KindPanic, Err: cause, StackTrace: stack, Timestamp: now}
}

// CaptureStack returns the call stack of its caller's caller, one
// "function\n\tfile:line" entry per frame.
func CaptureStack() string {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for more := true; more; {
		var frame runtime.Frame
		frame, more = frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
	}
	return sb.String()
}
