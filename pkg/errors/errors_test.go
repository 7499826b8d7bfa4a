package errors

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHandler struct {
	onError func(*MountError)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *MountError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}

func TestMountErrorString(t *testing.T) {
	err := &MountError{
		Op:        "mount.AcquireMountReference",
		Kind:      KindInvalidState,
		ID:        42,
		HasID:     true,
		Session:   "abc",
		Extension: "incremental",
		Err:       ErrDuplicateAcquire,
	}
	got := err.Error()
	assert.Contains(t, got, "mount.AcquireMountReference [invalid-state]")
	assert.Contains(t, got, "session=abc")
	assert.Contains(t, got, "extension=incremental")
	assert.Contains(t, got, "id=42")
	assert.Contains(t, got, ErrDuplicateAcquire.Error())
}

func TestMountErrorWithoutID(t *testing.T) {
	err := &MountError{Op: "transitions.AddTransitions", Kind: KindNilInput, Err: ErrNilTransition}
	assert.NotContains(t, err.Error(), "id=")
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindInvalidState, "invalid-state"},
		{KindUnhandledVariant, "unhandled-variant"},
		{KindNilInput, "nil-input"},
		{KindPanic, "panic"},
		{KindConfig, "config"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String(), "ErrorKind(%d)", tt.kind)
	}
}

func TestInvalidStateUnwraps(t *testing.T) {
	err := fmt.Errorf("pass 3: %w", InvalidState("op", 7, ErrReleaseWithoutAcquire))
	assert.True(t, errors.Is(err, ErrReleaseWithoutAcquire))
	assert.True(t, IsKind(err, KindInvalidState))
	assert.False(t, IsKind(err, KindPanic))
	assert.False(t, IsKind(errors.New("plain"), KindInvalidState))
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "boom", Timestamp: time.Now()}
	assert.Equal(t, "panic: boom", err.Error())

	err.Op = "mount.Mounter.Mount"
	assert.Equal(t, "panic in mount.Mounter.Mount: boom", err.Error())
}

func TestReport(t *testing.T) {
	var captured *MountError
	SetHandler(&testHandler{onError: func(err *MountError) { captured = err }})
	defer SetHandler(nil)

	Report(&MountError{Op: "test.op", Kind: KindConfig, Err: errors.New("bad")})

	require.NotNil(t, captured)
	assert.Equal(t, "test.op", captured.Op)
	assert.False(t, captured.Timestamp.IsZero())
}

func TestReportNil(t *testing.T) {
	called := false
	SetHandler(&testHandler{onError: func(*MountError) { called = true }})
	defer SetHandler(nil)

	Report(nil)
	assert.False(t, called)
}

func TestRecoverConvertsPanic(t *testing.T) {
	var captured *PanicError
	SetHandler(&testHandler{onPanic: func(err *PanicError) { captured = err }})
	defer SetHandler(nil)

	run := func() (err error) {
		defer Recover("test.recover", &err)
		panic("intentional test panic")
	}
	err := run()

	require.NotNil(t, captured)
	assert.Equal(t, "intentional test panic", captured.Value)
	assert.Equal(t, "test.recover", captured.Op)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPanic))
}

func TestRecoverKeepsErrorCause(t *testing.T) {
	SetHandler(&testHandler{})
	defer SetHandler(nil)

	run := func() (err error) {
		defer Recover("test.recover", &err)
		panic(InvalidState("inner", 1, ErrDuplicateAcquire))
	}
	err := run()
	assert.True(t, errors.Is(err, ErrDuplicateAcquire))
}

func TestRecoverNoPanic(t *testing.T) {
	run := func() (err error) {
		defer Recover("test.recover", &err)
		return nil
	}
	assert.NoError(t, run())
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	require.NotEmpty(t, stack)
	assert.True(t, bytes.Contains([]byte(stack), []byte("testing")) ||
		bytes.Contains([]byte(stack), []byte("runtime")))
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(nil)
	_, ok := Handler().(*LogHandler)
	assert.True(t, ok, "SetHandler(nil) should set LogHandler, got %T", Handler())
}

func TestLogHandlerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := &LogHandler{Logger: &logger}

	h.HandleError(InvalidState("mount.ReleaseMountReference", 9, ErrReleaseWithoutAcquire))
	out := buf.String()
	assert.Contains(t, out, `"kind":"invalid-state"`)
	assert.Contains(t, out, `"id":9`)

	buf.Reset()
	h.HandlePanic(&PanicError{Op: "op", Value: "v"})
	assert.Contains(t, buf.String(), `"op":"op"`)
}
