package errors

import (
	"io"
	"testing"
)

type closer struct{ err error }

func (c closer) Close() error { return c.err }

func TestEnsureStack(t *testing.T) {
	err := EnsureStack(io.EOF)
	if !Is(err, io.EOF) {
		t.Fatalf("EnsureStack should preserve the cause")
	}
	var st StackTracer
	if !As(err, &st) {
		t.Fatalf("EnsureStack should attach a stack")
	}
	if again := EnsureStack(err); again != err {
		t.Errorf("EnsureStack should not wrap an error that already has a stack")
	}
	if EnsureStack(nil) != nil {
		t.Errorf("EnsureStack(nil) should be nil")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrapf(io.ErrUnexpectedEOF, "read %s", "n_bin")
	if !Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Wrapf should keep the cause")
	}
	if got, want := err.Error(), "read n_bin: unexpected EOF"; got != want {
		t.Errorf("message: got %q, want %q", got, want)
	}
}

func TestClose(t *testing.T) {
	var retErr error
	Close(&retErr, closer{}, "close ok")
	if retErr != nil {
		t.Fatalf("unexpected error: %v", retErr)
	}
	Close(&retErr, closer{err: io.ErrClosedPipe}, "close %d", 1)
	if !Is(retErr, io.ErrClosedPipe) {
		t.Errorf("Close should join the close error, got %v", retErr)
	}
}
