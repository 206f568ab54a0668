package logger

import (
	"bytes"
	"testing"
)

func TestSafeWriterPrependsCRAndEnsuresTrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	sw := NewSafeWriter(&buf)

	if _, err := sw.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := buf.String(), "\rhello\n"; got != want {
		t.Errorf("buf = %q, want %q", got, want)
	}
}

func TestSafeWriterDoesNotDoubleNewline(t *testing.T) {
	var buf bytes.Buffer
	sw := NewSafeWriter(&buf)

	if _, err := sw.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := buf.String(), "\rhello\n"; got != want {
		t.Errorf("buf = %q, want %q", got, want)
	}
}

func TestEventNilSafe(t *testing.T) {
	var e *Event
	// None of these should panic on a nil *Event, matching the
	// Debug()/Verbose() return nil when their level is disabled.
	e.Server("s1").Choice("c1").Metadata("k", "v").Msgf("unreachable")
}

func TestDebugDisabledByDefault(t *testing.T) {
	if IsDebugEnabled() {
		t.Fatalf("debug should be disabled by default")
	}
	if Debug() != nil {
		t.Errorf("Debug() should return nil when debug logging is disabled")
	}
}

func TestEnableDebugTogglesState(t *testing.T) {
	l := &Logger{}
	if l.IsDebugEnabled() {
		t.Fatalf("fresh Logger should have debug disabled")
	}
	l.EnableDebug()
	if !l.IsDebugEnabled() {
		t.Errorf("EnableDebug did not set debug")
	}
}

func TestEnableVerboseTogglesState(t *testing.T) {
	l := &Logger{}
	if l.IsVerboseEnabled() {
		t.Fatalf("fresh Logger should have verbose disabled")
	}
	l.EnableVerbose()
	if !l.IsVerboseEnabled() {
		t.Errorf("EnableVerbose did not set verbose")
	}
}
