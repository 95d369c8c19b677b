package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false after SetVerbose(false)")
	}
}

func TestDebug_OnlyWhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("hidden %d", 1)
	Section("Hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output without verbose, got %q", buf.String())
	}

	SetVerbose(true)
	Debug("file %s", "abc")
	Section("Processing")

	out := buf.String()
	if !strings.Contains(out, "[DEBUG] file abc") {
		t.Errorf("expected debug line, got %q", out)
	}
	if !strings.Contains(out, "=== Processing ===") {
		t.Errorf("expected section header, got %q", out)
	}
}

func TestLevels_AlwaysPrint(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("processed %d", 3)
	Warn("skipped %s", "x")
	Error("failed %s", "y")

	out := buf.String()
	for _, want := range []string{"[INFO] processed 3", "[WARN] skipped x", "[ERROR] failed y"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
