package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/rescue/internal/ports"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	zl, err := newConsoleLogger(&buf, "debug")
	if err != nil {
		t.Fatalf("newConsoleLogger: %v", err)
	}
	l := NewZerologAdapterWithLogger(zl).WithField("run", "abc123")

	l.Info("batch done",
		ports.Uint64("sectors", 128),
		ports.Duration("took", 2*time.Second),
		ports.Err(errors.New("boom")),
	)

	out := buf.String()
	for _, want := range []string{"batch done", "sectors=128", "run=abc123", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestZerologAdapter_Level(t *testing.T) {
	var buf bytes.Buffer
	zl, err := newConsoleLogger(&buf, "warn")
	if err != nil {
		t.Fatalf("newConsoleLogger: %v", err)
	}
	l := NewZerologAdapterWithLogger(zl)

	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info message logged at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn message missing: %q", buf.String())
	}
}

func TestNewConsoleLogger_BadLevel(t *testing.T) {
	if _, err := NewConsoleLogger("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestConsoleLogger_NoColorWhenRedirected(t *testing.T) {
	var buf bytes.Buffer
	zl, err := newConsoleLogger(&buf, "info")
	if err != nil {
		t.Fatalf("newConsoleLogger: %v", err)
	}
	NewZerologAdapterWithLogger(zl).Warn("plain", ports.Int("sectors", 4))

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("escape codes in redirected output: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "sectors=4") {
		t.Errorf("output %q missing %q", buf.String(), "sectors=4")
	}
}

func TestIsTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if isTerminal(f) {
		t.Error("regular file reported as terminal")
	}
	if isTerminal(&bytes.Buffer{}) {
		t.Error("buffer reported as terminal")
	}
}
