package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, LevelWarn)

	l.Logf("info %d", 1)
	l.Debugf("debug")
	l.Warnf("careful %s", "now")
	l.Errorf("broken")

	out := buf.String()
	if strings.Contains(out, "info 1") || strings.Contains(out, "debug") {
		t.Errorf("messages below warn leaked: %q", out)
	}
	if !strings.Contains(out, "WARN careful now") || !strings.Contains(out, "ERROR broken") {
		t.Errorf("expected warn and error lines, got %q", out)
	}
}

func TestLogger_ZeroValueAndNil(t *testing.T) {
	var l Logger
	l.Log("dropped")

	var nilLogger *Logger
	nilLogger.Warnf("also dropped")
	nilLogger.Func()("still fine")
}

func TestLogger_InitWritesFile(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger()
	if err := l.Init(filepath.Join(dir, "logs")); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	l.Log("hello")
	l.Close()

	matches, _ := filepath.Glob(filepath.Join(dir, "logs", "reportforge_*.log"))
	if len(matches) != 1 {
		t.Fatalf("expected one log file, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing message: %q", data)
	}
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, LevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Logf("line")
		}()
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "\n"); got != 20 {
		t.Errorf("expected 20 lines, got %d", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": LevelDebug, "WARNING": LevelWarn, "error": LevelError, "": LevelInfo, "nope": LevelInfo}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
