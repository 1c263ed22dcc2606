package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	t.Run("quiet console only shows warnings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, Options{})
		logger.Info("info line")
		logger.Warn("warn line")

		out := buf.String()
		if strings.Contains(out, "info line") {
			t.Errorf("info written in quiet mode: %s", out)
		}
		if !strings.Contains(out, "warn line") {
			t.Errorf("warn missing: %s", out)
		}
	})

	t.Run("verbose console shows debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, Options{Verbose: true})
		logger.Debug("debug line")

		if !strings.Contains(buf.String(), "debug line") {
			t.Errorf("debug missing: %s", buf.String())
		}
	})
}

func TestNewLogger_FanOut(t *testing.T) {
	t.Parallel()

	var console, file bytes.Buffer
	ring := NewRing(5)
	logger := NewLogger(&console, Options{Ring: ring, File: &file})

	logger.Info("page fetched", "cookie", "fofa_token=secret")

	if console.Len() != 0 {
		t.Errorf("console got info in quiet mode: %s", console.String())
	}
	if !strings.Contains(file.String(), `"msg":"page fetched"`) {
		t.Errorf("file missing record: %s", file.String())
	}
	if strings.Contains(file.String(), "secret") {
		t.Errorf("file leaked cookie: %s", file.String())
	}

	entries := ring.Entries()
	if len(entries) != 1 || entries[0].Message != "page fetched" {
		t.Fatalf("ring entries = %+v", entries)
	}
	if strings.Contains(entries[0].Attrs, "secret") {
		t.Errorf("ring leaked cookie: %s", entries[0].Attrs)
	}
}
