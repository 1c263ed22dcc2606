package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJobsCmd(t *testing.T) {
	t.Parallel()

	t.Run("add deduplicates against the queue", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		out := mustExecute(t, "--db-dir", dbDir, "jobs", "add", `app="nginx"`, `port="8080"`, `app="nginx"`)
		if !strings.Contains(out, "Added 2 job(s), 2 in queue") {
			t.Errorf("unexpected output: %q", out)
		}

		out = mustExecute(t, "--db-dir", dbDir, "jobs", "add", `port="8080"`)
		if !strings.Contains(out, "Added 0 job(s), 2 in queue") {
			t.Errorf("unexpected output: %q", out)
		}

		out = mustExecute(t, "--db-dir", dbDir, "jobs", "list")
		want := "  1. app=\"nginx\"\n  2. port=\"8080\"\n"
		if out != want {
			t.Errorf("list = %q, want %q", out, want)
		}
	})

	t.Run("add reads a query file", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		file := filepath.Join(t.TempDir(), "queries.txt")
		content := "# FOFA queries\napp=\"redis\"\n\n  country=\"JP\"  \n"
		if err := os.WriteFile(file, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		out := mustExecute(t, "--db-dir", dbDir, "jobs", "add", "--file", file, `title="x"`)
		if !strings.Contains(out, "Added 3 job(s), 3 in queue") {
			t.Errorf("unexpected output: %q", out)
		}

		out = mustExecute(t, "--db-dir", dbDir, "jobs", "list")
		if !strings.Contains(out, `1. title="x"`) || !strings.Contains(out, `3. country="JP"`) {
			t.Errorf("list = %q", out)
		}
	})

	t.Run("add without queries fails", func(t *testing.T) {
		t.Parallel()

		_, err := execute(t, "--db-dir", t.TempDir(), "jobs", "add")
		if err == nil || !strings.Contains(err.Error(), "no queries") {
			t.Errorf("expected 'no queries' error, got %v", err)
		}
	})

	t.Run("add with a missing file fails", func(t *testing.T) {
		t.Parallel()

		_, err := execute(t, "--db-dir", t.TempDir(), "jobs", "add", "--file", filepath.Join(t.TempDir(), "nope.txt"))
		if err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("clear empties the queue", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		mustExecute(t, "--db-dir", dbDir, "jobs", "add", "a", "b")

		out := mustExecute(t, "--db-dir", dbDir, "jobs", "clear")
		if !strings.Contains(out, "Cleared 2 job(s)") {
			t.Errorf("unexpected output: %q", out)
		}

		out = mustExecute(t, "--db-dir", dbDir, "jobs", "list")
		if !strings.Contains(out, "Job queue is empty") {
			t.Errorf("list = %q", out)
		}
	})

	t.Run("unknown store is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := execute(t, "--db-dir", t.TempDir(), "--store", "etcd", "jobs", "list")
		if err == nil || !strings.Contains(err.Error(), "configuration error") {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}
