package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/wsspider/internal/database"
)

// seedVisited writes hrefs to the SQLite store in dbDir, one minute apart.
func seedVisited(t *testing.T, dbDir string, hrefs ...string) {
	t.Helper()

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	base := time.Date(2026, 1, 2, 3, 4, 0, 0, time.Local)
	for i, href := range hrefs {
		if err := db.MarkVisited(context.Background(), href, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestVisitedCmd(t *testing.T) {
	t.Parallel()

	t.Run("list prints newest first", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		seedVisited(t, dbDir, "/result?qbase64=YQ%3D%3D", "/result?qbase64=Yg%3D%3D", "/result?qbase64=Yw%3D%3D")

		out := mustExecute(t, "--db-dir", dbDir, "visited", "list", "-n", "2")
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines, got %q", out)
		}
		if lines[0] != "3 visited link(s)" {
			t.Errorf("header = %q", lines[0])
		}
		if !strings.HasSuffix(lines[1], "Yw%3D%3D") || !strings.HasPrefix(lines[1], "2026-01-02 03:06:00") {
			t.Errorf("first entry = %q", lines[1])
		}
		if !strings.HasSuffix(lines[2], "Yg%3D%3D") {
			t.Errorf("second entry = %q", lines[2])
		}
	})

	t.Run("clear forgets every link", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		seedVisited(t, dbDir, "/a", "/b")

		out := mustExecute(t, "--db-dir", dbDir, "visited", "clear")
		if !strings.Contains(out, "Visited links cleared (2)") {
			t.Errorf("unexpected output: %q", out)
		}

		out = mustExecute(t, "--db-dir", dbDir, "visited", "list")
		if strings.TrimSpace(out) != "0 visited link(s)" {
			t.Errorf("list = %q", out)
		}
	})
}
