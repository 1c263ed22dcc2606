package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/wsspider/internal/report"
)

func TestStatusCmd(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	mustExecute(t, "--db-dir", dbDir, "jobs", "add", `app="nginx"`, `port="22"`)
	seedVisited(t, dbDir, "/result?qbase64=YQ%3D%3D")

	t.Run("simple", func(t *testing.T) {
		out := mustExecute(t, "--db-dir", dbDir, "status")
		for _, want := range []string{"WSSPIDER STATUS", "Store:       sqlite", "Jobs:        2", "Visited:     1", `app="nginx"`} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		out := mustExecute(t, "--db-dir", dbDir, "status", "--json")

		var got report.JSONReport
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if got.Version == "" || got.Status == nil {
			t.Fatalf("decoded = %+v", got)
		}
		if len(got.Status.Jobs) != 2 || got.Status.VisitedCount != 1 || len(got.Status.RecentVisits) != 1 {
			t.Errorf("status = %+v", got.Status)
		}
	})

	t.Run("markdown to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "status.md")
		mustExecute(t, "--db-dir", dbDir, "status", "--markdown", "-o", path)

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(content), "# wsspider Status") {
			t.Errorf("unexpected markdown:\n%s", content)
		}
	})

	t.Run("json and markdown are exclusive", func(t *testing.T) {
		_, err := execute(t, "--db-dir", dbDir, "status", "--json", "--markdown")
		if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
			t.Errorf("expected mutually exclusive error, got %v", err)
		}
	})
}
