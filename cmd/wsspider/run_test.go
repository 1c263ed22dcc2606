package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newFOFAServer serves a result page with one item per page, whose
// address is "10.0.0.<page>:80".
func newFOFAServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}
		fmt.Fprintf(w, `<html><body>
<div class="hsxa-meta-data-item"><span data-clipboard-text="10.0.0.%d:80">copy</span></div>
<ul class="el-pager"><li>1</li></ul>
</body></html>`, page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newCollectorServer accepts WebSocket connections and forwards every
// received text message.
func newCollectorServer(t *testing.T) (*httptest.Server, <-chan map[string]any) {
	t.Helper()

	msgs := make(chan map[string]any, 64)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m map[string]any
			if json.Unmarshal(data, &m) == nil {
				msgs <- m
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, msgs
}

func TestRunCmd_Query(t *testing.T) {
	fofa := newFOFAServer(t)
	collector, msgs := newCollectorServer(t)

	out := mustExecute(t,
		"--db-dir", t.TempDir(),
		"run",
		"--query", `app="nginx"`,
		"--base-url", fofa.URL,
		"--collector", "ws"+strings.TrimPrefix(collector.URL, "http"),
		"--pages", "2",
		"--delay", "0s",
		"--retry-delay", "0s",
	)
	if !strings.Contains(out, "T:0 D:0") {
		t.Errorf("expected stats line, got %q", out)
	}

	var (
		cmds  []string
		addrs []string
	)
	timeout := time.After(5 * time.Second)
	for len(cmds) == 0 || cmds[len(cmds)-1] != "job_done" {
		select {
		case m := <-msgs:
			if cmd, ok := m["cmd"].(string); ok {
				cmds = append(cmds, cmd)
			} else if addr, ok := m["addr"].(string); ok {
				addrs = append(addrs, addr)
			}
		case <-timeout:
			t.Fatalf("collector did not receive job_done; cmds=%v addrs=%v", cmds, addrs)
		}
	}

	wantCmds := []string{"client_ready", "job_start", "spider_start", "spider_done", "job_done"}
	if strings.Join(cmds, ",") != strings.Join(wantCmds, ",") {
		t.Errorf("cmds = %v, want %v", cmds, wantCmds)
	}
	if strings.Join(addrs, ",") != "10.0.0.1:80,10.0.0.2:80" {
		t.Errorf("addrs = %v", addrs)
	}
}

func TestRunCmd_OnceWithAutoStart(t *testing.T) {
	fofa := newFOFAServer(t)
	collector, _ := newCollectorServer(t)
	dbDir := t.TempDir()
	collectorURL := "ws" + strings.TrimPrefix(collector.URL, "http")

	mustExecute(t, "--db-dir", dbDir, "jobs", "add", "q1")

	for i := range 3 {
		if i > 0 {
			mustExecute(t, "--db-dir", dbDir, "jobs", "add", "q1")
		}
		mustExecute(t,
			"--db-dir", dbDir,
			"run", "--once", "--auto-start",
			"--base-url", fofa.URL,
			"--collector", collectorURL,
			"--pages", "1",
			"--delay", "0s",
			"--retry-delay", "0s",
		)

		out := mustExecute(t, "--db-dir", dbDir, "jobs", "list")
		if !strings.Contains(out, "Job queue is empty") {
			t.Fatalf("run %d: queue not drained: %q", i, out)
		}
	}
}

func TestRunCmd_QueryLeavesQueue(t *testing.T) {
	fofa := newFOFAServer(t)
	collector, _ := newCollectorServer(t)
	dbDir := t.TempDir()

	mustExecute(t, "--db-dir", dbDir, "jobs", "add", "pending")
	mustExecute(t,
		"--db-dir", dbDir,
		"run", "--query", "single", "--auto-start",
		"--base-url", fofa.URL,
		"--collector", "ws"+strings.TrimPrefix(collector.URL, "http"),
		"--pages", "1",
		"--delay", "0s",
		"--retry-delay", "0s",
	)

	out := mustExecute(t, "--db-dir", dbDir, "jobs", "list")
	if out != "  1. pending\n" {
		t.Errorf("jobs list = %q, want the pending job untouched", out)
	}
}

func TestRunCmd_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "query and once",
			args: []string{"run", "--query", "x", "--once"},
			want: "mutually exclusive",
		},
		{
			name: "invalid pages",
			args: []string{"run", "--pages", "0"},
			want: "configuration error",
		},
		{
			name: "invalid collector",
			args: []string{"run", "--collector", "http://127.0.0.1:8765"},
			want: "configuration error",
		},
		{
			name: "missing explicit config file",
			args: []string{"--config", "/nonexistent/.wsspider", "run"},
			want: "configuration file not found",
		},
		{
			name: "collect needs a url",
			args: []string{"collect"},
			want: "accepts 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"--db-dir", t.TempDir()}, tt.args...)
			_, err := execute(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
