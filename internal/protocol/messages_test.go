package protocol

import (
	"encoding/json"
	"testing"
)

// TestControlMessagesCarryCmd checks that every outbound control message
// serializes its command name in the "cmd" field.
func TestControlMessagesCarryCmd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  Control
		want string
	}{
		{NewClientReady("id", 2, true), CmdClientReady},
		{NewErrorReport("Failed: Timeout", "https://fofa.info/result"), CmdError},
		{NewJobsAdded(2, 5), CmdJobsAdded},
		{NewQueueStatus(nil, false), CmdQueueStatus},
		{NewJobStart("q", 1, 3), CmdJobStart},
		{NewJobDone("q", 1, 3, 4), CmdJobDone},
		{NewSpiderStart("q", 9), CmdSpiderStart},
		{NewSpiderLink("nginx", "Server", 1, "q"), CmdSpiderLink},
		{NewSpiderDone("q", 4), CmdSpiderDone},
		{NewBatchStart(3), CmdBatchStart},
		{NewBatchDone(3), CmdBatchDone},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			if tt.msg.Command() != tt.want {
				t.Errorf("Command() = %q, want %q", tt.msg.Command(), tt.want)
			}

			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var fields map[string]any
			if err := json.Unmarshal(data, &fields); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if fields["cmd"] != tt.want {
				t.Errorf("cmd field = %v, want %q", fields["cmd"], tt.want)
			}
		})
	}
}

func TestClientReadyFields(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewClientReady("abc", 4, true))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"cmd":"client_ready","type":"spider","client_id":"abc","jobs":4,"autoStart":true}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestQueueStatusEmptyJobs(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewQueueStatus(nil, true))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"cmd":"queue_status","jobs":[],"count":0,"running":true}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
