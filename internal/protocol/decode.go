package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Decoding errors. None of them is fatal to the connection.
var (
	// ErrInvalidJSON is returned by the structured stage when the frame is
	// not a JSON object of the expected shape.
	ErrInvalidJSON = errors.New("invalid JSON message")

	// ErrNotLegacy is returned by the legacy stage when the frame carries
	// none of the legacy tokens.
	ErrNotLegacy = errors.New("not a legacy status line")

	// ErrUnrecognized is returned by Decode when no stage accepted the frame.
	ErrUnrecognized = errors.New("unrecognized message")
)

// Inbound is a decoded collector-to-spider message. It is one of
// Command, CollectorReply or LegacyLine.
type Inbound interface {
	inbound()
}

// Command is a control command from the collector.
type Command struct {
	// Cmd is the command name, e.g. CmdAddJobs.
	Cmd string

	// Queries is the payload of add_jobs.
	Queries []string
}

// CollectorReply is a JSON acknowledgement for a stored record.
type CollectorReply struct {
	Status string

	// New is nil when the reply does not say whether the record was new.
	New *bool

	// Total and Today are zero when absent.
	Total int
	Today int
}

// LegacyLine is a plain-text status line from an older collector.
type LegacyLine struct {
	Text string
	New  bool
	Dup  bool

	// HasCounters reports whether a "T:<n> D:<n>" pair was present.
	HasCounters bool
	Total       int
	Today       int
}

func (Command) inbound()        {}
func (CollectorReply) inbound() {}
func (LegacyLine) inbound()     {}

// envelope is the union of every JSON field the collector may send.
type envelope struct {
	Cmd     *string  `json:"cmd"`
	Queries []string `json:"queries"`
	Status  *string  `json:"status"`
	New     *bool    `json:"new"`
	Total   int      `json:"total"`
	Today   int      `json:"today"`
}

// Decode decodes one inbound frame. It tries the structured JSON stage
// first and falls back to the legacy line stage.
func Decode(data []byte) (Inbound, error) {
	msg, jsonErr := DecodeJSON(data)
	if jsonErr == nil {
		return msg, nil
	}
	if !errors.Is(jsonErr, ErrInvalidJSON) {
		// Valid JSON that carries nothing actionable.
		return nil, fmt.Errorf("%w: %w", ErrUnrecognized, jsonErr)
	}

	line, legacyErr := DecodeLegacy(data)
	if legacyErr == nil {
		return line, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrUnrecognized, errors.Join(jsonErr, legacyErr))
}

// errNoAction is returned for well-formed JSON with neither a "cmd" nor a
// "status" field.
var errNoAction = errors.New("message has no cmd or status")

// DecodeJSON is the structured stage of Decode.
func DecodeJSON(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	switch {
	case env.Cmd != nil:
		return Command{Cmd: *env.Cmd, Queries: env.Queries}, nil
	case env.Status != nil:
		return CollectorReply{Status: *env.Status, New: env.New, Total: env.Total, Today: env.Today}, nil
	default:
		return nil, errNoAction
	}
}

var countersRegex = regexp.MustCompile(`T:(\d+)\s+D:(\d+)`)

// DecodeLegacy is the legacy line stage of Decode.
func DecodeLegacy(data []byte) (Inbound, error) {
	line := LegacyLine{
		Text: string(bytes.TrimSpace(data)),
		New:  bytes.HasPrefix(data, []byte("NEW")),
		Dup:  bytes.HasPrefix(data, []byte("DUP")),
	}

	if m := countersRegex.FindSubmatch(data); m != nil {
		total, errT := strconv.Atoi(string(m[1]))
		today, errD := strconv.Atoi(string(m[2]))
		if errT == nil && errD == nil {
			line.HasCounters = true
			line.Total = total
			line.Today = today
		}
	}

	if !line.New && !line.Dup && !line.HasCounters {
		return nil, ErrNotLegacy
	}
	return line, nil
}
