package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"fairdraw/pkg/digest"
)

// LineError locates a malformed line in an audit log.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("audit log line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ToJSONLines renders one event per line, newline-joined, no trailing newline.
func ToJSONLines(events []Event) (string, error) {
	lines := make([]string, len(events))
	for i, e := range events {
		b, err := digest.Marshal(e)
		if err != nil {
			return "", fmt.Errorf("encode event %d: %w", i, err)
		}
		lines[i] = string(b)
	}
	return strings.Join(lines, "\n"), nil
}

// ParseJSONLines reads an audit log, skipping blank lines and tolerating CRLF.
// Errors carry the 1-based line number.
func ParseJSONLines(text string) ([]Event, error) {
	var events []Event
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(line)))
		dec.UseNumber()
		var e Event
		if err := dec.Decode(&e); err != nil {
			return nil, &LineError{Line: i + 1, Err: err}
		}
		if e.EntryHash == "" || e.EventType == "" {
			return nil, &LineError{Line: i + 1, Err: fmt.Errorf("missing event_type or entry_hash")}
		}
		events = append(events, e)
	}
	return events, nil
}
