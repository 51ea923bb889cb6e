package provider

import (
	"bufio"
	"io"
	"strings"
)

// maxSSELine bounds a single SSE line; generated sections can be long.
const maxSSELine = 1 << 20

// SSEEvent is a single Server-Sent Event.
type SSEEvent struct {
	Event string
	Data  string
}

// SSEScanner reads SSE events one at a time, in the style of bufio.Scanner:
//
//	s := NewSSEScanner(r)
//	for s.Next() {
//	    evt := s.Event()
//	}
//	if err := s.Err(); err != nil { ... }
type SSEScanner struct {
	scanner *bufio.Scanner
	event   SSEEvent
	err     error
	done    bool
}

// NewSSEScanner creates a streaming SSE parser over r.
func NewSSEScanner(r io.Reader) *SSEScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxSSELine)
	return &SSEScanner{scanner: sc}
}

// Next advances to the next event. It returns false at end of stream or on
// error; check Err afterwards.
func (s *SSEScanner) Next() bool {
	if s.done {
		return false
	}

	var (
		current SSEEvent
		data    []string
	)
	flush := func() bool {
		if len(data) == 0 && current.Event == "" {
			return false
		}
		current.Data = strings.Join(data, "\n")
		s.event = current
		return true
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()
		switch {
		case line == "":
			if flush() {
				return true
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			current.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	s.err = s.scanner.Err()
	s.done = true
	// A stream may end without the trailing blank line.
	return flush()
}

// Event returns the most recent event read by Next.
func (s *SSEScanner) Event() SSEEvent {
	return s.event
}

// Err returns the first non-EOF error encountered by the scanner.
func (s *SSEScanner) Err() error {
	return s.err
}
