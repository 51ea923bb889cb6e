package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectSSE(t *testing.T, body string) []SSEEvent {
	t.Helper()
	s := NewSSEScanner(strings.NewReader(body))
	var events []SSEEvent
	for s.Next() {
		events = append(events, s.Event())
	}
	require.NoError(t, s.Err())
	return events
}

func TestSSEScannerEvents(t *testing.T) {
	events := collectSSE(t, "event: ping\ndata: {}\n\n: keep-alive\n\nevent: content_block_delta\ndata: {\"a\":1}\n\n")
	require.Len(t, events, 2)
	assert.Equal(t, SSEEvent{Event: "ping", Data: "{}"}, events[0])
	assert.Equal(t, SSEEvent{Event: "content_block_delta", Data: `{"a":1}`}, events[1])
}

func TestSSEScannerMultilineData(t *testing.T) {
	events := collectSSE(t, "data: line one\ndata: line two\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, "line one\nline two", events[0].Data)
}

func TestSSEScannerNoTrailingBlankLine(t *testing.T) {
	events := collectSSE(t, "data: [DONE]")
	require.Len(t, events, 1)
	assert.Equal(t, "[DONE]", events[0].Data)
}

func TestSSEScannerDataWithoutSpace(t *testing.T) {
	events := collectSSE(t, "data:{\"x\":true}\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, `{"x":true}`, events[0].Data)
}

func TestSSEScannerEmpty(t *testing.T) {
	assert.Empty(t, collectSSE(t, "\n\n: only comments\n\n"))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSSEScannerReadError(t *testing.T) {
	s := NewSSEScanner(failingReader{})
	assert.False(t, s.Next())
	assert.EqualError(t, s.Err(), "connection reset")
	assert.False(t, s.Next())
}
