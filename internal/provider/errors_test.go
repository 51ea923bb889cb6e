package provider

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func response(status int, header http.Header, body string) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNewAPIError(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "7")

	err := NewAPIError(response(http.StatusTooManyRequests, h, `{"error":"slow down"}`))
	assert.Equal(t, 429, err.StatusCode)
	assert.Equal(t, 7*time.Second, err.RetryAfter)
	assert.True(t, err.RateLimited())
	assert.False(t, err.Timeout())
	assert.Equal(t, `API error 429: {"error":"slow down"}`, err.Error())
}

func TestAPIErrorTimeout(t *testing.T) {
	assert.True(t, NewAPIError(response(http.StatusGatewayTimeout, nil, "")).Timeout())
	assert.True(t, NewAPIError(response(http.StatusRequestTimeout, nil, "")).Timeout())
	assert.False(t, NewAPIError(response(http.StatusInternalServerError, nil, "")).Timeout())
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{"soon", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseRetryAfter(tt.in, now), tt.in)
	}
}

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello")
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, "hello", msg.Content)
}
