// Package synth is the boundary to the content generation backend. Every
// backend response is folded into a Result at this boundary, so callers branch
// on a failure kind instead of inspecting arbitrary errors.
package synth

import (
	"context"
	"fmt"
	"time"

	"github.com/julianshen/docweave/internal/profile"
)

// Request asks for the markdown of one documentation node. It carries only
// structural context: titles of the parent, siblings and children, never their
// content, so requests are independent of each other.
type Request struct {
	NodeID        string
	Title         string
	Description   string
	ParentTitle   string
	SiblingTitles []string
	ChildTitles   []string
	Profile       profile.Profile
}

// ErrorKind classifies a generation failure.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindBackend     ErrorKind = "backend"
	KindRateLimited ErrorKind = "rate-limited"
	// KindCanceled marks a request abandoned because the run was canceled.
	KindCanceled ErrorKind = "canceled"
)

// Error is a typed generation failure.
type Error struct {
	Kind ErrorKind
	// RetryAfter is the backend-requested delay for rate-limited failures.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generation %s", e.Kind)
	}
	return fmt.Sprintf("generation %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool { return e.Kind != KindCanceled }

// Timeout wraps err as a timeout failure.
func Timeout(err error) *Error { return &Error{Kind: KindTimeout, Err: err} }

// Backend wraps err as a backend failure.
func Backend(err error) *Error { return &Error{Kind: KindBackend, Err: err} }

// RateLimited wraps err as a rate-limit failure with an optional delay hint.
func RateLimited(err error, after time.Duration) *Error {
	return &Error{Kind: KindRateLimited, RetryAfter: after, Err: err}
}

// Canceled wraps err as a cancellation.
func Canceled(err error) *Error { return &Error{Kind: KindCanceled, Err: err} }

// Result is either Ok(markdown) or Failed(kind).
type Result struct {
	Markdown string
	Err      *Error
	Attempts int
}

// Ok builds a successful result.
func Ok(markdown string) Result { return Result{Markdown: markdown, Attempts: 1} }

// Failed builds a failed result.
func Failed(err *Error) Result { return Result{Err: err, Attempts: 1} }

// OK reports whether the result carries markdown.
func (r Result) OK() bool { return r.Err == nil }

// Kind returns the failure kind, or "" for a successful result.
func (r Result) Kind() ErrorKind {
	if r.Err == nil {
		return ""
	}
	return r.Err.Kind
}

// Synthesizer produces markdown for one node.
type Synthesizer interface {
	Generate(ctx context.Context, req Request) Result
}

// Func adapts a function to Synthesizer.
type Func func(ctx context.Context, req Request) Result

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) Result { return f(ctx, req) }

// Middleware decorates a Synthesizer.
type Middleware func(Synthesizer) Synthesizer

// Chain applies middlewares so the first one is outermost.
func Chain(base Synthesizer, mws ...Middleware) Synthesizer {
	s := base
	for i := len(mws) - 1; i >= 0; i-- {
		s = mws[i](s)
	}
	return s
}
