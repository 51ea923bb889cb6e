package synth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"text/template"
	"time"

	"github.com/julianshen/docweave/internal/provider"
)

// Completer abstracts a single-prompt LLM completion for testability.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// LLMConfig controls the LLM-backed synthesizer.
type LLMConfig struct {
	// Timeout bounds one backend call. Zero means no per-call limit.
	Timeout time.Duration
	// Guide is optional project guidance appended to every prompt.
	Guide string
}

// DefaultLLMConfig returns a 90 second per-call timeout.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{Timeout: 90 * time.Second}
}

// maxStackInPrompt caps how many technologies are listed in a prompt.
const maxStackInPrompt = 12

var sectionTmpl = template.Must(template.New("section").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(
	`You are a senior technical writer documenting the software project below. Write the "{{.Title}}" page of its documentation.

## Project
- Repository: {{.Name}} ({{.URL}})
- Business domain: {{.Domain}}
- Architecture pattern: {{.Pattern}}
- Technology stack: {{if .Stack}}{{join .Stack ", "}}{{else}}not detected{{end}}
{{- if .Description}}
- Summary: {{.Description}}
{{- end}}

## Page
- Title: {{.Title}}
{{- if .Purpose}}
- Purpose: {{.Purpose}}
{{- end}}
{{- if .Parent}}
- Part of: {{.Parent}}
{{- end}}
{{- if .Siblings}}
- Neighbouring pages: {{join .Siblings ", "}}
{{- end}}
{{- if .Children}}
- Subpages that cover details: {{join .Children ", "}}
{{- end}}

## Guidelines
- Be specific to this project and its stack; avoid generic filler.
- Include configuration snippets or code examples where they help.
- Leave material owned by neighbouring pages or subpages to them.
- Do not add links to other pages; navigation is added separately.
{{- if .Guide}}

## Project guidance
{{.Guide}}
{{- end}}

## Output
Respond with Markdown only. Start with "# {{.Title}}" and use "##" headings for sections.`))

// LLM generates pages through a Completer.
type LLM struct {
	completer Completer
	cfg       LLMConfig
}

// NewLLM wraps a Completer as a Synthesizer.
func NewLLM(c Completer, cfg LLMConfig) *LLM {
	return &LLM{completer: c, cfg: cfg}
}

// Prompt renders the generation prompt for req.
func Prompt(req Request, guide string) (string, error) {
	stack := req.Profile.TechnologyStack.All()
	if len(stack) > maxStackInPrompt {
		stack = stack[:maxStackInPrompt]
	}
	var buf bytes.Buffer
	err := sectionTmpl.Execute(&buf, struct {
		Name, URL, Domain, Pattern, Description string
		Stack                                   []string
		Title, Purpose, Parent                  string
		Siblings, Children                      []string
		Guide                                   string
	}{
		Name:        req.Profile.Name,
		URL:         req.Profile.RepositoryURL,
		Domain:      req.Profile.BusinessDomain,
		Pattern:     req.Profile.ArchitecturePattern,
		Description: req.Profile.Description,
		Stack:       stack,
		Title:       req.Title,
		Purpose:     req.Description,
		Parent:      req.ParentTitle,
		Siblings:    req.SiblingTitles,
		Children:    req.ChildTitles,
		Guide:       strings.TrimSpace(guide),
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

// Generate renders the prompt, calls the backend once and classifies any
// failure.
func (l *LLM) Generate(ctx context.Context, req Request) Result {
	prompt, err := Prompt(req, l.cfg.Guide)
	if err != nil {
		return Failed(Backend(err))
	}

	callCtx := ctx
	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	resp, err := l.completer.Complete(callCtx, prompt)
	if err != nil {
		return Failed(Classify(ctx, err))
	}
	md := cleanMarkdown(resp, req.Title)
	if md == "" {
		return Failed(Backend(errors.New("empty response")))
	}
	return Ok(md)
}

// Classify maps a backend error to a typed failure. parent is the caller's
// context, used to tell run cancellation apart from a per-call timeout.
func Classify(parent context.Context, err error) *Error {
	if parent.Err() != nil {
		return Canceled(err)
	}
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.RateLimited():
			return RateLimited(err, apiErr.RetryAfter)
		case apiErr.Timeout():
			return Timeout(err)
		}
		return Backend(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout(err)
	}
	return Backend(err)
}

// cleanMarkdown strips a wrapping code fence and makes sure the page opens
// with its title heading.
func cleanMarkdown(resp, title string) string {
	md := strings.TrimSpace(resp)
	if strings.HasPrefix(md, "```") {
		if nl := strings.IndexByte(md, '\n'); nl >= 0 && strings.HasSuffix(md, "```") {
			md = strings.TrimSpace(strings.TrimSuffix(md[nl+1:], "```"))
		}
	}
	if md == "" {
		return ""
	}
	if !strings.HasPrefix(md, "# ") {
		md = "# " + title + "\n\n" + md
	}
	return md + "\n"
}
