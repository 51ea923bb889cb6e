package integrations

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitRunner executes git commands in a project directory.
type GitRunner struct {
	workDir string
}

// NewGitRunner creates a GitRunner for the given directory.
func NewGitRunner(workDir string) *GitRunner {
	return &GitRunner{workDir: workDir}
}

// LsFiles returns tracked files relative to the repository root.
func (g *GitRunner) LsFiles(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "ls-files", "-z")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, f := range strings.Split(out, "\x00") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}

// RemoteURL returns the origin remote as a browsable https URL.
func (g *GitRunner) RemoteURL(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "remote", "get-url", "origin")
	if err != nil {
		return "", err
	}
	return NormalizeRemote(strings.TrimSpace(out)), nil
}

// HeadCommit returns the full hash of HEAD.
func (g *GitRunner) HeadCommit(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// NormalizeRemote rewrites scp-style and ssh remotes to https and drops a
// trailing .git, so git@github.com:acme/app.git becomes
// https://github.com/acme/app.
func NormalizeRemote(remote string) string {
	r := strings.TrimSpace(remote)
	switch {
	case strings.HasPrefix(r, "ssh://"):
		r = strings.TrimPrefix(r, "ssh://")
		if i := strings.Index(r, "@"); i >= 0 {
			r = r[i+1:]
		}
		r = "https://" + r
	case !strings.Contains(r, "://") && strings.Contains(r, ":"):
		if i := strings.Index(r, "@"); i >= 0 {
			r = r[i+1:]
		}
		r = "https://" + strings.Replace(r, ":", "/", 1)
	}
	if i := strings.Index(r, "://"); i >= 0 {
		// Strip credentials embedded in https remotes.
		rest := r[i+3:]
		if at := strings.Index(rest, "@"); at >= 0 && at < strings.Index(rest+"/", "/") {
			r = r[:i+3] + rest[at+1:]
		}
	}
	return strings.TrimSuffix(strings.TrimRight(r, "/"), ".git")
}

func (g *GitRunner) run(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("git: no subcommand provided")
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workDir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}
