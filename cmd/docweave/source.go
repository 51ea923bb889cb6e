// cmd/docweave/source.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/julianshen/docweave/internal/config"
	"github.com/julianshen/docweave/internal/integrations"
	"github.com/julianshen/docweave/internal/profile"
	"github.com/julianshen/docweave/internal/signals"
)

type sourceKind int

const (
	sourceLocal sourceKind = iota
	sourceGitHub
	sourceGitLab
)

// source is a repository named on the command line.
type source struct {
	kind sourceKind
	// dir is set for local sources.
	dir string
	// project is owner/repo on GitHub or the full group path on GitLab.
	project string
}

func (s source) String() string {
	switch s.kind {
	case sourceGitHub:
		return "github.com/" + s.project
	case sourceGitLab:
		return "gitlab:" + s.project
	}
	return s.dir
}

// parseSource recognizes a local directory, a GitHub repository or a GitLab
// project. gitlabBase is the configured GitLab API URL; its host is accepted
// alongside gitlab.com.
func parseSource(arg, gitlabBase string) (source, error) {
	if info, err := os.Stat(arg); err == nil {
		if !info.IsDir() {
			return source{}, fmt.Errorf("%s is not a directory", arg)
		}
		return source{kind: sourceLocal, dir: arg}, nil
	}

	raw := integrations.NormalizeRemote(arg)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return source{}, fmt.Errorf("unsupported source %q: want a directory or a repository URL", arg)
	}
	project := strings.Trim(u.Path, "/")
	segments := strings.Split(project, "/")

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "github.com" || host == "www.github.com":
		if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
			return source{}, fmt.Errorf("github source %q: want github.com/<owner>/<repo>", arg)
		}
		return source{kind: sourceGitHub, project: project}, nil
	case isGitLabHost(host, gitlabBase):
		if len(segments) < 2 || segments[0] == "" {
			return source{}, fmt.Errorf("gitlab source %q: want <host>/<group>/<project>", arg)
		}
		return source{kind: sourceGitLab, project: project}, nil
	}
	return source{}, fmt.Errorf("unsupported source %q: no such directory and %s is not a known host", arg, host)
}

func isGitLabHost(host, base string) bool {
	if host == "gitlab.com" || strings.HasPrefix(host, "gitlab.") {
		return true
	}
	if base == "" {
		return false
	}
	b, err := url.Parse(base)
	return err == nil && strings.EqualFold(b.Hostname(), host)
}

// collectSignals gathers repository signals for src.
func collectSignals(ctx context.Context, cfg *config.Config, src source) (profile.Signals, error) {
	switch src.kind {
	case sourceGitHub:
		host := cfg.Sources.GitHub
		token, err := config.ResolveOptionalToken(host.TokenSource, host.Token, "GITHUB_TOKEN")
		if err != nil {
			return profile.Signals{}, fmt.Errorf("resolving GitHub token: %w", err)
		}
		client := signals.NewGitHubClient(token)
		if host.BaseURL != "" {
			if client, err = client.WithEnterpriseURLs(host.BaseURL, host.BaseURL); err != nil {
				return profile.Signals{}, fmt.Errorf("github base url: %w", err)
			}
		}
		owner, repo, _ := strings.Cut(src.project, "/")
		return signals.GitHub(ctx, client, owner, repo)

	case sourceGitLab:
		host := cfg.Sources.GitLab
		token, err := config.ResolveOptionalToken(host.TokenSource, host.Token, "GITLAB_TOKEN")
		if err != nil {
			return profile.Signals{}, fmt.Errorf("resolving GitLab token: %w", err)
		}
		client, err := signals.NewGitLabClient(token, host.BaseURL)
		if err != nil {
			return profile.Signals{}, err
		}
		return signals.GitLab(ctx, client, src.project)
	}
	return signals.Local(ctx, src.dir, signals.DefaultLocalOptions())
}

// guideFor loads the project writing guide of a local source.
func guideFor(src source) string {
	if src.kind != sourceLocal {
		return ""
	}
	guide, err := config.LoadGuide(src.dir)
	if err != nil {
		log.Printf("WARNING: reading guide: %v", err)
		return ""
	}
	return guide
}
