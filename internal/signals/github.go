package signals

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/go-github/v68/github"

	"github.com/julianshen/docweave/internal/profile"
)

// NewGitHubClient returns an API client, authenticated when token is set.
func NewGitHubClient(token string) *github.Client {
	c := github.NewClient(nil)
	if token != "" {
		c = c.WithAuthToken(token)
	}
	return c
}

// GitHub collects signals for owner/repo through the REST API. The language
// histogram is in bytes and LOC is estimated from it.
func GitHub(ctx context.Context, client *github.Client, owner, repo string) (profile.Signals, error) {
	r, _, err := client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return profile.Signals{}, fmt.Errorf("github: get %s/%s: %w", owner, repo, err)
	}
	langs, _, err := client.Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		return profile.Signals{}, fmt.Errorf("github: languages of %s/%s: %w", owner, repo, err)
	}

	sig := profile.Signals{
		RepositoryURL: r.GetHTMLURL(),
		Name:          r.GetName(),
		Description:   r.GetDescription(),
		Topics:        r.Topics,
		Languages:     histogram(langs, 1),
		LOCEstimated:  true,
	}
	var total int64
	for _, b := range sig.Languages {
		total += b
	}
	sig.LOC = int(total / bytesPerLine)

	readme, _, err := client.Repositories.GetReadme(ctx, owner, repo, nil)
	switch {
	case err == nil:
		if text, err := readme.GetContent(); err == nil {
			sig.Readme = truncate(text, DefaultLocalOptions().MaxReadmeBytes)
		}
	case !isGitHubNotFound(err):
		log.Printf("WARNING: github: readme of %s/%s: %v", owner, repo, err)
	}

	ref := r.GetDefaultBranch()
	if ref == "" {
		ref = "HEAD"
	}
	tree, _, err := client.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		log.Printf("WARNING: github: tree of %s/%s: %v", owner, repo, err)
		return sig, nil
	}
	if tree.GetTruncated() {
		log.Printf("WARNING: github: tree of %s/%s is truncated", owner, repo)
	}
	var paths []string
	for _, e := range tree.Entries {
		if e.GetType() == "blob" {
			paths = append(paths, e.GetPath())
		}
	}
	hostedTree{
		paths: paths,
		fetch: func(ctx context.Context, path string) ([]byte, error) {
			fc, _, _, err := client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: ref})
			if err != nil {
				return nil, err
			}
			if fc == nil {
				return nil, fmt.Errorf("%s is not a file", path)
			}
			text, err := fc.GetContent()
			return []byte(text), err
		},
	}.fill(ctx, &sig)
	return sig, nil
}

func isGitHubNotFound(err error) bool {
	var e *github.ErrorResponse
	return errors.As(err, &e) && e.Response != nil && e.Response.StatusCode == http.StatusNotFound
}
