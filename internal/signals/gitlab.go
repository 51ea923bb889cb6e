package signals

import (
	"context"
	"fmt"
	"log"

	"github.com/xanzy/go-gitlab"

	"github.com/julianshen/docweave/internal/profile"
)

// maxTreePages bounds the paginated tree listing.
const maxTreePages = 20

// NewGitLabClient returns an API client for baseURL (gitlab.com when empty).
func NewGitLabClient(token, baseURL string) (*gitlab.Client, error) {
	var opts []gitlab.ClientOptionFunc
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}
	c, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("gitlab: %w", err)
	}
	return c, nil
}

// GitLab collects signals for a project id or "group/name" path. GitLab
// reports languages as percentages, so the histogram holds hundredths of a
// percent and LOC is estimated from the repository size when statistics are
// visible.
func GitLab(ctx context.Context, client *gitlab.Client, project string) (profile.Signals, error) {
	p, _, err := client.Projects.GetProject(project, &gitlab.GetProjectOptions{Statistics: gitlab.Ptr(true)}, gitlab.WithContext(ctx))
	if err != nil {
		return profile.Signals{}, fmt.Errorf("gitlab: get %s: %w", project, err)
	}
	langs, _, err := client.Projects.GetProjectLanguages(project, gitlab.WithContext(ctx))
	if err != nil {
		return profile.Signals{}, fmt.Errorf("gitlab: languages of %s: %w", project, err)
	}

	sig := profile.Signals{
		RepositoryURL: p.WebURL,
		Name:          p.Path,
		Description:   p.Description,
		Topics:        p.Topics,
		LOCEstimated:  true,
	}
	if langs != nil {
		sig.Languages = histogram(map[string]float32(*langs), 100)
	}
	if p.Statistics != nil {
		sig.LOC = int(p.Statistics.RepositorySize / bytesPerLine)
	}

	ref := p.DefaultBranch
	paths, err := gitlabTree(ctx, client, project, ref)
	if err != nil {
		log.Printf("WARNING: gitlab: tree of %s: %v", project, err)
		return sig, nil
	}
	hostedTree{
		paths: paths,
		fetch: func(ctx context.Context, path string) ([]byte, error) {
			opt := &gitlab.GetRawFileOptions{}
			if ref != "" {
				opt.Ref = gitlab.Ptr(ref)
			}
			data, _, err := client.RepositoryFiles.GetRawFile(project, path, opt, gitlab.WithContext(ctx))
			return data, err
		},
	}.fill(ctx, &sig)
	return sig, nil
}

func gitlabTree(ctx context.Context, client *gitlab.Client, project, ref string) ([]string, error) {
	opt := &gitlab.ListTreeOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
		Recursive:   gitlab.Ptr(true),
	}
	if ref != "" {
		opt.Ref = gitlab.Ptr(ref)
	}
	var paths []string
	for page := 0; page < maxTreePages; page++ {
		nodes, resp, err := client.Repositories.ListTree(project, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if n.Type == "blob" {
				paths = append(paths, n.Path)
			}
		}
		if resp == nil || resp.NextPage == 0 {
			return paths, nil
		}
		opt.Page = resp.NextPage
	}
	log.Printf("WARNING: gitlab: tree of %s exceeds %d pages, listing truncated", project, maxTreePages)
	return paths, nil
}
