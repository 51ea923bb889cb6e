package signals

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xanzy/go-gitlab"

	"github.com/julianshen/docweave/internal/profile"
)

const hostedPackage = `{"description": "Widgets", "dependencies": {"react": "18"}}`

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func encodedFile(content string) map[string]any {
	return map[string]any{
		"type":     "file",
		"encoding": "base64",
		"content":  base64.StdEncoding.EncodeToString([]byte(content)),
	}
}

func newGitHubServer(t *testing.T, readme bool) *github.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"name":           "widgets",
			"html_url":       "https://github.com/acme/widgets",
			"description":    "UI widgets",
			"topics":         []string{"react", "ui"},
			"default_branch": "main",
		})
	})
	mux.HandleFunc("/repos/acme/widgets/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]int{"JavaScript": 40000, "CSS": 4000})
	})
	mux.HandleFunc("/repos/acme/widgets/readme", func(w http.ResponseWriter, r *http.Request) {
		if !readme {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(t, w, map[string]string{"message": "Not Found"})
			return
		}
		writeJSON(t, w, encodedFile("# Widgets\n"))
	})
	mux.HandleFunc("/repos/acme/widgets/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		writeJSON(t, w, map[string]any{
			"sha": "abc",
			"tree": []map[string]string{
				{"path": "package.json", "type": "blob"},
				{"path": "src", "type": "tree"},
				{"path": "src/App.jsx", "type": "blob"},
				{"path": "node_modules/react/index.js", "type": "blob"},
				{"path": "README.md", "type": "blob"},
			},
		})
	})
	mux.HandleFunc("/repos/acme/widgets/contents/package.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		writeJSON(t, w, encodedFile(hostedPackage))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	c.BaseURL = base
	return c
}

func TestGitHubSignals(t *testing.T) {
	sig, err := GitHub(context.Background(), newGitHubServer(t, true), "acme", "widgets")
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/widgets", sig.RepositoryURL)
	assert.Equal(t, "widgets", sig.Name)
	assert.Equal(t, "UI widgets", sig.Description)
	assert.Equal(t, []string{"react", "ui"}, sig.Topics)
	assert.Equal(t, map[string]int64{"JavaScript": 40000, "CSS": 4000}, sig.Languages)
	assert.Equal(t, "# Widgets\n", sig.Readme)
	assert.Equal(t, []string{"package.json"}, sig.Manifests)
	assert.Equal(t, []string{"react"}, sig.Dependencies)
	assert.Equal(t, 3, sig.FileCount)
	assert.Equal(t, 1100, sig.LOC)
	assert.True(t, sig.LOCEstimated)
}

func TestGitHubMissingReadme(t *testing.T) {
	sig, err := GitHub(context.Background(), newGitHubServer(t, false), "acme", "widgets")
	require.NoError(t, err)
	assert.Empty(t, sig.Readme)
}

func TestGitHubUnknownRepository(t *testing.T) {
	_, err := GitHub(context.Background(), newGitHubServer(t, true), "acme", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme/missing")
}

func newGitLabServer(t *testing.T) *gitlab.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/42", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id":             42,
			"path":           "widgets",
			"name":           "Widgets",
			"web_url":        "https://gitlab.com/acme/widgets",
			"description":    "UI widgets",
			"topics":         []string{"react"},
			"default_branch": "main",
			"statistics":     map[string]any{"repository_size": 80000},
		})
	})
	mux.HandleFunc("/api/v4/projects/42/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]float64{"JavaScript": 75.5, "CSS": 24.5})
	})
	mux.HandleFunc("/api/v4/projects/42/repository/tree", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("recursive"))
		writeJSON(t, w, []map[string]string{
			{"path": "package.json", "name": "package.json", "type": "blob"},
			{"path": "src", "name": "src", "type": "tree"},
			{"path": "README.md", "name": "README.md", "type": "blob"},
		})
	})
	mux.HandleFunc("/api/v4/projects/42/repository/files/package.json/raw", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(hostedPackage))
	})
	mux.HandleFunc("/api/v4/projects/42/repository/files/README.md/raw", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# Widgets on GitLab\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewGitLabClient("", srv.URL)
	require.NoError(t, err)
	return c
}

func TestGitLabSignals(t *testing.T) {
	sig, err := GitLab(context.Background(), newGitLabServer(t), "42")
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.com/acme/widgets", sig.RepositoryURL)
	assert.Equal(t, "widgets", sig.Name)
	assert.Equal(t, []string{"react"}, sig.Topics)
	assert.Equal(t, map[string]int64{"JavaScript": 7550, "CSS": 2450}, sig.Languages)
	assert.Equal(t, "# Widgets on GitLab\n", sig.Readme)
	assert.Equal(t, []string{"react"}, sig.Dependencies)
	assert.Equal(t, 2, sig.FileCount)
	assert.Equal(t, 2000, sig.LOC)
	assert.True(t, sig.LOCEstimated)
}

func TestHistogramDropsZeroWeights(t *testing.T) {
	assert.Nil(t, histogram(map[string]int{"Go": 0}, 1))
	assert.Equal(t, map[string]int64{"Go": 3}, histogram(map[string]float32{"Go": 0.03, "C": 0}, 100))
}

func TestHostedFetchesManifestsConcurrently(t *testing.T) {
	var paths []string
	for i := range 8 {
		paths = append(paths, fmt.Sprintf("pkg%d/package.json", i))
	}
	var inFlight, peak atomic.Int32
	h := hostedTree{
		paths: paths,
		fetch: func(ctx context.Context, path string) ([]byte, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			if path == "pkg3/package.json" {
				return nil, errors.New("502 bad gateway")
			}
			return []byte(fmt.Sprintf(`{"dependencies": {"dep-%s": "1"}}`, path[:4])), nil
		},
	}

	var sig profile.Signals
	h.fill(context.Background(), &sig)

	assert.LessOrEqual(t, peak.Load(), int32(hostedFetchConcurrency))
	assert.Len(t, sig.Manifests, 8)
	assert.Equal(t, []string{"dep-pkg0", "dep-pkg1", "dep-pkg2", "dep-pkg4", "dep-pkg5", "dep-pkg6", "dep-pkg7"}, sig.Dependencies)
}
