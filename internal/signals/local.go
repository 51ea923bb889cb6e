// Package signals collects the raw repository facts the profiler classifies,
// either from a checkout on disk or from a hosting API.
package signals

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/julianshen/docweave/internal/integrations"
	"github.com/julianshen/docweave/internal/parser"
	"github.com/julianshen/docweave/internal/profile"
)

// LocalOptions tunes a scan of a directory.
type LocalOptions struct {
	// Workers bounds how many files are read at once.
	Workers int
	// MaxFileBytes skips larger files entirely.
	MaxFileBytes int64
	// MaxReadmeBytes truncates the README text.
	MaxReadmeBytes int
	// Imports enables tree-sitter import extraction.
	Imports bool
}

// DefaultLocalOptions returns the options used by the CLI.
func DefaultLocalOptions() LocalOptions {
	return LocalOptions{
		Workers:        8,
		MaxFileBytes:   1 << 20,
		MaxReadmeBytes: 64 << 10,
		Imports:        true,
	}
}

// scanned is the state shared by the scan workers.
type scanned struct {
	mu        sync.Mutex
	files     int
	loc       int
	languages map[string]int64
	deps      map[string]bool
	manifests []string
	infos     map[string]manifestInfo
	readme    string
	readmeRel string
}

func (s *scanned) addDeps(deps []string) {
	for _, d := range deps {
		if d = strings.TrimSpace(d); d != "" {
			s.deps[d] = true
		}
	}
}

// Local scans dir and returns its signals. The file list comes from git when
// dir is a repository, so ignored files are never counted.
func Local(ctx context.Context, dir string, opts LocalOptions) (profile.Signals, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return profile.Signals{}, fmt.Errorf("signals: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return profile.Signals{}, fmt.Errorf("signals: %w", err)
	}
	if !info.IsDir() {
		return profile.Signals{}, fmt.Errorf("signals: %s is not a directory", dir)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	files, _ := listFiles(ctx, abs)
	sort.Strings(files)

	st := &scanned{
		languages: make(map[string]int64),
		deps:      make(map[string]bool),
		infos:     make(map[string]manifestInfo),
	}
	p := pool.New().WithMaxGoroutines(opts.Workers)
	for _, rel := range files {
		if shouldSkip(rel) {
			continue
		}
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			scanFile(ctx, abs, rel, opts, st)
		})
	}
	p.Wait()
	if err := ctx.Err(); err != nil {
		return profile.Signals{}, err
	}

	sig := profile.Signals{
		Readme:    st.readme,
		LOC:       st.loc,
		FileCount: st.files,
	}
	if len(st.languages) > 0 {
		sig.Languages = st.languages
	}
	sort.Strings(st.manifests)
	sig.Manifests = st.manifests
	sig.Dependencies = sortedKeys(st.deps)
	sig.Description, sig.Topics = describe(st.manifests, st.infos)

	remote, err := integrations.NewGitRunner(abs).RemoteURL(ctx)
	if err != nil || remote == "" {
		sig.RepositoryURL = "file://" + filepath.ToSlash(abs)
		sig.Name = filepath.Base(abs)
	} else {
		sig.RepositoryURL = remote
		sig.Name = path.Base(remote)
	}
	return sig, nil
}

func scanFile(ctx context.Context, root, rel string, opts LocalOptions, st *scanned) {
	fi, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil || !fi.Mode().IsRegular() {
		return
	}
	lang := languageOf(rel)
	manifest := isManifest(rel)
	readme := isReadme(rel)

	var (
		data  []byte
		lines int
		mods  []string
		mi    manifestInfo
	)
	wants := lang != "" || (manifest && hasParser(rel)) || readme
	if wants && (opts.MaxFileBytes <= 0 || fi.Size() <= opts.MaxFileBytes) {
		data, err = os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil || isBinary(data) {
			data = nil
		}
	}
	if data != nil && lang != "" {
		lines = countLines(data)
		if opts.Imports {
			if _, ok := parser.Detect(rel); ok {
				parsedLang, imports := fileImports(ctx, parser.NewParser(), rel, data)
				for _, imp := range imports {
					if m, ok := importModule(parsedLang, imp); ok {
						mods = append(mods, m)
					}
				}
			}
		}
	}
	if data != nil && manifest {
		mi, err = parseManifest(rel, data)
		if err != nil {
			log.Printf("WARNING: %v", err)
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.files++
	if lines > 0 {
		st.loc += lines
		st.languages[lang] += int64(lines)
	}
	st.addDeps(mods)
	if manifest {
		st.manifests = append(st.manifests, rel)
		st.infos[rel] = mi
		st.addDeps(mi.Dependencies)
	}
	if readme && data != nil && (st.readmeRel == "" || better(rel, st.readmeRel)) {
		st.readmeRel = rel
		st.readme = truncate(string(data), opts.MaxReadmeBytes)
	}
}

func better(rel, current string) bool {
	if a, b := readmeRank(rel), readmeRank(current); a != b {
		return a < b
	}
	return rel < current
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return strings.ToValidUTF8(s[:limit], "")
}

// describe takes the description and keywords of root-level manifests, in
// path order.
func describe(manifests []string, infos map[string]manifestInfo) (string, []string) {
	var desc string
	seen := make(map[string]bool)
	var topics []string
	for _, rel := range manifests {
		if strings.Contains(rel, "/") {
			continue
		}
		mi := infos[rel]
		if desc == "" {
			desc = mi.Description
		}
		for _, k := range mi.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" && !seen[k] {
				seen[k] = true
				topics = append(topics, k)
			}
		}
	}
	return desc, topics
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
