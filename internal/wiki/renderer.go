package wiki

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/julianshen/docweave/internal/profile"
)

// runDirLayout is the timestamp format of versioned bundle directories.
const runDirLayout = "20060102_150405"

var runDirPattern = regexp.MustCompile(`^\d{8}_\d{6}$`)

// BundleDir returns where a run's bundle is written. A versioned layout
// nests runs as <root>/<owner>_<repo>/<YYYYMMDD_HHMMSS>.
func BundleDir(root string, p profile.Profile, at time.Time, versioned bool) string {
	if !versioned {
		return root
	}
	return filepath.Join(root, repoSlug(p), at.UTC().Format(runDirLayout))
}

// repoSlug derives <owner>_<repo> from a repository URL.
func repoSlug(p profile.Profile) string {
	var parts []string
	keep := 2
	if u, err := url.Parse(p.RepositoryURL); err == nil && u.Path != "" {
		for _, s := range strings.Split(strings.Trim(u.Path, "/"), "/") {
			if s != "" {
				parts = append(parts, s)
			}
		}
		if u.Scheme == "file" {
			keep = 1
		}
	}
	if len(parts) > keep {
		parts = parts[len(parts)-keep:]
	}
	if len(parts) == 0 && p.Name != "" {
		parts = []string{p.Name}
	}
	if len(parts) == 0 {
		return "repository"
	}
	if n := len(parts) - 1; strings.HasSuffix(parts[n], ".git") {
		parts[n] = strings.TrimSuffix(parts[n], ".git")
	}
	return strings.TrimSuffix(FileName(strings.Join(parts, "_")), ".md")
}

// Write stores a bundle under dir. The two JSON artifacts are written
// all-or-nothing before any page: both go to temporary files first and a
// failure while publishing them restores the artifacts that were there
// before.
func Write(dir string, b *Bundle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	if err := writeArtifacts(dir, []artifact{
		{StructureFile, b.Structure},
		{MetadataFile, b.Metadata},
	}); err != nil {
		return err
	}
	for _, p := range b.Pages {
		if err := writeDoc(filepath.Join(dir, p.Name), p.Data); err != nil {
			return err
		}
	}
	return writeDoc(filepath.Join(dir, b.Index.Name), b.Index.Data)
}

type artifact struct {
	name string
	data []byte
}

// renameFile is swapped in tests to fail a publish.
var renameFile = os.Rename

func writeArtifacts(dir string, arts []artifact) error {
	temps := make([]string, 0, len(arts))
	cleanup := func() {
		for _, tmp := range temps {
			os.Remove(tmp)
		}
	}
	for _, a := range arts {
		tmp, err := writeTemp(dir, a.name, a.data)
		if err != nil {
			cleanup()
			return err
		}
		temps = append(temps, tmp)
	}

	// Artifacts from an earlier write are moved aside so a failed publish
	// can put them back.
	backups := make([]string, len(arts))
	rollback := func(n int) {
		for j := n - 1; j >= 0; j-- {
			final := filepath.Join(dir, arts[j].name)
			if backups[j] == "" {
				os.Remove(final)
				continue
			}
			if err := renameFile(backups[j], final); err != nil {
				log.Printf("WARNING: restoring %s: %v", arts[j].name, err)
			}
		}
		cleanup()
	}
	for i, a := range arts {
		final := filepath.Join(dir, a.name)
		if _, err := os.Lstat(final); err == nil {
			backup := filepath.Join(dir, "."+a.name+".prev")
			os.RemoveAll(backup)
			if err := renameFile(final, backup); err != nil {
				rollback(i)
				return fmt.Errorf("publishing %s: %w", a.name, err)
			}
			backups[i] = backup
		}
		if err := renameFile(temps[i], final); err != nil {
			rollback(i + 1)
			return fmt.Errorf("publishing %s: %w", a.name, err)
		}
	}
	for _, b := range backups {
		if b != "" {
			os.RemoveAll(b)
		}
	}
	return nil
}

func writeTemp(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Name(), nil
}

// writeDoc creates parent directories and writes content to the given path.
func writeDoc(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// OpenedBundle is a bundle read back from disk.
type OpenedBundle struct {
	Dir     string
	Profile profile.Profile
	Tree    *Tree
}

// Page returns the markdown of a node's page, matched by id or title.
func (o *OpenedBundle) Page(ref string) (Node, []byte, error) {
	n, ok := o.Tree.Node(NodeID(ref))
	if !ok {
		for _, c := range o.Tree.Nodes() {
			if strings.EqualFold(c.Title, ref) {
				n, ok = c, true
				break
			}
		}
	}
	if !ok {
		return Node{}, nil, fmt.Errorf("no section %q in %s", ref, o.Dir)
	}
	data, err := os.ReadFile(filepath.Join(o.Dir, FileName(n.Title)))
	if err != nil {
		return Node{}, nil, fmt.Errorf("reading section: %w", err)
	}
	return n, data, nil
}

// OpenBundle reads a bundle. dir may be a bundle itself or a repository
// directory of versioned runs, in which case the latest run is opened.
func OpenBundle(dir string) (*OpenedBundle, error) {
	resolved, err := LatestRun(dir)
	if err != nil {
		return nil, err
	}
	meta, err := os.ReadFile(filepath.Join(resolved, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("reading bundle: %w", err)
	}
	var p profile.Profile
	if err := json.Unmarshal(meta, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", MetadataFile, err)
	}
	structure, err := os.ReadFile(filepath.Join(resolved, StructureFile))
	if err != nil {
		return nil, fmt.Errorf("reading bundle: %w", err)
	}
	t, err := ParseStructure(p, structure)
	if err != nil {
		return nil, err
	}
	return &OpenedBundle{Dir: resolved, Profile: p, Tree: t}, nil
}

// LatestRun resolves dir to a bundle directory.
func LatestRun(dir string) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, StructureFile)); err == nil {
		return dir, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dir, err)
	}
	var runs []string
	for _, e := range entries {
		if e.IsDir() && runDirPattern.MatchString(e.Name()) {
			runs = append(runs, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runs)))
	for _, r := range runs {
		candidate := filepath.Join(dir, r)
		if _, err := os.Stat(filepath.Join(candidate, StructureFile)); err == nil {
			return candidate, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no documentation bundle in %s", dir)
}
