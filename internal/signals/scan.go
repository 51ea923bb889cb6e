package signals

import (
	"bytes"
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"github.com/julianshen/docweave/internal/integrations"
	"github.com/julianshen/docweave/internal/parser"
)

// extraLanguages covers languages counted in the histogram that the parser
// has no grammar for.
var extraLanguages = map[string]string{
	".kt":     "Kotlin",
	".kts":    "Kotlin",
	".swift":  "Swift",
	".php":    "PHP",
	".cs":     "C#",
	".scala":  "Scala",
	".dart":   "Dart",
	".ex":     "Elixir",
	".exs":    "Elixir",
	".hs":     "Haskell",
	".lua":    "Lua",
	".sh":     "Shell",
	".bash":   "Shell",
	".vue":    "Vue",
	".svelte": "Svelte",
	".m":      "Objective-C",
	".sol":    "Solidity",
	".r":      "R",
	".jl":     "Julia",
	".html":   "HTML",
	".css":    "CSS",
	".scss":   "SCSS",
}

// skipDirs contains directory names that should be excluded from scanning.
var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	".git":         true,
	"build":        true,
	"dist":         true,
	"__pycache__":  true,
	".venv":        true,
	"target":       true,
}

// languageOf returns the histogram name for a file, or "" when the file is
// not source code.
func languageOf(rel string) string {
	if l, ok := parser.Detect(rel); ok {
		return l.Name
	}
	return extraLanguages[strings.ToLower(filepath.Ext(rel))]
}

// listFiles returns slash-separated paths under dir. It uses git ls-files
// when dir is a repository and falls back to filepath.WalkDir.
func listFiles(ctx context.Context, dir string) ([]string, bool) {
	paths, err := integrations.NewGitRunner(dir).LsFiles(ctx)
	if err == nil {
		return paths, true
	}
	paths, err = walkFiles(dir)
	if err != nil {
		log.Printf("WARNING: listing %s: %v", dir, err)
	}
	return paths, false
}

// walkFiles lists every file under dir, skipping directories in skipDirs.
func walkFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("WARNING: skipping %q: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	return paths, err
}

// shouldSkip reports whether a path lies inside an excluded directory.
func shouldSkip(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, part := range parts[:len(parts)-1] {
		if skipDirs[part] {
			return true
		}
	}
	return false
}

// countLines counts newline-terminated lines plus a trailing partial line.
func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// isBinary treats content with a NUL byte in its first block as binary.
func isBinary(data []byte) bool {
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// isReadme matches README, README.md, readme.rst and similar at the root.
func isReadme(rel string) bool {
	if strings.Contains(rel, "/") {
		return false
	}
	base := strings.ToLower(rel)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem == "readme"
}

// readmeRank prefers markdown over other README flavours.
func readmeRank(rel string) int {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".md", ".markdown":
		return 0
	case ".rst", ".adoc":
		return 1
	case "":
		return 2
	}
	return 3
}

// fileImports parses one file and returns the modules it imports. The tree
// is closed before returning.
func fileImports(ctx context.Context, p *parser.Parser, rel string, source []byte) (string, []string) {
	tree, err := p.Parse(ctx, rel, source)
	if err != nil {
		return "", nil
	}
	defer tree.Close()
	return tree.Language().Name, tree.Imports()
}
