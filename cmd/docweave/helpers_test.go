package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type workspace struct {
	repo   string
	docs   string
	config string
}

// newWorkspace creates a small Go repository and a config that writes
// bundles and the ledger under a temp dir.
func newWorkspace(t *testing.T) workspace {
	t.Helper()
	root := t.TempDir()
	ws := workspace{
		repo:   filepath.Join(root, "widgets"),
		docs:   filepath.Join(root, "docs"),
		config: filepath.Join(root, "config.toml"),
	}

	files := map[string]string{
		"go.mod":    "module example.com/widgets\n\ngo 1.22\n\nrequire github.com/spf13/cobra v1.8.0\n",
		"main.go":   "package main\n\nimport \"github.com/spf13/cobra\"\n\nfunc main() {\n\t_ = cobra.Command{}\n}\n",
		"README.md": "# Widgets\n\nA command line tool for developers.\n",
	}
	for name, content := range files {
		path := filepath.Join(ws.repo, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := fmt.Sprintf("[output]\ndir = %q\nversioned = false\n\n[store]\npath = %q\n",
		ws.docs, filepath.Join(root, "ledger.db"))
	require.NoError(t, os.WriteFile(ws.config, []byte(cfg), 0o644))
	return ws
}

// run executes a command against the workspace config, offline and quiet.
func (ws workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"--config", ws.config, "--offline", "-q"}, args...)...)
}
