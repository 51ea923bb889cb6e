// cmd/docweave/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/julianshen/docweave/internal/config"
	"github.com/julianshen/docweave/internal/store"

	// Register providers via init() side effects.
	_ "github.com/julianshen/docweave/internal/provider/anthropic"
	_ "github.com/julianshen/docweave/internal/provider/openai"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath   string
	taxonomyFlag string
	offlineFlag  bool
	quietFlag    bool
)

func versionString() string {
	return fmt.Sprintf("docweave %s (commit: %s, built: %s)", version, commit, date)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docweave",
		Short: "Generate structured documentation for a repository",
		Long: `docweave profiles a repository, plans a documentation tree from a topic
taxonomy, generates every section concurrently and writes a cross-linked
Markdown bundle.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&taxonomyFlag, "taxonomy", "", "topic catalog file (default: built-in)")
	rootCmd.PersistentFlags().BoolVar(&offlineFlag, "offline", false, "generate template content without an LLM")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress progress output")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(regenCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(taxonomyCmd())
	rootCmd.AddCommand(versionCmd)
	return rootCmd
}

// configDir returns ~/.config/docweave.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "docweave"), nil
}

// loadConfig resolves the config path and loads the config.
func loadConfig() (*config.Config, error) {
	cfgPath := configPath
	if cfgPath == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		cfgPath = filepath.Join(dir, "config.toml")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openStore opens the run ledger at [store].path or ~/.config/docweave/ledger.db.
func openStore(cfg *config.Config) (*store.Store, error) {
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(dir, "ledger.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening run ledger: %w", err)
	}
	return s, nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// stage prints an operator progress line unless --quiet is set.
func stage(cmd *cobra.Command, format string, args ...any) {
	if quietFlag {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "docweave: "+format+"\n", args...)
}
