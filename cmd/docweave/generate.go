// cmd/docweave/generate.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/julianshen/docweave/internal/config"
	"github.com/julianshen/docweave/internal/integrations"
	"github.com/julianshen/docweave/internal/output"
	"github.com/julianshen/docweave/internal/profile"
	"github.com/julianshen/docweave/internal/tui"
	"github.com/julianshen/docweave/internal/wiki"
)

// generateOptions are the flags shared by generate and regen.
type generateOptions struct {
	output      string
	format      string
	report      string
	concurrency int
}

func (o *generateOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "", "bundle format: markdown, hugo, docusaurus (default from config)")
	cmd.Flags().StringVar(&o.report, "report", "markdown", "summary format: markdown, json")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 0, "max parallel generations (default from config)")
}

// apply overrides config values with the flags that were set.
func (o *generateOptions) apply(cfg *config.Config) {
	if o.output != "" {
		cfg.Output.Dir = o.output
	}
	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.concurrency > 0 {
		cfg.Generation.Concurrency = o.concurrency
	}
}

func generateCmd() *cobra.Command {
	var (
		opts     generateOptions
		flat     bool
		noLedger bool
	)

	cmd := &cobra.Command{
		Use:   "generate <path|url>",
		Short: "Generate the documentation bundle for a repository",
		Long: `Profile a local directory, a GitHub repository or a GitLab project, plan
its documentation tree, generate every section and write the bundle.

Sections that fail after retries are written as stubs and can be retried
later with "docweave regen".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts.apply(cfg)
			if flat {
				cfg.Output.Versioned = false
			}
			formatter, err := output.New(opts.report)
			if err != nil {
				return err
			}

			tax, err := loadTaxonomy(cfg)
			if err != nil {
				return err
			}
			src, err := parseSource(args[0], cfg.Sources.GitLab.BaseURL)
			if err != nil {
				return err
			}
			stage(cmd, "collecting signals from %s...", src)
			sig, err := collectSignals(cmd.Context(), cfg, src)
			if err != nil {
				return err
			}

			s, completer, err := newSynthesizer(cfg, guideFor(src))
			if err != nil {
				return err
			}

			wcfg := wikiConfig(cfg)
			if !noLedger {
				st, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer st.Close()
				wcfg.Recorder = st
			}
			printer := progressPrinter(cmd, &wcfg)

			report, err := wiki.Run(cmd.Context(), sig, tax, s, wcfg)
			if err != nil {
				return err
			}
			return finishReport(cmd, formatter, report, printer, completer)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output root directory (default from config)")
	cmd.Flags().BoolVar(&flat, "flat", false, "write directly into the output directory instead of <owner>_<repo>/<timestamp>")
	cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "do not record the run for regen")
	return cmd
}

func planCmd() *cobra.Command {
	var withProfile bool

	cmd := &cobra.Command{
		Use:   "plan <path|url>",
		Short: "Profile a repository and print its documentation structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tax, err := loadTaxonomy(cfg)
			if err != nil {
				return err
			}
			src, err := parseSource(args[0], cfg.Sources.GitLab.BaseURL)
			if err != nil {
				return err
			}
			sig, err := collectSignals(cmd.Context(), cfg, src)
			if err != nil {
				return err
			}
			p, err := profile.Classify(sig)
			if err != nil {
				return fmt.Errorf("profile: %w", err)
			}
			tree, err := wiki.Plan(p, tax)
			if err != nil {
				return fmt.Errorf("plan: %w", err)
			}

			if withProfile {
				data, err := json.MarshalIndent(p, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			}
			data, err := wiki.MarshalStructure(tree)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&withProfile, "profile", false, "also print the repository profile")
	return cmd
}

// wikiConfig maps the loaded config onto the pipeline config.
func wikiConfig(cfg *config.Config) wiki.Config {
	gen := wiki.DefaultGenerateConfig()
	if cfg.Generation.Concurrency > 0 {
		gen.Concurrency = cfg.Generation.Concurrency
	}
	return wiki.Config{
		OutputRoot: cfg.Output.Dir,
		Versioned:  cfg.Output.Versioned,
		Format:     cfg.Output.Format,
		Generate:   gen,
		Quiet:      quietFlag,
	}
}

// progressPrinter attaches a progress printer to wcfg unless --quiet is set.
func progressPrinter(cmd *cobra.Command, wcfg *wiki.Config) *tui.ProgressPrinter {
	if quietFlag {
		return nil
	}
	w := cmd.ErrOrStderr()
	printer := tui.NewProgressPrinter(w, styledWriter(w))
	wcfg.Generate.Progress = printer.Print
	return printer
}

// finishReport prints the status bar and the summary report. A canceled run
// is reported and then returned as an error.
func finishReport(cmd *cobra.Command, f output.Formatter, report *wiki.Report, printer *tui.ProgressPrinter, completer *integrations.LLMCompleter) error {
	if printer != nil {
		sb := tui.NewStatusBar()
		printer.Status(sb)
		if completer != nil {
			sb.SetTokens(completer.Usage())
		}
		fmt.Fprintln(cmd.ErrOrStderr(), sb.View())
	}

	out, err := f.Format(report)
	if err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return err
	}
	if report.Canceled {
		return fmt.Errorf("generation canceled")
	}
	return nil
}

// styledWriter reports whether w is a terminal that accepts styling.
func styledWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
