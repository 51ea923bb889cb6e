// cmd/docweave/regen.go
package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/julianshen/docweave/internal/output"
	"github.com/julianshen/docweave/internal/wiki"
)

func regenCmd() *cobra.Command {
	var (
		opts  generateOptions
		nodes []string
	)

	cmd := &cobra.Command{
		Use:   "regen <run-id>",
		Short: "Regenerate stubbed sections of a recorded run",
		Long: `Re-run generation for the stubbed sections of a recorded run, or for the
sections named with --node, then rewrite the run's bundle in place. The
documentation tree is not re-planned. A unique prefix of the run id is
accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts.apply(cfg)
			formatter, err := output.New(opts.report)
			if err != nil {
				return err
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.LoadRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(nodes) == 0 && run.Stubs == 0 && len(run.Documents) == run.Tree.Len() {
				stage(cmd, "run %s has no stubbed sections", run.ID)
				return nil
			}

			s, completer, err := newSynthesizer(cfg, "")
			if err != nil {
				return err
			}

			wcfg := wikiConfig(cfg)
			wcfg.Recorder = st
			printer := progressPrinter(cmd, &wcfg)

			ids := make([]wiki.NodeID, len(nodes))
			for i, n := range nodes {
				ids[i] = wiki.NodeID(n)
			}
			report, err := wiki.Regenerate(cmd.Context(), wiki.RegenInput{
				RunID:     run.ID,
				OutputDir: run.OutputDir,
				Tree:      run.Tree,
				Documents: run.Documents,
				Nodes:     ids,
			}, s, wcfg)
			if err != nil {
				return err
			}
			report.TaxonomyVersion = run.TaxonomyVersion
			return finishReport(cmd, formatter, report, printer, completer)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringSliceVar(&nodes, "node", nil, "section id to regenerate (repeatable; default: every stub)")
	return cmd
}

func runsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded generation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(w, "No recorded runs.")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("RUN", "STARTED", "REPOSITORY", "SECTIONS", "STUBS", "OUTPUT")
			for _, r := range runs {
				t.Row(r.ID[:8], r.StartedAt.Local().Format("2006-01-02 15:04"), r.Repository,
					fmt.Sprint(r.Nodes), fmt.Sprint(r.Stubs), r.OutputDir)
			}
			fmt.Fprintln(w, t.Render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print runs as JSON")
	return cmd
}
