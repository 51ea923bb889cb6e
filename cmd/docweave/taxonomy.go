// cmd/docweave/taxonomy.go
package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/julianshen/docweave/internal/profile"
)

func taxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy [path|url]",
		Short: "List the topic catalog",
		Long: `List the templates of the loaded topic catalog. Given a repository, also
show which templates apply to its profile.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tax, err := loadTaxonomy(cfg)
			if err != nil {
				return err
			}

			var p *profile.Profile
			if len(args) == 1 {
				src, err := parseSource(args[0], cfg.Sources.GitLab.BaseURL)
				if err != nil {
					return err
				}
				sig, err := collectSignals(cmd.Context(), cfg, src)
				if err != nil {
					return err
				}
				classified, err := profile.Classify(sig)
				if err != nil {
					return fmt.Errorf("profile: %w", err)
				}
				p = &classified
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Taxonomy %s (%s)\n", tax.Version().Original(), tax.Source())
			if p != nil {
				fmt.Fprintf(w, "Profile: %s, %s, %s\n", p.BusinessDomain, p.ArchitecturePattern, p.SizeSignal)
			}

			headers := []string{"ID", "TITLE", "PARENT", "ORDER"}
			if p != nil {
				headers = append(headers, "APPLIES")
			}
			t := table.New().Border(lipgloss.NormalBorder()).Headers(headers...)
			for _, tpl := range tax.Templates() {
				row := []string{tpl.ID, tpl.Title, tpl.ParentID, fmt.Sprint(tpl.Order)}
				if p != nil {
					ok, err := tax.Applicable(tpl, *p)
					switch {
					case err != nil:
						row = append(row, "error: "+err.Error())
					case ok:
						row = append(row, "yes")
					default:
						row = append(row, "no")
					}
				}
				t.Row(row...)
			}
			fmt.Fprintln(w, t.Render())
			return nil
		},
	}
	return cmd
}
