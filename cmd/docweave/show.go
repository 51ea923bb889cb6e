// cmd/docweave/show.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/julianshen/docweave/internal/tui"
	"github.com/julianshen/docweave/internal/wiki"
)

func showCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <dir> [section]",
		Short: "List the sections of a bundle or print one",
		Long: `Without a section, list the sections of the bundle in <dir>. With a section
id or title, print that page, rendered for the terminal when stdout is one.
<dir> may be a repository directory of versioned runs, in which case the
latest run is shown.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := wiki.OpenBundle(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if len(args) == 1 {
				fmt.Fprintf(w, "%s (%s)\n\n", b.Profile.Name, b.Dir)
				for _, n := range b.Tree.Nodes() {
					indent := ""
					if !n.Root() {
						indent = "  "
					}
					fmt.Fprintf(w, "%s- %s  [%s] %s\n", indent, n.Title, n.ID, wiki.FileName(n.Title))
				}
				return nil
			}

			_, page, err := b.Page(args[1])
			if err != nil {
				return err
			}
			if raw || !styledWriter(w) {
				_, err = w.Write(page)
				return err
			}

			width := 0
			if cols, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = cols
			}
			r, err := tui.NewMarkdownRenderer(width, true)
			if err != nil {
				return err
			}
			rendered, err := r.Render(string(page))
			if err != nil {
				return err
			}
			fmt.Fprint(w, rendered)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print Markdown without terminal rendering")
	return cmd
}
