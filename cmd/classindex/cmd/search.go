package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/classindex/internal/store"
)

func newSearchCmd(g *globalOptions) *cobra.Command {
	var (
		flags      indexFlags
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <terms...>",
		Short: "Full-text search over class names and properties",
		Long: `Search matches terms against class names, parents, property keys and
values, and source paths. Identifiers are split on underscores and case
changes, so "soldier" finds B_Soldier_F and SoldierBase.`,
		Example: `  classindex search soldier
  classindex search "hmg turret" --limit 20`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, _, err := g.loadIndex(flags)
			if err != nil {
				return err
			}

			searcher, err := store.NewSearcher(cmd.Context(), ix)
			if err != nil {
				return err
			}
			defer func() { _ = searcher.Close() }()

			hits, err := searcher.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), hits)
			}

			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				_, _ = fmt.Fprintln(out, "No matches")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "SCORE\tNAME\tPARENT")
			_, _ = fmt.Fprintln(w, "-----\t----\t------")
			for _, h := range hits {
				parent := "-"
				if e, ok := ix.Get(h.Name); ok {
					parent = orDash(e.Class.Parent)
				}
				_, _ = fmt.Fprintf(w, "%.3f\t%s\t%s\n", h.Score, h.Name, parent)
			}
			return w.Flush()
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
