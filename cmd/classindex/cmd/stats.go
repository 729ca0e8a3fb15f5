package cmd

import (
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/classindex/internal/output"
	"github.com/Aman-CERP/classindex/internal/store"
)

// topParentCount is the number of parents listed by the stats command.
const topParentCount = 5

// StatsOutput is the JSON shape of the stats command.
type StatsOutput struct {
	IndexPath  string        `json:"index_path"`
	Version    string        `json:"version"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Classes    int           `json:"total_classes"`
	Files      int           `json:"total_files"`
	Unhashed   int           `json:"unknown_hash_classes"`
	TopParents []ParentCount `json:"top_parents"`
}

// ParentCount is the number of classes naming Parent as their parent.
type ParentCount struct {
	Parent string `json:"parent"`
	Count  int    `json:"count"`
}

func newStatsCmd(g *globalOptions) *cobra.Command {
	var (
		flags      indexFlags
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show class index totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ix, path, err := g.loadIndex(flags)
			if err != nil {
				return err
			}
			stats := collectStats(ix, path)

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), stats)
			}

			out := output.NewStyled(cmd.OutOrStdout(), g.noColor)
			out.Heading("Class Index")
			out.Field("Path", 10, stats.IndexPath)
			out.Field("Version", 10, stats.Version)
			out.Field("Created", 10, stats.CreatedAt.Format(time.RFC3339))
			out.Field("Updated", 10, stats.UpdatedAt.Format(time.RFC3339))
			out.Field("Classes", 10, stats.Classes)
			out.Field("Files", 10, stats.Files)
			if stats.Unhashed > 0 {
				out.Field("Unhashed", 10, stats.Unhashed)
			}
			if len(stats.TopParents) > 0 {
				out.Newline()
				out.Heading("Most Inherited")
				for _, p := range stats.TopParents {
					out.Field(p.Parent, 24, p.Count)
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func collectStats(ix *store.ClassIndex, path string) StatsOutput {
	totals := ix.Stats()
	stats := StatsOutput{
		IndexPath:  path,
		Version:    ix.Version,
		CreatedAt:  ix.CreatedAt,
		UpdatedAt:  ix.UpdatedAt,
		Classes:    totals.TotalClasses,
		Files:      totals.TotalFiles,
		TopParents: []ParentCount{},
	}

	parents := make(map[string]int)
	for _, e := range ix.Entries {
		if e.FileHash == store.UnknownHash {
			stats.Unhashed++
		}
		if e.Class.Parent != "" {
			parents[e.Class.Parent]++
		}
	}
	for parent, n := range parents {
		stats.TopParents = append(stats.TopParents, ParentCount{Parent: parent, Count: n})
	}
	sort.Slice(stats.TopParents, func(i, j int) bool {
		a, b := stats.TopParents[i], stats.TopParents[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Parent < b.Parent
	})
	if len(stats.TopParents) > topParentCount {
		stats.TopParents = stats.TopParents[:topParentCount]
	}
	return stats
}
