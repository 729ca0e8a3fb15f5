package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cerrors "github.com/Aman-CERP/classindex/internal/errors"
	"github.com/Aman-CERP/classindex/internal/output"
)

func newShowCmd(g *globalOptions) *cobra.Command {
	var (
		flags      indexFlags
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show one class with its properties",
		Long:  `Show prints a single indexed class. The name must match exactly.`,
		Example: `  classindex show B_Soldier_F
  classindex show B_Soldier_F --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, _, err := g.loadIndex(flags)
			if err != nil {
				return err
			}

			entry, ok := ix.Get(args[0])
			if !ok {
				return cerrors.New(cerrors.ErrCodeClassNotFound,
					fmt.Sprintf("class not found: %s", args[0]), nil).
					WithSuggestion("Run 'classindex search " + args[0] + "' to look for similar names")
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), entry)
			}

			out := output.NewStyled(cmd.OutOrStdout(), g.noColor)
			out.Heading(entry.Class.Name)
			out.Field("Parent", 8, orDash(entry.Class.Parent))
			out.Field("File", 8, orDash(entry.Class.SourceFile))
			out.Field("Added", 8, entry.AddedAt.Format(time.RFC3339))
			out.Field("Updated", 8, entry.UpdatedAt.Format(time.RFC3339))
			out.Field("Hash", 8, entry.FileHash)

			out.Newline()
			if len(entry.Class.Properties) == 0 {
				out.Dim("No properties")
				return nil
			}
			out.Heading("Properties")
			for _, p := range entry.Class.Properties {
				out.Linef("  %s = %s", p.Key, p.Value)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
