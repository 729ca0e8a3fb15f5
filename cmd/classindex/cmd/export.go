package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/classindex/internal/output"
	"github.com/Aman-CERP/classindex/internal/store"
)

func newExportCmd(g *globalOptions) *cobra.Command {
	var flags indexFlags

	cmd := &cobra.Command{
		Use:   "export <file.db>",
		Short: "Export the class index to a SQLite database",
		Long: `Export writes every class, property and file mapping to a new SQLite
database, replacing the file if it exists. Tables: classes, properties, files.`,
		Example: `  classindex export classes.db
  sqlite3 classes.db "SELECT name FROM classes WHERE parent = 'Man'"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, _, err := g.loadIndex(flags)
			if err != nil {
				return err
			}
			if err := store.ExportSQLite(cmd.Context(), ix, args[0]); err != nil {
				return err
			}
			output.NewStyled(cmd.OutOrStdout(), g.noColor).
				Successf("Exported %d classes to %s", ix.Len(), args[0])
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
