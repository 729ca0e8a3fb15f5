package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/classindex/internal/output"
	"github.com/Aman-CERP/classindex/internal/store"
)

type queryOptions struct {
	index      indexFlags
	parent     string
	property   string
	value      string
	file       string
	sortBy     string
	descending bool
	limit      int
	jsonOutput bool
}

func newQueryCmd(g *globalOptions) *cobra.Command {
	o := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List indexed classes matching filters",
		Long: `Query lists the classes in the index. Filters combine with AND:

  --parent    the raw parent name equals the value
  --property  the class has a property with this key
  --value     the class has a property with exactly this value
  --file      the class was defined in this file

Results are ordered by name unless --sort selects name, added_at or
updated_at. --limit truncates after filtering and sorting.`,
		Example: `  # Every class inheriting from Man
  classindex query --parent Man

  # The 10 most recently updated classes that set displayName
  classindex query --property displayName --sort updated_at --desc --limit 10

  # Classes from one file as JSON
  classindex query --file addons/units/config.cpp --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, g, o)
		},
	}

	o.index.register(cmd)
	cmd.Flags().StringVar(&o.parent, "parent", "", "Parent class name")
	cmd.Flags().StringVar(&o.property, "property", "", "Property name")
	cmd.Flags().StringVar(&o.value, "value", "", "Property value")
	cmd.Flags().StringVar(&o.file, "file", "", "Source file")
	cmd.Flags().StringVar(&o.sortBy, "sort", "", "Sort by: name, added_at, updated_at")
	cmd.Flags().BoolVar(&o.descending, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "Maximum results (0 = all)")
	cmd.Flags().BoolVar(&o.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runQuery(cmd *cobra.Command, g *globalOptions, o *queryOptions) error {
	ix, _, err := g.loadIndex(o.index)
	if err != nil {
		return err
	}

	if o.sortBy != "" && !store.ValidSortKey(o.sortBy) && !o.jsonOutput {
		output.NewStyled(cmd.ErrOrStderr(), g.noColor).
			Warningf("unknown sort field %q, results stay in name order", o.sortBy)
	}

	results := store.Query(ix, store.QueryOptions{
		Parent:        o.parent,
		PropertyName:  o.property,
		PropertyValue: o.value,
		SortBy:        o.sortBy,
		Descending:    o.descending,
	})

	if o.file != "" {
		path, err := filepath.Abs(o.file)
		if err != nil {
			return err
		}
		inFile := make(map[string]bool)
		for _, e := range ix.ClassesInFile(path) {
			inFile[e.Class.Name] = true
		}
		kept := results[:0]
		for _, e := range results {
			if inFile[e.Class.Name] {
				kept = append(kept, e)
			}
		}
		results = kept
	}

	if o.limit > 0 && len(results) > o.limit {
		results = results[:o.limit]
	}

	if o.jsonOutput {
		return printJSON(cmd.OutOrStdout(), results)
	}
	printEntries(cmd.OutOrStdout(), results)
	return nil
}

// printEntries writes entries as an aligned table followed by a count.
func printEntries(out io.Writer, entries []*store.IndexEntry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "No classes found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tPARENT\tPROPERTIES\tFILE")
	_, _ = fmt.Fprintln(w, "----\t------\t----------\t----")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			e.Class.Name, orDash(e.Class.Parent), len(e.Class.Properties), orDash(e.Class.SourceFile))
	}
	_ = w.Flush()

	noun := "classes"
	if len(entries) == 1 {
		noun = "class"
	}
	_, _ = fmt.Fprintf(out, "\n%d %s\n", len(entries), noun)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
