package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/colindex/colindex/colindex"
)

func (a *app) newDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Explore indexed values",
	}
	values := &cobra.Command{
		Use:   "values <field>",
		Short: "List the most frequent terms of a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			top, _ := cmd.Flags().GetInt("top")
			return a.withIndex(cmd.Context(), func(ix *colindex.Index) error {
				vals, err := ix.DiscoverValues(args[0], top)
				if err != nil {
					return err
				}
				p := a.printer()
				if p.format == FormatJSON {
					return p.json(vals)
				}
				rows := make([][]string, 0, len(vals))
				for _, v := range vals {
					rows = append(rows, []string{v.Value, strconv.FormatUint(v.Count, 10)})
				}
				p.table([]string{"VALUE", "COUNT"}, rows)
				return nil
			})
		},
	}
	values.Flags().Int("top", 20, "number of values")
	cmd.AddCommand(values)
	return cmd
}

func (a *app) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <field>",
		Short: "Summarize a numeric field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd.Context(), func(ix *colindex.Index) error {
				st, err := ix.Stats(args[0])
				if err != nil {
					return err
				}
				p := a.printer()
				if p.format == FormatJSON {
					return p.json(st)
				}
				p.kv([][2]string{
					{"Field", st.Field},
					{"Count", strconv.FormatUint(st.Count, 10)},
					{"Min", formatStat(st.Min)},
					{"Max", formatStat(st.Max)},
					{"Avg", formatStat(st.Avg)},
					{"Median", formatStat(st.Median)},
				})
				return nil
			})
		},
	}
}

func formatStat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func (a *app) newCursorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Manage stored short cursors",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired short cursors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd.Context(), func(ix *colindex.Index) error {
				n, err := ix.CleanupCursors(cmd.Context())
				if err != nil {
					return err
				}
				a.printer().line("removed %d cursors", n)
				return nil
			})
		},
	})
	return cmd
}
