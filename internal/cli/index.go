package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/colindex/colindex/colindex"
)

func (a *app) newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Create and maintain indexes",
	}
	cmd.AddCommand(
		a.newIndexCreateCmd(),
		a.newIndexSchemaCmd(),
		a.newIndexStatsCmd(),
		a.newIndexOptimizeCmd(),
	)
	return cmd
}

func (a *app) newIndexCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an index from a YAML or JSON schema file",
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaPath, _ := cmd.Flags().GetString("schema")
			if schemaPath == "" {
				return fmt.Errorf("missing --schema")
			}
			src, err := os.ReadFile(schemaPath)
			if err != nil {
				return fmt.Errorf("read schema: %w", err)
			}
			adapter, err := adapterFor(a.opts, true)
			if err != nil {
				return err
			}
			opts, err := a.indexOptions()
			if err != nil {
				return err
			}
			ix, err := colindex.Create(cmd.Context(), adapter, src, opts)
			if err != nil {
				return err
			}
			defer ix.Close()
			a.printer().line("created %s", adapter.IndexID())
			return nil
		},
	}
	cmd.Flags().String("schema", "", "schema file")
	return cmd
}

func (a *app) newIndexSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the fields of the index schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd.Context(), func(ix *colindex.Index) error {
				p := a.printer()
				if p.format == FormatJSON {
					b, err := ix.Schema().ToJSON()
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(p.w, string(b))
					return err
				}
				var rows [][]string
				for _, m := range ix.Schema().Mappers() {
					rows = append(rows, []string{
						m.Name(),
						string(m.Kind()),
						strconv.FormatBool(m.Indexed()),
						strconv.FormatBool(m.Sorted()),
						strings.Join(m.Columns(), ","),
					})
				}
				p.table([]string{"FIELD", "KIND", "INDEXED", "SORTED", "COLUMNS"}, rows)
				return nil
			})
		},
	}
}

func (a *app) newIndexStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show row and partition counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd.Context(), func(ix *colindex.Index) error {
				rows, err := ix.Store().CountRows(cmd.Context())
				if err != nil {
					return err
				}
				parts := ix.Partitions()
				p := a.printer()
				if p.format == FormatJSON {
					return p.json(map[string]any{"rows": rows, "partitions": parts})
				}
				p.kv([][2]string{
					{"Rows", strconv.Itoa(rows)},
					{"Partitions", strconv.Itoa(len(parts))},
				})
				return nil
			})
		},
	}
}

func (a *app) newIndexOptimizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Vacuum or analyze the index database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd.Context(), func(ix *colindex.Index) error {
				if err := ix.Optimize(cmd.Context()); err != nil {
					return err
				}
				a.printer().line("optimized")
				return nil
			})
		},
	}
}
