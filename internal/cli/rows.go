package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/colindex/colindex/colindex"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/storage"
)

const maxLineSize = 16 << 20

func (a *app) newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Load rows from JSON lines",
		Long: `Load rows from JSON lines read from --file or stdin. Each line is
{"partition": "...", "key": "...", "columns": {...}, "types": {...}}
where types optionally declares the native type of a column.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			var r io.Reader = a.stdin
			if path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return a.withIndex(cmd.Context(), func(ix *colindex.Index) error {
				n, err := putLines(cmd, ix, r)
				if err != nil {
					return err
				}
				a.printer().line("imported %d", n)
				return nil
			})
		},
	}
	cmd.Flags().StringP("file", "f", "", "JSON lines file (default stdin)")
	return cmd
}

// putLines queues every non-blank line and applies them as one batch.
func putLines(cmd *cobra.Command, ix *colindex.Index, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	batch := colindex.NewBatch()
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		batch.PutJSON(line)
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return ix.Batch(cmd.Context(), batch)
}

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <partition> <key>",
		Short: "Show the stored columns of a row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd.Context(), func(ix *colindex.Index) error {
				row, err := ix.Get(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				p := a.printer()
				if p.format == FormatJSON {
					return p.json(columnsView(row))
				}
				pairs := make([][2]string, 0, len(row))
				for _, col := range row {
					pairs = append(pairs, [2]string{col.Name, formatColumn(col)})
				}
				p.kv(pairs)
				return nil
			})
		},
	}
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <partition> <key>",
		Short: "Delete a row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd.Context(), func(ix *colindex.Index) error {
				found, err := ix.Delete(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("not found: %s/%s", args[0], args[1])
				}
				a.printer().line("deleted")
				return nil
			})
		},
	}
}

// columnsView renders a row as column name to stored text.
func columnsView(row mapping.Columns) map[string]string {
	out := make(map[string]string, len(row))
	for _, col := range row {
		out[col.Name] = formatValue(col)
	}
	return out
}

func formatColumn(col mapping.Column) string {
	return fmt.Sprintf("%s (%s)", formatValue(col), col.Type)
}

func formatValue(col mapping.Column) string {
	s, err := storage.EncodeValue(col.Type, col.Value)
	if err != nil {
		return fmt.Sprint(col.Value)
	}
	return s
}
