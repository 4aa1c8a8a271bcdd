package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/colindex/colindex/colindex"
	"github.com/colindex/colindex/colindex/condition"
	"github.com/colindex/colindex/colindex/query"
	"github.com/colindex/colindex/colindex/search"
)

// readQuery returns the search JSON from the argument, from --file, or
// from stdin when the argument is "-".
func (a *app) readQuery(cmd *cobra.Command, args []string) ([]byte, error) {
	path, _ := cmd.Flags().GetString("file")
	switch {
	case path != "":
		return os.ReadFile(path)
	case len(args) == 1 && args[0] == "-":
		return io.ReadAll(a.stdin)
	case len(args) == 1:
		return []byte(args[0]), nil
	}
	return nil, fmt.Errorf("provide a search as argument, - for stdin, or --file")
}

// whereSearch builds the search JSON from --where, --rank and --sort.
func whereSearch(cmd *cobra.Command, ix *colindex.Index) ([]byte, error) {
	where, _ := cmd.Flags().GetString("where")
	rank, _ := cmd.Flags().GetString("rank")
	sortSpec, _ := cmd.Flags().GetString("sort")
	field, _ := cmd.Flags().GetString("default-field")

	opts := []query.Option{query.WithSchema(ix.Schema()), query.WithDefaultField(field)}
	var filter, scored condition.Condition
	var err error
	if where != "" {
		if filter, err = query.Parse(where, opts...); err != nil {
			return nil, fmt.Errorf("--where: %w", err)
		}
	}
	if rank != "" {
		if scored, err = query.Parse(rank, opts...); err != nil {
			return nil, fmt.Errorf("--rank: %w", err)
		}
	}
	s, err := search.New(scored, filter, parseSortFlag(sortSpec), false)
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// parseSortFlag reads "age,-name": a leading '-' sorts descending.
func parseSortFlag(spec string) []search.SortClause {
	var clauses []search.SortClause
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c := search.SortClause{Field: part}
		if strings.HasPrefix(part, "-") {
			c = search.SortClause{Field: part[1:], Reverse: true}
		}
		clauses = append(clauses, c)
	}
	return clauses
}

func (a *app) newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [json|-]",
		Short: "Run a search",
		Long: `Run a JSON search given as argument, on stdin ("-") or with --file.
Alternatively describe it with flags:

  colindex -i people search --where 'city:madrid age>=30' --sort -age
  colindex -i logs search --rank 'message:timeout^2 level:error' --where 'ts>-1d'

--where restricts without scoring, --rank contributes to relevance.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flagged := cmd.Flags().Changed("where") || cmd.Flags().Changed("rank") || cmd.Flags().Changed("sort")
			var data []byte
			if !flagged {
				var err error
				if data, err = a.readQuery(cmd, args); err != nil {
					return err
				}
			} else if len(args) > 0 {
				return fmt.Errorf("a JSON search cannot be combined with --where, --rank or --sort")
			}
			limit, _ := cmd.Flags().GetInt("limit")
			after, _ := cmd.Flags().GetString("after")
			mode, _ := cmd.Flags().GetString("cursor")
			explain, _ := cmd.Flags().GetBool("explain")
			fetch, _ := cmd.Flags().GetBool("fetch")
			if mode != string(colindex.CursorShort) && mode != string(colindex.CursorFull) {
				return fmt.Errorf("unknown cursor mode %q", mode)
			}
			opts := colindex.SearchOptions{
				Limit:      limit,
				After:      after,
				CursorMode: colindex.CursorMode(mode),
				Explain:    explain,
				Fetch:      fetch,
			}
			return a.withIndex(cmd.Context(), func(ix *colindex.Index) error {
				if flagged {
					var err error
					if data, err = whereSearch(cmd, ix); err != nil {
						return err
					}
				}
				start := time.Now()
				page, err := ix.Search(cmd.Context(), data, opts)
				if err != nil {
					return err
				}
				return a.printSearch(page, time.Since(start))
			})
		},
	}
	cmd.Flags().StringP("file", "f", "", "search JSON file")
	cmd.Flags().StringP("where", "w", "", "filter expression, e.g. 'city:madrid age>=30'")
	cmd.Flags().String("rank", "", "scored expression")
	cmd.Flags().String("sort", "", "sort fields, e.g. 'age,-name'")
	cmd.Flags().String("default-field", "", "field searched by bare terms")
	cmd.Flags().Int("limit", colindex.DefaultLimit, "page size")
	cmd.Flags().String("after", "", "cursor returned by the previous page")
	cmd.Flags().String("cursor", string(colindex.CursorShort), "cursor: short|full")
	cmd.Flags().Bool("explain", false, "print the compiled query plan")
	cmd.Flags().Bool("fetch", false, "print the stored columns of every hit")
	return cmd
}

type hitView struct {
	Partition  string            `json:"partition"`
	Key        string            `json:"key"`
	Score      float64           `json:"score"`
	SortValues []string          `json:"sort,omitempty"`
	Columns    map[string]string `json:"columns,omitempty"`
}

type pageView struct {
	Hits       []hitView `json:"hits"`
	NextCursor string    `json:"next_cursor,omitempty"`
	HasMore    bool      `json:"has_more"`
	Explain    []string  `json:"explain,omitempty"`
}

func newPageView(page colindex.SearchResultPage) pageView {
	v := pageView{
		Hits:       make([]hitView, 0, len(page.Items)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
		Explain:    page.ExplainSteps,
	}
	for _, it := range page.Items {
		h := hitView{Partition: it.Partition, Key: it.Key, Score: it.Score}
		for _, sv := range it.SortValues {
			h.SortValues = append(h.SortValues, sv.String())
		}
		if it.Columns != nil {
			h.Columns = columnsView(it.Columns)
		}
		v.Hits = append(v.Hits, h)
	}
	return v
}

func (a *app) printSearch(page colindex.SearchResultPage, took time.Duration) error {
	p := a.printer()
	switch p.format {
	case FormatJSON:
		if err := p.json(newPageView(page)); err != nil {
			return fmt.Errorf("write search page: %w", err)
		}
	case FormatKeys:
		for _, it := range page.Items {
			p.line("%s/%s", it.Partition, it.Key)
		}
	default:
		p.line("Found %d rows in %dms", len(page.Items), took.Milliseconds())
		for _, h := range newPageView(page).Hits {
			line := fmt.Sprintf("- %s/%s score=%.4f", h.Partition, h.Key, h.Score)
			if len(h.SortValues) > 0 {
				line += " sort=[" + strings.Join(h.SortValues, ", ") + "]"
			}
			p.line("%s", line)
			for _, col := range slices.Sorted(maps.Keys(h.Columns)) {
				p.line("    %s: %s", col, h.Columns[col])
			}
		}
		if page.NextCursor != "" {
			p.line("\nnext: %s", page.NextCursor)
		}
		if len(page.ExplainSteps) > 0 {
			p.line("\nExplanation:")
			for _, s := range page.ExplainSteps {
				p.line("  %s", s)
			}
		}
	}
	return nil
}

func (a *app) newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [json|-]",
		Short: "Check a JSON search against the index schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readQuery(cmd, args)
			if err != nil {
				return err
			}
			return a.withIndex(cmd.Context(), func(ix *colindex.Index) error {
				if err := ix.Validate(data); err != nil {
					return err
				}
				a.printer().line("ok")
				return nil
			})
		},
	}
	cmd.Flags().StringP("file", "f", "", "search JSON file")
	return cmd
}
