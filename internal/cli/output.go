package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

type OutputFormat string

const (
	FormatPretty OutputFormat = "pretty"
	FormatKeys   OutputFormat = "keys"
	FormatJSON   OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(s) {
	case FormatPretty, FormatKeys, FormatJSON:
		return OutputFormat(s)
	default:
		return FormatPretty
	}
}

// printer writes command output in the selected format.
type printer struct {
	format OutputFormat
	w      io.Writer
}

func newPrinter(format string, w io.Writer) *printer {
	return &printer{format: ParseOutputFormat(format), w: w}
}

// json marshals v as indented JSON.
func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes rows using tabwriter. header is the first row.
func (p *printer) table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	writeRow(tw, header)
	for _, row := range rows {
		writeRow(tw, row)
	}
	_ = tw.Flush()
}

func writeRow(w io.Writer, row []string) {
	for i, col := range row {
		if i > 0 {
			_, _ = fmt.Fprint(w, "\t")
		}
		_, _ = fmt.Fprint(w, col)
	}
	_, _ = fmt.Fprintln(w)
}

// kv writes aligned "key: value" lines.
func (p *printer) kv(pairs [][2]string) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, pair := range pairs {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", pair[0], pair[1])
	}
	_ = tw.Flush()
}

func (p *printer) line(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}
