package sqlbuilder

import (
	"strconv"
	"strings"
)

type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// Builder numbers placeholders and collects their arguments in order.
type Builder struct {
	Style PlaceholderStyle
	args  []any
}

func New(style PlaceholderStyle) *Builder {
	return &Builder{Style: style, args: make([]any, 0)}
}

// Arg records v and returns its placeholder.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	switch b.Style {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(len(b.args))
	default:
		return "?" + strconv.Itoa(len(b.args))
	}
}

// List records every value and returns their placeholders joined by commas.
func (b *Builder) List(vals ...any) string {
	ph := make([]string, len(vals))
	for i, v := range vals {
		ph[i] = b.Arg(v)
	}
	return strings.Join(ph, ", ")
}

func (b *Builder) Args() []any { return b.args }
func (b *Builder) Len() int    { return len(b.args) }
