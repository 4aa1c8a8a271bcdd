package sqlbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderPlaceholders(t *testing.T) {
	b := New(PlaceholderQuestion)
	assert.Equal(t, "?1", b.Arg("p"))
	assert.Equal(t, "?2, ?3", b.List("a", "b"))
	assert.Equal(t, []any{"p", "a", "b"}, b.Args())

	d := New(PlaceholderDollar)
	d.Arg(1)
	assert.Equal(t, "$2, $3, $4", d.List(2, 3, 4))
	assert.Equal(t, 4, d.Len())
}
