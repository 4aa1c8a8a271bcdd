package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NoMapper("name")
	assert.Equal(t, "schema_resolution: No mapper found for field 'name' (field=name)", err.Error())

	wrapped := Wrap(ErrSQL, "scan partition", errors.New("disk full"))
	assert.Equal(t, "sql: scan partition: disk full", wrapped.Error())

	var nilErr *Error
	assert.Equal(t, "", nilErr.Error())
}

func TestIsKindThroughWrapping(t *testing.T) {
	base := Normalization("age", "Field '%s' requires an integer, but found '%s'", "age", "true")
	wrapped := fmt.Errorf("compile query: %w", base)

	assert.True(t, IsKind(wrapped, ErrNormalization))
	assert.False(t, IsKind(wrapped, ErrEncodingRange))
	assert.Equal(t, ErrNormalization, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))

	var e *Error
	require.True(t, errors.As(wrapped, &e))
	assert.Equal(t, "age", e.Field)
}

func TestMapperMismatchMessage(t *testing.T) {
	err := MapperMismatch("place", "geo_point", "string")
	assert.Contains(t, err.Message, "geo_point")
	assert.Contains(t, err.Message, "string")
	assert.Equal(t, ErrMapperMismatch, err.Kind)
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrIO, "connect", cause)
	assert.ErrorIs(t, err, cause)
}
