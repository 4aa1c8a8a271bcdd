package storage_test

import (
	"context"
	"math/big"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/storage"
	"github.com/colindex/colindex/colindex/storage/sqlite"
)

func openStore(t *testing.T) (*storage.DBColumnStore, *sqlite.Adapter) {
	t.Helper()
	ctx := context.Background()
	a := sqlite.New(filepath.Join(t.TempDir(), "cells.db"))
	db, err := a.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, a.CreateIndex(ctx, db, []byte(`{"fields":{}}`)))

	schema, err := a.OpenIndex(ctx, db)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":{}}`, string(schema))
	return storage.NewDBColumnStore(db, a), a
}

func TestColumnStorePutAndGet(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	row := mapping.Columns{
		{Name: "name", Value: "alice"},
		{Name: "age", Value: int64(33)},
		{Name: "score", Type: mapping.NativeFloat, Value: float32(1.5)},
		{Name: "nick", Value: nil},
	}
	require.NoError(t, s.PutRow(ctx, "p1", "k1", row))

	col, ok, err := s.GetColumnValue(ctx, "p1", "k1", "age")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mapping.NativeBigint, col.Type)
	assert.Equal(t, int64(33), col.Value)

	col, ok, err = s.GetColumnValue(ctx, "p1", "k1", "score")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float32(1.5), col.Value)

	_, ok, err = s.GetColumnValue(ctx, "p1", "k1", "nick")
	require.NoError(t, err)
	assert.False(t, ok, "null columns are not stored")

	_, ok, err = s.GetColumnValue(ctx, "p2", "k1", "name")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestColumnStorePutReplacesRow(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	require.NoError(t, s.PutRow(ctx, "p1", "k1", mapping.Columns{
		{Name: "name", Value: "alice"},
		{Name: "age", Value: int64(33)},
	}))
	require.NoError(t, s.PutRow(ctx, "p1", "k1", mapping.Columns{
		{Name: "name", Value: "alicia"},
	}))

	rows, err := s.GetRows(ctx, "p1", []string{"k1"})
	require.NoError(t, err)
	require.Len(t, rows["k1"], 1)
	assert.Equal(t, "alicia", rows["k1"].ValueOf("name"))
	assert.Nil(t, rows["k1"].ValueOf("age"))
}

func TestColumnStoreScanAndPartitions(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	for _, r := range []struct{ p, k, name string }{
		{"p2", "b", "bob"},
		{"p1", "c", "carol"},
		{"p1", "a", "alice"},
		{"p2", "d", "dave"},
	} {
		require.NoError(t, s.PutRow(ctx, r.p, r.k, mapping.Columns{
			{Name: "name", Value: r.name},
			{Name: "seen", Value: true},
		}))
	}

	parts, err := s.Partitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, parts)

	var keys []string
	err = s.ScanPartition(ctx, "p1", func(rowKey string, row mapping.Columns) error {
		keys = append(keys, rowKey)
		assert.Len(t, row, 2)
		assert.Equal(t, true, row.ValueOf("seen"))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys)

	rows, err := s.GetRows(ctx, "p2", []string{"b", "d", "missing"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "dave", rows["d"].ValueOf("name"))

	n, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, s.DeleteRow(ctx, "p2", "b"))
	n, err = s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestColumnStoreApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	require.NoError(t, s.Apply(ctx, []storage.RowOp{
		{Partition: "p1", Key: "k1", Row: mapping.Columns{{Name: "name", Value: "alice"}}},
		{Partition: "p1", Key: "k2", Row: mapping.Columns{{Name: "name", Value: "bob"}}},
		{Partition: "p1", Key: "k1", Delete: true},
	}))
	rows, err := s.GetRows(ctx, "p1", []string{"k1", "k2"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Contains(t, rows, "k2")

	err = s.Apply(ctx, []storage.RowOp{
		{Partition: "p1", Key: "k3", Row: mapping.Columns{{Name: "name", Value: "cid"}}},
		{Partition: "p1", Key: "k4", Row: mapping.Columns{{Name: "bad", Value: struct{}{}}}},
	})
	require.Error(t, err)
	n, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a failed batch writes nothing")
}

func TestColumnStoreScanEmptyPartition(t *testing.T) {
	s, _ := openStore(t)
	called := false
	err := s.ScanPartition(context.Background(), "nope", func(string, mapping.Columns) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestOpenIndexRejectsForeignDatabase(t *testing.T) {
	ctx := context.Background()
	_, a := openStore(t)

	db, err := a.Connect(ctx)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.ExecContext(ctx, a.SQL().SetMeta, storage.MetaMagic, "other")
	require.NoError(t, err)

	_, err = a.OpenIndex(ctx, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a colindex db")
}

func TestCodecRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	cases := []struct {
		name string
		in   any
		typ  mapping.NativeType
		out  any
	}{
		{"text", "héllo", mapping.NativeText, "héllo"},
		{"int", 42, mapping.NativeBigint, int64(42)},
		{"varint", big.NewInt(12345678901), mapping.NativeVarint, big.NewInt(12345678901)},
		{"double", 2.25, mapping.NativeDouble, 2.25},
		{"bool", false, mapping.NativeBoolean, false},
		{"blob", []byte{0, 1, 0xff}, mapping.NativeBlob, []byte{0, 1, 0xff}},
		{"timestamp", ts, mapping.NativeTimestamp, ts},
		{"uuid", id, mapping.NativeUUID, id.String()},
		{"inet", netip.MustParseAddr("10.0.0.1"), mapping.NativeInet, "10.0.0.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			typ, err := storage.InferType(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.typ, typ)

			raw, err := storage.EncodeValue(typ, tc.in)
			require.NoError(t, err)
			got, err := storage.DecodeValue(typ, raw)
			require.NoError(t, err)
			assert.Equal(t, tc.out, got)
		})
	}
}

func TestCodecErrors(t *testing.T) {
	_, err := storage.InferType(struct{}{})
	assert.True(t, errs.IsKind(err, errs.ErrNormalization))

	_, err = storage.DecodeValue(mapping.NativeInt, "x")
	assert.True(t, errs.IsKind(err, errs.ErrNormalization))

	_, err = storage.DecodeValue("nope", "1")
	assert.True(t, errs.IsKind(err, errs.ErrNormalization))
}
