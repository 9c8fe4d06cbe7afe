package spill_test

import (
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lKGreat/cyscaledb/internal/engine"
	"github.com/lKGreat/cyscaledb/internal/spill"
)

func testSchema() engine.Schema {
	return engine.Schema{Columns: []engine.ColumnSchema{
		{Name: "id", Type: engine.ColInt},
		{Name: "name", Type: engine.ColVarChar, Nullable: true},
		{Name: "price", Type: engine.ColDecimal, Nullable: true},
	}}
}

// TestFileRoundTrip asserts every row written is read back byte-exact
// via DataValue.Equal, covering spec.md §8 property 6 (spill
// round-trip) including a NULL column.
func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f, err := spill.New(dir, testSchema())
	require.NoError(t, err)

	price, err := decimal.NewFromString("19.99")
	require.NoError(t, err)

	rows := [][]engine.DataValue{
		{{Kind: engine.KindInt, Int: 1}, {Kind: engine.KindString, Str: "widget"}, {Kind: engine.KindDecimal, Decimal: price}},
		{{Kind: engine.KindInt, Int: 2}, {Kind: engine.KindNull}, {Kind: engine.KindNull}},
	}
	for _, row := range rows {
		require.NoError(t, f.Write(row))
	}
	require.NoError(t, f.FinishWriting())
	defer f.Delete()

	r, err := f.OpenForRead()
	require.NoError(t, err)
	defer r.Close()

	for i, want := range rows {
		got, err := r.Next()
		require.NoError(t, err, "row %d", i)
		require.Len(t, got, len(want))
		for c := range want {
			require.True(t, want[c].Equal(got[c]), "row %d column %d: want %+v got %+v", i, c, want[c], got[c])
		}
	}
	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

// TestDeleteNeverThrows asserts Delete is safe to call on a file that
// was never finished and even twice in a row (spec.md §4.8 invariant
// "deletion never throws").
func TestDeleteNeverThrows(t *testing.T) {
	dir := t.TempDir()
	f, err := spill.New(dir, testSchema())
	require.NoError(t, err)
	require.NoError(t, f.Write([]engine.DataValue{{Kind: engine.KindInt, Int: 1}, {Kind: engine.KindNull}, {Kind: engine.KindNull}}))

	require.NotPanics(t, func() {
		f.Delete()
		f.Delete()
	})
}

// TestPartitionedRouting asserts writes land in the partition
// abs(hash) mod n picks, and every row is recoverable after finishing
// all partitions.
func TestPartitionedRouting(t *testing.T) {
	dir := t.TempDir()
	schema := engine.Schema{Columns: []engine.ColumnSchema{{Name: "k", Type: engine.ColInt}}}
	p, err := spill.NewPartitioned(dir, schema, 4)
	require.NoError(t, err)
	defer p.Delete()

	for i := int64(0); i < 20; i++ {
		hash := spill.HashKey([]byte{byte(i)})
		row := []engine.DataValue{{Kind: engine.KindInt, Int: i}}
		require.NoError(t, p.Write(hash, row))
	}
	require.NoError(t, p.FinishWriting())

	var total int
	for i := 0; i < p.Len(); i++ {
		r, err := p.File(i).OpenForRead()
		require.NoError(t, err)
		for {
			_, err := r.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			total++
		}
		r.Close()
	}
	require.Equal(t, 20, total)
}
