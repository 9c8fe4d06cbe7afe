package mysqlwire_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lKGreat/cyscaledb/internal/mysqlwire"
)

// TestLengthEncodedIntRoundTrip covers spec.md §8 property 2: every
// length-encoded integer PutLengthEncodedInt produces decodes back to
// the same value via ReadLengthEncodedInt, across each of the four
// width classes its prefix byte selects.
func TestLengthEncodedIntRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 250, 251, 65535, 65536, 1<<24 - 1, 1 << 24, 1 << 32, ^uint64(0)}
	for _, v := range values {
		buf := mysqlwire.PutLengthEncodedInt(nil, v)
		got, next, err := mysqlwire.ReadLengthEncodedInt(buf, 0)
		require.NoError(t, err, "value %d", v)
		require.Equal(t, v, got, "value %d", v)
		require.Equal(t, len(buf), next, "value %d", v)
	}
}

// TestLengthEncodedStringRoundTrip covers spec.md §8 property 3.
func TestLengthEncodedStringRoundTrip(t *testing.T) {
	cases := []string{"", "a", "hello world", string(make([]byte, 300))}
	for _, s := range cases {
		buf := mysqlwire.PutLengthEncodedString(nil, s)
		got, next, err := mysqlwire.ReadLengthEncodedString(buf, 0)
		require.NoError(t, err)
		require.Equal(t, s, got)
		require.Equal(t, len(buf), next)
	}
}

// TestReadLengthEncodedValueNullSentinel asserts the NULL sentinel
// (0xFB) decodes as isNull rather than being mistaken for a length,
// the exact ambiguity the teacher's ReadLength conflated.
func TestReadLengthEncodedValueNullSentinel(t *testing.T) {
	buf := mysqlwire.PutNullColumn(nil)
	length, isNull, next, err := mysqlwire.ReadLengthEncodedValue(buf, 0)
	require.NoError(t, err)
	require.True(t, isNull)
	require.Equal(t, uint64(0), length)
	require.Equal(t, 1, next)

	buf2 := mysqlwire.PutLengthEncodedString(nil, "x")
	_, isNull2, _, err := mysqlwire.ReadLengthEncodedValue(buf2, 0)
	require.NoError(t, err)
	require.False(t, isNull2)
}

// TestReadLengthEncodedIntRejectsNullSentinel asserts a context that
// never permits NULL (e.g. a column count) errors on 0xFB rather than
// silently treating it as length zero.
func TestReadLengthEncodedIntRejectsNullSentinel(t *testing.T) {
	buf := mysqlwire.PutNullColumn(nil)
	_, _, err := mysqlwire.ReadLengthEncodedInt(buf, 0)
	require.Error(t, err)
}

// TestNullTerminatedStringRoundTrip covers the handshake packet's
// string encoding (spec.md §4.4).
func TestNullTerminatedStringRoundTrip(t *testing.T) {
	buf := mysqlwire.PutNullTerminatedString(nil, "mysql_native_password")
	got, next, err := mysqlwire.ReadNullTerminatedString(buf, 0)
	require.NoError(t, err)
	require.Equal(t, "mysql_native_password", got)
	require.Equal(t, len(buf), next)
}
