package mysqlwire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lKGreat/cyscaledb/internal/mysqlwire"
)

// TestPacketFramingRoundTrip covers spec.md §8 property 1: a payload
// written through Writer.WritePacket and flushed is read back
// byte-identical through Reader.ReadLogicalPacket, including a
// payload long enough to split across the 0xFFFFFF split-packet
// boundary.
func TestPacketFramingRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("select 1"),
		bytes.Repeat([]byte("x"), 1<<24), // one max-size (0xFFFFFF-byte) packet plus a one-byte continuation packet
	}
	for i, payload := range cases {
		var buf bytes.Buffer
		w := mysqlwire.NewWriter(&buf)
		require.NoError(t, w.WritePacket(payload), "case %d", i)
		require.NoError(t, w.Flush(), "case %d", i)

		r := mysqlwire.NewReader(&buf)
		got, err := r.ReadLogicalPacket()
		require.NoError(t, err, "case %d", i)
		require.Equal(t, payload, got, "case %d", i)
	}
}

// TestSequenceIDIncrements asserts each packet's sequence byte
// increments the way the wire protocol's request/response pairing
// requires.
func TestSequenceIDIncrements(t *testing.T) {
	var buf bytes.Buffer
	w := mysqlwire.NewWriter(&buf)
	require.NoError(t, w.WritePacket([]byte("a")))
	require.NoError(t, w.WritePacket([]byte("b")))
	require.NoError(t, w.Flush())
	require.Equal(t, byte(2), w.Seq())
}
