// Package spill implements the scoped write-then-read file resource
// backing sorting/hashing operators (spec.md §4.8, C10). The teacher
// has no such component (the InnoDB storage engine is out of scope
// here); the binary codec below is grounded on
// internal/util/buffer_writer.go and buffer_reader.go's hand-rolled
// little-endian WriteUB4/ReadUB4 style rather than encoding/binary,
// matching the bit-shifting idiom the rest of the wire layer uses.
package spill

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/lKGreat/cyscaledb/internal/engine"
)

func putUint32(buf []byte, i uint32) []byte {
	return append(buf, byte(i), byte(i>>8), byte(i>>16), byte(i>>24))
}

func getUint32(buf []byte, pos int) (uint32, int) {
	i := uint32(buf[pos]) | uint32(buf[pos+1])<<8 | uint32(buf[pos+2])<<16 | uint32(buf[pos+3])<<24
	return i, pos + 4
}

func putUint64(buf []byte, i uint64) []byte {
	for shift := 0; shift < 64; shift += 8 {
		buf = append(buf, byte(i>>shift))
	}
	return buf
}

func getUint64(buf []byte, pos int) (uint64, int) {
	var i uint64
	for shift := 0; shift < 64; shift += 8 {
		i |= uint64(buf[pos]) << shift
		pos++
	}
	return i, pos
}

// nullBitmapSize returns ceil(n/8), the byte length of the LSB-first
// null bitmap spec.md §4.8 prescribes for a row of n columns.
func nullBitmapSize(n int) int { return (n + 7) / 8 }

func setBit(bitmap []byte, pos int) {
	bitmap[pos/8] |= 1 << uint(pos%8)
}

func bitSet(bitmap []byte, pos int) bool {
	return bitmap[pos/8]&(1<<uint(pos%8)) != 0
}

// encodeRow renders one row in the spec.md §4.8 record format:
// column_count:i32, one type tag per column, a null bitmap, then for
// each non-null column value_length:i32 followed by its bytes.
func encodeRow(row []engine.DataValue) []byte {
	n := len(row)
	buf := make([]byte, 0, 16+n*8)
	buf = putUint32(buf, uint32(n))
	for _, v := range row {
		buf = append(buf, byte(v.Kind))
	}
	bitmap := make([]byte, nullBitmapSize(n))
	for i, v := range row {
		if v.IsNull() {
			setBit(bitmap, i)
		}
	}
	buf = append(buf, bitmap...)
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		valBytes := encodeValue(v)
		buf = putUint32(buf, uint32(len(valBytes)))
		buf = append(buf, valBytes...)
	}
	return buf
}

// decodeRow is encodeRow's inverse, reconstructing each DataValue's
// Kind from schema rather than trusting the on-disk type tag, since
// the tag exists for self-description but the schema is authoritative
// for how to interpret the value bytes (spec.md §4.8 "reconstructing
// DataValues via the schema's per-column types").
func decodeRow(buf []byte, schema engine.Schema) ([]engine.DataValue, int, error) {
	if len(buf) < 4 {
		return nil, 0, fmt.Errorf("spill: truncated row header")
	}
	count, pos := getUint32(buf, 0)
	n := int(count)
	if n != len(schema.Columns) {
		return nil, 0, fmt.Errorf("spill: row column count %d does not match schema width %d", n, len(schema.Columns))
	}
	if pos+n > len(buf) {
		return nil, 0, fmt.Errorf("spill: truncated type tags")
	}
	pos += n // skip the self-describing type tags; schema drives decoding
	bmSize := nullBitmapSize(n)
	if pos+bmSize > len(buf) {
		return nil, 0, fmt.Errorf("spill: truncated null bitmap")
	}
	bitmap := buf[pos : pos+bmSize]
	pos += bmSize

	row := make([]engine.DataValue, n)
	for i := 0; i < n; i++ {
		if bitSet(bitmap, i) {
			row[i] = engine.DataValue{Kind: engine.KindNull}
			continue
		}
		if pos+4 > len(buf) {
			return nil, 0, fmt.Errorf("spill: truncated value length at column %d", i)
		}
		length, newPos := getUint32(buf, pos)
		pos = newPos
		if pos+int(length) > len(buf) {
			return nil, 0, fmt.Errorf("spill: truncated value at column %d", i)
		}
		val, err := decodeValue(schema.Columns[i].Type, buf[pos:pos+int(length)])
		if err != nil {
			return nil, 0, err
		}
		row[i] = val
		pos += int(length)
	}
	return row, pos, nil
}

func encodeValue(v engine.DataValue) []byte {
	switch v.Kind {
	case engine.KindInt:
		return putUint64(nil, uint64(v.Int))
	case engine.KindFloat:
		return putUint64(nil, math.Float64bits(v.Float))
	case engine.KindBool:
		if v.Bool {
			return []byte{1}
		}
		return []byte{0}
	case engine.KindDecimal:
		return []byte(v.Decimal.String())
	case engine.KindDate, engine.KindDateTime, engine.KindTime:
		if v.Text != "" {
			return []byte(v.Text)
		}
		return []byte(v.Str)
	default: // KindString
		return []byte(v.Str)
	}
}

func decodeValue(t engine.ColumnType, raw []byte) (engine.DataValue, error) {
	switch t {
	case engine.ColInt, engine.ColBigInt:
		if len(raw) != 8 {
			return engine.DataValue{}, fmt.Errorf("spill: bad int value length %d", len(raw))
		}
		u, _ := getUint64(raw, 0)
		return engine.DataValue{Kind: engine.KindInt, Int: int64(u)}, nil
	case engine.ColFloat, engine.ColDouble:
		if len(raw) != 8 {
			return engine.DataValue{}, fmt.Errorf("spill: bad float value length %d", len(raw))
		}
		u, _ := getUint64(raw, 0)
		return engine.DataValue{Kind: engine.KindFloat, Float: math.Float64frombits(u)}, nil
	case engine.ColBoolean:
		if len(raw) != 1 {
			return engine.DataValue{}, fmt.Errorf("spill: bad bool value length %d", len(raw))
		}
		return engine.DataValue{Kind: engine.KindBool, Bool: raw[0] != 0}, nil
	case engine.ColDecimal:
		d, err := decimal.NewFromString(string(raw))
		if err != nil {
			return engine.DataValue{}, fmt.Errorf("spill: bad decimal value %q: %w", raw, err)
		}
		return engine.DataValue{Kind: engine.KindDecimal, Decimal: d}, nil
	case engine.ColDate:
		return engine.DataValue{Kind: engine.KindDate, Str: string(raw), Text: string(raw)}, nil
	case engine.ColDateTime:
		return engine.DataValue{Kind: engine.KindDateTime, Str: string(raw), Text: string(raw)}, nil
	case engine.ColTime:
		return engine.DataValue{Kind: engine.KindTime, Str: string(raw), Text: string(raw)}, nil
	default: // ColVarChar, ColText
		return engine.DataValue{Kind: engine.KindString, Str: string(raw)}, nil
	}
}
