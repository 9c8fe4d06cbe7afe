package mysqlwire

import (
	"encoding/binary"
	"fmt"
)

// nullSentinel is the first-byte value MySQL uses to mark a NULL
// column value in a row packet; spec.md §4.3 reserves it for that
// context only; it is never a valid first byte of a length-encoded
// integer used outside of row decoding. Callers decoding a value that
// may be NULL must use ReadLengthEncodedValue, not ReadLengthEncodedInt.
const nullSentinel = 0xFB

// PutLengthEncodedInt appends the length-encoded form of v to dst
// (spec.md §4.3): v<251 as one byte, v<2^16 as 0xFC+2LE, v<2^24 as
// 0xFD+3LE, else 0xFE+8LE.
func PutLengthEncodedInt(dst []byte, v uint64) []byte {
	switch {
	case v < 251:
		return append(dst, byte(v))
	case v < 1<<16:
		dst = append(dst, 0xFC)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		return append(dst, b[:]...)
	case v < 1<<24:
		dst = append(dst, 0xFD)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		return append(dst, b[:3]...)
	default:
		dst = append(dst, 0xFE)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		return append(dst, b[:]...)
	}
}

// ReadLengthEncodedInt decodes a length-encoded integer that is never
// permitted to be NULL at this position (e.g. column count). It
// returns an error if the first byte is the NULL sentinel.
func ReadLengthEncodedInt(buf []byte, pos int) (v uint64, next int, err error) {
	if pos >= len(buf) {
		return 0, pos, fmt.Errorf("mysqlwire: truncated length-encoded integer")
	}
	first := buf[pos]
	switch {
	case first < 251:
		return uint64(first), pos + 1, nil
	case first == nullSentinel:
		return 0, pos, fmt.Errorf("mysqlwire: unexpected NULL sentinel in length-encoded integer context")
	case first == 0xFC:
		if pos+3 > len(buf) {
			return 0, pos, fmt.Errorf("mysqlwire: truncated 2-byte length-encoded integer")
		}
		return uint64(binary.LittleEndian.Uint16(buf[pos+1 : pos+3])), pos + 3, nil
	case first == 0xFD:
		if pos+4 > len(buf) {
			return 0, pos, fmt.Errorf("mysqlwire: truncated 3-byte length-encoded integer")
		}
		v := uint32(buf[pos+1]) | uint32(buf[pos+2])<<8 | uint32(buf[pos+3])<<16
		return uint64(v), pos + 4, nil
	case first == 0xFE:
		if pos+9 > len(buf) {
			return 0, pos, fmt.Errorf("mysqlwire: truncated 8-byte length-encoded integer")
		}
		return binary.LittleEndian.Uint64(buf[pos+1 : pos+9]), pos + 9, nil
	default:
		return 0, pos, fmt.Errorf("mysqlwire: invalid length-encoded integer prefix 0x%02X", first)
	}
}

// ReadLengthEncodedValue decodes a row-value length prefix, where
// 0xFB marks SQL NULL rather than a length (spec.md §4.3).
func ReadLengthEncodedValue(buf []byte, pos int) (length uint64, isNull bool, next int, err error) {
	if pos < len(buf) && buf[pos] == nullSentinel {
		return 0, true, pos + 1, nil
	}
	v, next, err := ReadLengthEncodedInt(buf, pos)
	return v, false, next, err
}

// PutLengthEncodedString appends a length-prefixed string (spec.md §4.3).
func PutLengthEncodedString(dst []byte, s string) []byte {
	dst = PutLengthEncodedInt(dst, uint64(len(s)))
	return append(dst, s...)
}

// PutNullColumn appends the NULL sentinel used in row-value contexts.
func PutNullColumn(dst []byte) []byte {
	return append(dst, nullSentinel)
}

// ReadLengthEncodedString decodes a length-prefixed string that is
// never NULL at this position.
func ReadLengthEncodedString(buf []byte, pos int) (s string, next int, err error) {
	length, next, err := ReadLengthEncodedInt(buf, pos)
	if err != nil {
		return "", pos, err
	}
	end := next + int(length)
	if end > len(buf) {
		return "", pos, fmt.Errorf("mysqlwire: truncated length-encoded string")
	}
	return string(buf[next:end]), end, nil
}

// PutNullTerminatedString appends s followed by a NUL byte, used by
// the handshake packets (spec.md §4.4).
func PutNullTerminatedString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	return append(dst, 0)
}

// ReadNullTerminatedString reads bytes up to and consuming a NUL byte.
func ReadNullTerminatedString(buf []byte, pos int) (s string, next int, err error) {
	for i := pos; i < len(buf); i++ {
		if buf[i] == 0 {
			return string(buf[pos:i]), i + 1, nil
		}
	}
	return "", pos, fmt.Errorf("mysqlwire: unterminated null-terminated string")
}

// ReadFixedString reads exactly n bytes as a string.
func ReadFixedString(buf []byte, pos, n int) (s string, next int, err error) {
	if pos+n > len(buf) {
		return "", pos, fmt.Errorf("mysqlwire: truncated fixed-length string")
	}
	return string(buf[pos : pos+n]), pos + n, nil
}

// ReadRestOfPacketString reads the remainder of buf as a string
// (used for the final column in some packets, spec.md §4.3).
func ReadRestOfPacketString(buf []byte, pos int) string {
	if pos >= len(buf) {
		return ""
	}
	return string(buf[pos:])
}
