// Package mysqlwire implements MySQL client/server packet framing and
// the length-encoded integer/string codec of spec.md §4.3, grounded on
// the teacher's server/protocol packet helpers (util/buffer_reader.go,
// util/buffer_writer.go) but corrected where the teacher's ReadLength
// conflated the NULL-column sentinel (0xFB) with "length zero"; here
// the sentinel is only ever produced by ReadLengthEncodedValue, which
// row-decoding call sites use instead of ReadLengthEncodedInt.
package mysqlwire

import (
	"bufio"
	"fmt"
	"io"
)

// MaxPacketSize is the payload size at which a logical payload must be
// split into multiple physical packets, the last one possibly empty
// (spec.md §4.3 "Multi-packet payloads").
const MaxPacketSize = 1<<24 - 1

// Reader reads MySQL protocol packets off a buffered connection,
// tracking the sequence-number discipline of spec.md §4.3: the
// sequence starts at 0 for each command cycle and wraps mod 256.
type Reader struct {
	br  *bufio.Reader
	seq byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 16*1024)}
}

// ResetSequence begins a new command cycle (spec.md §4.3).
func (r *Reader) ResetSequence() { r.seq = 0 }

// Seq returns the sequence number the next ReadPacket call expects,
// one past that of the last packet read.
func (r *Reader) Seq() byte { return r.seq }

// SetSeq primes the expected sequence number for the next ReadPacket
// call, used by the handshake exchange where the server's greeting
// (seq 0) is written directly through the Writer and the client's
// response is expected to carry seq 1 (spec.md §4.4).
func (r *Reader) SetSeq(seq byte) { r.seq = seq }

// ReadPacket reads one physical packet and returns its payload along
// with whether the logical payload is known-complete (false when this
// packet was maximal-length and a continuation is expected).
func (r *Reader) ReadPacket() (payload []byte, more bool, err error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r.br, hdr[:]); err != nil {
		return nil, false, err
	}
	length := int(hdr[0]) | int(hdr[1])<<8 | int(hdr[2])<<16
	seq := hdr[3]
	if seq != r.seq {
		return nil, false, fmt.Errorf("mysqlwire: out-of-order sequence: got %d, want %d", seq, r.seq)
	}
	r.seq++

	buf := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r.br, buf); err != nil {
			return nil, false, err
		}
	}
	return buf, length == MaxPacketSize, nil
}

// ReadLogicalPacket reads and concatenates physical packets until a
// non-maximal (or empty terminator) packet completes the logical
// payload (spec.md §4.3).
func (r *Reader) ReadLogicalPacket() ([]byte, error) {
	all := make([]byte, 0)
	for {
		part, more, err := r.ReadPacket()
		if err != nil {
			return nil, err
		}
		all = append(all, part...)
		if !more {
			return all, nil
		}
	}
}

// Writer writes MySQL protocol packets, splitting payloads at
// MaxPacketSize and emitting a trailing empty packet when the payload
// length is an exact multiple of MaxPacketSize (spec.md §4.3).
type Writer struct {
	bw  *bufio.Writer
	seq byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, 16*1024)}
}

func (w *Writer) ResetSequence() { w.seq = 0 }
func (w *Writer) Seq() byte      { return w.seq }
func (w *Writer) SetSeq(seq byte) { w.seq = seq }

// WritePacket frames and writes one logical payload, splitting across
// multiple physical packets as needed. It does not flush.
func (w *Writer) WritePacket(payload []byte) error {
	for {
		n := len(payload)
		chunk := payload
		if n > MaxPacketSize {
			n = MaxPacketSize
			chunk = payload[:MaxPacketSize]
		}
		var hdr [4]byte
		hdr[0] = byte(n)
		hdr[1] = byte(n >> 8)
		hdr[2] = byte(n >> 16)
		hdr[3] = w.seq
		w.seq++
		if _, err := w.bw.Write(hdr[:]); err != nil {
			return err
		}
		if n > 0 {
			if _, err := w.bw.Write(chunk); err != nil {
				return err
			}
		}
		payload = payload[n:]
		if n < MaxPacketSize {
			return nil
		}
		if len(payload) == 0 {
			// exact multiple: emit the empty terminator packet and stop
			var term [4]byte
			term[3] = w.seq
			w.seq++
			if _, err := w.bw.Write(term[:]); err != nil {
				return err
			}
			return nil
		}
	}
}

func (w *Writer) Flush() error { return w.bw.Flush() }
