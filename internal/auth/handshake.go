// Package auth implements the MySQL handshake and mysql_native_password
// challenge/response scheme of spec.md §4.4, grounded on the teacher's
// server/net/handshake.go salt generation and server/auth/password_validator.go
// stage1/stage2/stage3 SHA1 scheme, rewired onto the corrected
// mysqlwire length-encoding helpers instead of util.ReadLength/WriteWithLength.
package auth

import (
	"crypto/rand"
	"crypto/sha1"

	"github.com/lKGreat/cyscaledb/internal/mysqlwire"
)

const protocolVersion10 = 10

// GenerateSalt returns the 20-byte auth-plugin-data challenge, split
// on the wire into an 8-byte prefix and a 13-byte (12 + NUL)
// remainder (spec.md §4.4 "Handshake packet").
func GenerateSalt() ([20]byte, error) {
	var salt [20]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, err
	}
	// MySQL's scramble bytes must avoid NUL so clients that treat it as
	// a C string don't truncate it; each NUL byte is replaced with 'A'.
	for i, b := range salt {
		if b == 0 {
			salt[i] = 0x41
		}
	}
	return salt, nil
}

// Handshake is the server's initial greeting (spec.md §4.4).
type Handshake struct {
	ServerVersion    string
	ConnectionID     uint32
	Salt             [20]byte
	CapabilityFlags  uint32
	CharsetID        byte
	StatusFlags      uint16
	AuthPluginName   string
}

const DefaultServerCapabilities = mysqlwire.CapLongPassword |
	mysqlwire.CapFoundRows |
	mysqlwire.CapLongFlag |
	mysqlwire.CapConnectWithDB |
	mysqlwire.CapProtocol41 |
	mysqlwire.CapTransactions |
	mysqlwire.CapSecureConnection |
	mysqlwire.CapMultiStatements |
	mysqlwire.CapMultiResults |
	mysqlwire.CapPluginAuth |
	mysqlwire.CapDeprecateEOF

// Encode builds the initial handshake packet payload (protocol
// version 10), including the low/high capability-flag split and the
// 8+13 byte salt split (spec.md §4.4).
func (h Handshake) Encode() []byte {
	buf := make([]byte, 0, 64+len(h.ServerVersion))
	buf = append(buf, protocolVersion10)
	buf = mysqlwire.PutNullTerminatedString(buf, h.ServerVersion)
	buf = append(buf,
		byte(h.ConnectionID), byte(h.ConnectionID>>8),
		byte(h.ConnectionID>>16), byte(h.ConnectionID>>24))
	buf = append(buf, h.Salt[:8]...)
	buf = append(buf, 0) // filler
	buf = append(buf, byte(h.CapabilityFlags), byte(h.CapabilityFlags>>8))
	buf = append(buf, h.CharsetID)
	buf = append(buf, byte(h.StatusFlags), byte(h.StatusFlags>>8))
	buf = append(buf, byte(h.CapabilityFlags>>16), byte(h.CapabilityFlags>>24))
	buf = append(buf, byte(len(h.Salt)+1))
	buf = append(buf, make([]byte, 10)...) // reserved
	buf = append(buf, h.Salt[8:]...)
	buf = append(buf, 0)
	buf = mysqlwire.PutNullTerminatedString(buf, h.AuthPluginName)
	return buf
}

// HandshakeResponse is the client's reply to the initial handshake
// (spec.md §4.4 "Client handshake response").
type HandshakeResponse struct {
	CapabilityFlags uint32
	MaxPacketSize   uint32
	CharsetID       byte
	Username        string
	AuthResponse    []byte
	Database        string
	AuthPluginName  string
}

// DecodeHandshakeResponse parses a CLIENT_PROTOCOL_41 handshake
// response packet.
func DecodeHandshakeResponse(buf []byte) (HandshakeResponse, error) {
	var r HandshakeResponse
	if len(buf) < 32 {
		return r, errTruncated("handshake response header")
	}
	r.CapabilityFlags = leUint32(buf[0:4])
	r.MaxPacketSize = leUint32(buf[4:8])
	r.CharsetID = buf[8]
	pos := 32 // skip 23 reserved bytes

	name, next, err := mysqlwire.ReadNullTerminatedString(buf, pos)
	if err != nil {
		return r, err
	}
	r.Username = name
	pos = next

	if r.CapabilityFlags&mysqlwire.CapPluginAuthLenencClientData != 0 {
		authLen, next, err := mysqlwire.ReadLengthEncodedInt(buf, pos)
		if err != nil {
			return r, err
		}
		if next+int(authLen) > len(buf) {
			return r, errTruncated("auth-response")
		}
		r.AuthResponse = append([]byte(nil), buf[next:next+int(authLen)]...)
		pos = next + int(authLen)
	} else if r.CapabilityFlags&mysqlwire.CapSecureConnection != 0 {
		if pos >= len(buf) {
			return r, errTruncated("auth-response length")
		}
		authLen := int(buf[pos])
		pos++
		if pos+authLen > len(buf) {
			return r, errTruncated("auth-response")
		}
		r.AuthResponse = append([]byte(nil), buf[pos:pos+authLen]...)
		pos += authLen
	} else {
		s, next, err := mysqlwire.ReadNullTerminatedString(buf, pos)
		if err != nil {
			return r, err
		}
		r.AuthResponse = []byte(s)
		pos = next
	}

	if r.CapabilityFlags&mysqlwire.CapConnectWithDB != 0 && pos < len(buf) {
		db, next, err := mysqlwire.ReadNullTerminatedString(buf, pos)
		if err != nil {
			return r, err
		}
		r.Database = db
		pos = next
	}

	if r.CapabilityFlags&mysqlwire.CapPluginAuth != 0 && pos < len(buf) {
		name, _, err := mysqlwire.ReadNullTerminatedString(buf, pos)
		if err == nil {
			r.AuthPluginName = name
		}
	}
	return r, nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

type protocolError string

func (e protocolError) Error() string { return string(e) }

func errTruncated(what string) error { return protocolError("auth: truncated " + what) }

// ScramblePassword computes the mysql_native_password response a
// client would send: SHA1(password) XOR SHA1(salt + SHA1(SHA1(password))).
func ScramblePassword(password string, salt [20]byte) []byte {
	if password == "" {
		return nil
	}
	stage1 := sha1Sum([]byte(password))
	stage2 := sha1Sum(stage1)
	mixed := append(append([]byte{}, salt[:]...), stage2...)
	stage3 := sha1Sum(mixed)
	out := make([]byte, len(stage1))
	for i := range out {
		out[i] = stage1[i] ^ stage3[i]
	}
	return out
}

func sha1Sum(b []byte) []byte {
	h := sha1.Sum(b)
	return h[:]
}
