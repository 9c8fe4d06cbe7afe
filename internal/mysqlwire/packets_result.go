package mysqlwire

import "encoding/binary"

// Server status flags referenced by OK/EOF packets (spec.md §4.5).
const (
	StatusInTrans            uint16 = 0x0001
	StatusAutocommit         uint16 = 0x0002
	StatusMoreResultsExists  uint16 = 0x0008
	StatusNoGoodIndexUsed    uint16 = 0x0010
	StatusNoIndexUsed        uint16 = 0x0020
	StatusCursorExists       uint16 = 0x0040
	StatusLastRowSent        uint16 = 0x0080
	StatusDbDropped          uint16 = 0x0100
	StatusNoBackslashEscapes uint16 = 0x0200
)

// CapabilityFlags used by this server (spec.md §4.4). Only the subset
// the protocol implementation actually negotiates is named; client-
// offered bits outside the server's set are dropped when the session
// intersects the two (session.NegotiateCapabilities).
const (
	CapLongPassword               uint32 = 0x00000001
	CapFoundRows                  uint32 = 0x00000002
	CapLongFlag                   uint32 = 0x00000004
	CapConnectWithDB              uint32 = 0x00000008
	CapProtocol41                 uint32 = 0x00000200
	CapSSL                        uint32 = 0x00000800
	CapTransactions                uint32 = 0x00002000
	CapSecureConnection           uint32 = 0x00008000
	CapMultiStatements            uint32 = 0x00010000
	CapMultiResults               uint32 = 0x00020000
	CapPluginAuth                 uint32 = 0x00080000
	CapConnectAttrs               uint32 = 0x00100000
	CapPluginAuthLenencClientData uint32 = 0x00200000
	CapDeprecateEOF               uint32 = 0x01000000
)

// OKPacket encodes an OK packet (header 0x00), spec.md §4.5.
type OKPacket struct {
	AffectedRows uint64
	LastInsertID uint64
	StatusFlags  uint16
	Warnings     uint16
	Info         string
}

func (p OKPacket) Encode() []byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, 0x00)
	buf = PutLengthEncodedInt(buf, p.AffectedRows)
	buf = PutLengthEncodedInt(buf, p.LastInsertID)
	buf = append(buf, byte(p.StatusFlags), byte(p.StatusFlags>>8))
	buf = append(buf, byte(p.Warnings), byte(p.Warnings>>8))
	buf = append(buf, p.Info...)
	return buf
}

// EOFPacket encodes the classical EOF marker (header 0xFE, <=4 bytes
// payload only valid when the connection has CLIENT_PROTOCOL_41 and
// not CLIENT_DEPRECATE_EOF; spec.md §4.5).
type EOFPacket struct {
	Warnings    uint16
	StatusFlags uint16
}

func (p EOFPacket) Encode() []byte {
	buf := make([]byte, 5)
	buf[0] = 0xFE
	binary.LittleEndian.PutUint16(buf[1:3], p.Warnings)
	binary.LittleEndian.PutUint16(buf[3:5], p.StatusFlags)
	return buf
}

// ErrorPacket encodes an ERR packet (header 0xFF), spec.md §4.5 and
// the mysqlerr.Error -> wire mapping.
type ErrorPacket struct {
	Code     uint16
	SQLState string
	Message  string
}

func (p ErrorPacket) Encode() []byte {
	buf := make([]byte, 0, 16+len(p.Message))
	buf = append(buf, 0xFF)
	buf = append(buf, byte(p.Code), byte(p.Code>>8))
	buf = append(buf, '#')
	state := p.SQLState
	if len(state) != 5 {
		state = "HY000"
	}
	buf = append(buf, state...)
	buf = append(buf, p.Message...)
	return buf
}

// SendEOFOrOK emits an EOF packet in classical mode or an OK packet
// with the EOF header byte substituted when the connection negotiated
// CLIENT_DEPRECATE_EOF (spec.md §4.5 "send_eof_or_ok").
func SendEOFOrOK(w *Writer, deprecateEOF bool, warnings uint16, status uint16) error {
	if deprecateEOF {
		ok := OKPacket{StatusFlags: status, Warnings: warnings}
		buf := ok.Encode()
		buf[0] = 0xFE
		return w.WritePacket(buf)
	}
	return w.WritePacket(EOFPacket{Warnings: warnings, StatusFlags: status}.Encode())
}

// ColumnType mirrors the wire-level MYSQL_TYPE_* codes needed by the
// type-mapping table of spec.md §4.6.
type ColumnType byte

const (
	TypeDecimal   ColumnType = 0x00
	TypeTiny      ColumnType = 0x01
	TypeShort     ColumnType = 0x02
	TypeLong      ColumnType = 0x03
	TypeFloat     ColumnType = 0x04
	TypeDouble    ColumnType = 0x05
	TypeNull      ColumnType = 0x06
	TypeTimestamp ColumnType = 0x07
	TypeLongLong  ColumnType = 0x08
	TypeDate      ColumnType = 0x0A
	TypeDateTime  ColumnType = 0x0C
	TypeNewDecimal ColumnType = 0xF6
	TypeVarString ColumnType = 0xFD
	TypeString    ColumnType = 0xFE
	TypeBlob      ColumnType = 0xFC
)

const (
	FlagNotNull     uint16 = 0x0001
	FlagPriKey      uint16 = 0x0002
	FlagUniqueKey   uint16 = 0x0004
	FlagAutoIncrement uint16 = 0x0200
)

// ColumnDef41 encodes a Protocol::ColumnDefinition41 packet
// (spec.md §4.5 "Column-definition packet").
type ColumnDef41 struct {
	Catalog      string
	Schema       string
	Table        string
	OrgTable     string
	Name         string
	OrgName      string
	Charset      uint16
	ColumnLength uint32
	Type         ColumnType
	Flags        uint16
	Decimals     byte
}

func (c ColumnDef41) Encode() []byte {
	buf := make([]byte, 0, 64+len(c.Name)+len(c.Table))
	if c.Catalog == "" {
		c.Catalog = "def"
	}
	buf = PutLengthEncodedString(buf, c.Catalog)
	buf = PutLengthEncodedString(buf, c.Schema)
	buf = PutLengthEncodedString(buf, c.Table)
	buf = PutLengthEncodedString(buf, c.OrgTable)
	buf = PutLengthEncodedString(buf, c.Name)
	buf = PutLengthEncodedString(buf, c.OrgName)
	buf = PutLengthEncodedInt(buf, 0x0C) // length of fixed-length fields below
	buf = append(buf, byte(c.Charset), byte(c.Charset>>8))
	buf = append(buf,
		byte(c.ColumnLength), byte(c.ColumnLength>>8),
		byte(c.ColumnLength>>16), byte(c.ColumnLength>>24))
	buf = append(buf, byte(c.Type))
	buf = append(buf, byte(c.Flags), byte(c.Flags>>8))
	buf = append(buf, c.Decimals)
	buf = append(buf, 0, 0) // filler
	return buf
}
