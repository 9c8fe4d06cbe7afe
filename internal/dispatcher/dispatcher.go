package dispatcher

import (
	"fmt"
	"net"
	"time"

	"github.com/lKGreat/cyscaledb/internal/auth"
	"github.com/lKGreat/cyscaledb/internal/engine"
	"github.com/lKGreat/cyscaledb/internal/mysqlerr"
	"github.com/lKGreat/cyscaledb/internal/mysqlwire"
	"github.com/lKGreat/cyscaledb/internal/session"
)

// ExecutorFactory builds the per-connection engine.Executor: the
// collaborator contract (spec.md §6) makes current_database a
// read/write property of the executor itself, so each connection gets
// its own instance rather than sharing one across sessions.
type ExecutorFactory func() engine.Executor

// Dispatcher wires the protocol layer to the external collaborators
// (spec.md §6's Catalog/Executor/UserManager/Logger), grounded on the
// teacher's BusinessMessageHandler/MySQLMessageHandler pairing but
// collapsed into one type addressing a single net.Conn at a time,
// matching spec §5's "one independent worker per connection".
type Dispatcher struct {
	Catalog     engine.Catalog
	NewExecutor ExecutorFactory
	Users       auth.UserManager
	Logger      engine.Logger
	ServerVersion string

	// OnConnect and OnDisconnect let the connection manager (C9) track
	// a session's idle time for its sweeper without HandleConnection
	// needing to know about the registry that tracks it.
	OnConnect    func(connID uint32, sess *session.Session)
	OnDisconnect func(connID uint32)

	startedAt time.Time
}

func New(catalog engine.Catalog, newExecutor ExecutorFactory, users auth.UserManager, logger engine.Logger, serverVersion string) *Dispatcher {
	return &Dispatcher{
		Catalog:       catalog,
		NewExecutor:   newExecutor,
		Users:         users,
		Logger:        logger,
		ServerVersion: serverVersion,
		startedAt:     time.Now(),
	}
}

// HandleConnection drives one client's full lifecycle: handshake,
// authentication, optional initial-database switch, then the command
// loop (spec.md §4.4, §4.6), until the client quits, a fatal protocol
// or I/O error occurs, or the connection is denied access.
func (d *Dispatcher) HandleConnection(conn net.Conn, connID uint32) {
	defer conn.Close()
	if d.OnDisconnect != nil {
		defer d.OnDisconnect(connID)
	}

	host := hostOf(conn)
	reader := mysqlwire.NewReader(conn)
	writer := mysqlwire.NewWriter(conn)

	salt, err := auth.GenerateSalt()
	if err != nil {
		d.Logger.Error("dispatcher: salt generation failed for conn %d: %v", connID, err)
		return
	}
	sess := session.New(connID, salt)
	if d.OnConnect != nil {
		d.OnConnect(connID, sess)
	}

	hs := auth.Handshake{
		ServerVersion:   d.ServerVersion,
		ConnectionID:    connID,
		Salt:            salt,
		CapabilityFlags: auth.DefaultServerCapabilities,
		CharsetID:       255,
		AuthPluginName:  "mysql_native_password",
	}
	if err := writer.WritePacket(hs.Encode()); err != nil || writer.Flush() != nil {
		d.Logger.Warning("dispatcher: handshake write failed for conn %d: %v", connID, err)
		return
	}

	reader.SetSeq(writer.Seq())
	respPayload, err := reader.ReadLogicalPacket()
	if err != nil {
		d.Logger.Warning("dispatcher: handshake response read failed for conn %d: %v", connID, err)
		return
	}
	resp, err := auth.DecodeHandshakeResponse(respPayload)
	if err != nil {
		d.Logger.Warning("dispatcher: malformed handshake response from conn %d: %v", connID, err)
		return
	}
	sess.User = resp.Username
	sess.Host = host
	sess.NegotiateCapabilities(resp.CapabilityFlags, auth.DefaultServerCapabilities)
	writer.SetSeq(reader.Seq())

	if err := d.Users.Authenticate(resp.Username, host, resp.AuthResponse, salt); err != nil {
		d.writeErrorAndFlush(writer, err)
		return
	}

	executor := d.NewExecutor()
	if resp.Database != "" {
		if !d.Catalog.HasDatabase(resp.Database) {
			d.writeErrorAndFlush(writer, mysqlerr.UnknownDatabase(resp.Database))
			return
		}
		sess.UseDatabase(resp.Database)
		executor.SetCurrentDatabase(resp.Database)
	}

	ok := mysqlwire.OKPacket{StatusFlags: sess.StatusFlags()}
	if err := writer.WritePacket(ok.Encode()); err != nil || writer.Flush() != nil {
		return
	}

	d.commandLoop(reader, writer, sess, executor)
}

func (d *Dispatcher) commandLoop(reader *mysqlwire.Reader, writer *mysqlwire.Writer, sess *session.Session, executor engine.Executor) {
	for {
		reader.ResetSequence()
		writer.ResetSequence()

		payload, err := reader.ReadLogicalPacket()
		if err != nil {
			return // ProtocolError / IoError: fatal to the connection
		}
		if len(payload) == 0 {
			d.writeErrorAndFlush(writer, mysqlerr.UnsupportedCommand(0))
			continue
		}

		sess.Touch()
		cmd := Command(payload[0])
		body := payload[1:]

		if cmd == ComQuit {
			return
		}

		if err := d.dispatchCommand(cmd, body, sess, executor, writer); err != nil {
			return
		}
	}
}

// dispatchCommand executes one COM_* request and flushes its
// response(s). A non-nil return means the connection is no longer
// usable (I/O failure while writing the response).
func (d *Dispatcher) dispatchCommand(cmd Command, body []byte, sess *session.Session, executor engine.Executor, writer *mysqlwire.Writer) error {
	switch cmd {
	case ComInitDB:
		return d.handleInitDB(body, sess, executor, writer)
	case ComQuery:
		return d.handleQuery(body, sess, executor, writer)
	case ComFieldList:
		return d.handleFieldList(body, sess, executor, writer)
	case ComStatistics:
		return d.handleStatistics(writer)
	case ComPing:
		return d.writeOK(writer, sess)
	case ComChangeUser:
		return d.writeOK(writer, sess)
	case ComResetConnection:
		sess.Reset()
		executor.SetCurrentDatabase("")
		return d.writeOK(writer, sess)
	case ComSetOption:
		return d.handleSetOption(body, sess, writer)
	default:
		return d.writeErrorAndFlush(writer, mysqlerr.UnsupportedCommand(byte(cmd)))
	}
}

func (d *Dispatcher) handleInitDB(body []byte, sess *session.Session, executor engine.Executor, writer *mysqlwire.Writer) error {
	dbName := string(body)
	if !d.Catalog.HasDatabase(dbName) {
		return d.writeErrorAndFlush(writer, mysqlerr.UnknownDatabase(dbName))
	}
	sess.UseDatabase(dbName)
	executor.SetCurrentDatabase(dbName)
	return d.writeOK(writer, sess)
}

func (d *Dispatcher) handleQuery(body []byte, sess *session.Session, executor engine.Executor, writer *mysqlwire.Writer) error {
	sess.IncrementQueryCount()
	result, err := executor.Execute(string(body))
	if err != nil {
		return d.writeErrorAndFlush(writer, err)
	}
	if err := d.sendResult(writer, sess, result); err != nil {
		d.Logger.Warning("dispatcher: result serialization failed: %v", err)
		return err
	}
	return writer.Flush()
}

func (d *Dispatcher) handleFieldList(body []byte, sess *session.Session, executor engine.Executor, writer *mysqlwire.Writer) error {
	table, _, err := mysqlwire.ReadNullTerminatedString(body, 0)
	if err != nil {
		return d.writeErrorAndFlush(writer, mysqlerr.UnsupportedCommand(byte(ComFieldList)))
	}
	schema, ok := d.Catalog.GetTableSchema(executor.CurrentDatabase(), table)
	if !ok {
		return d.writeErrorAndFlush(writer, mysqlerr.UnknownTable(table))
	}
	for _, col := range schema.Columns {
		def := columnDef(executor.CurrentDatabase(), table, col)
		if err := writer.WritePacket(def.Encode()); err != nil {
			return err
		}
	}
	if err := mysqlwire.SendEOFOrOK(writer, sess.DeprecateEOF(), 0, sess.StatusFlags()); err != nil {
		return err
	}
	return writer.Flush()
}

func (d *Dispatcher) handleStatistics(writer *mysqlwire.Writer) error {
	uptime := time.Since(d.startedAt).Round(time.Second)
	stats := fmt.Sprintf("Uptime: %d  Threads: 1  Questions: 0  Slow queries: 0  Version: %s",
		int64(uptime.Seconds()), d.ServerVersion)
	if err := writer.WritePacket([]byte(stats)); err != nil {
		return err
	}
	return writer.Flush()
}

func (d *Dispatcher) handleSetOption(body []byte, sess *session.Session, writer *mysqlwire.Writer) error {
	var value uint16
	if len(body) >= 2 {
		value = uint16(body[0]) | uint16(body[1])<<8
	}
	sess.SetMultiStatements(value == 0)
	return mysqlwire.SendEOFOrOK(writer, sess.DeprecateEOF(), 0, sess.StatusFlags())
}

func (d *Dispatcher) writeOK(writer *mysqlwire.Writer, sess *session.Session) error {
	ok := mysqlwire.OKPacket{StatusFlags: sess.StatusFlags()}
	if err := writer.WritePacket(ok.Encode()); err != nil {
		return err
	}
	return writer.Flush()
}

// writeErrorAndFlush encodes err as a MySQL error packet (mapping a
// bare error to ExecutionError when it isn't already a *mysqlerr.Error)
// and flushes it. It never closes the connection itself: the command
// loop keeps serving after it, while for the handshake-time failures
// (AccessDenied and an unknown initial database) HandleConnection
// returns right after this call, which ends the connection (spec.md §7).
func (d *Dispatcher) writeErrorAndFlush(writer *mysqlwire.Writer, err error) error {
	me, ok := err.(*mysqlerr.Error)
	if !ok {
		me = mysqlerr.Execution(err.Error())
	}
	pkt := mysqlwire.ErrorPacket{Code: me.Code, SQLState: me.State, Message: me.Message}
	if werr := writer.WritePacket(pkt.Encode()); werr != nil {
		return werr
	}
	return writer.Flush()
}

func columnDef(db, table string, col engine.ColumnSchema) mysqlwire.ColumnDef41 {
	wt := wireTypeFor(col.Type)
	var flags uint16
	if !col.Nullable {
		flags |= mysqlwire.FlagNotNull
	}
	return mysqlwire.ColumnDef41{
		Schema:       db,
		Table:        table,
		OrgTable:     table,
		Name:         col.Name,
		OrgName:      col.Name,
		Charset:      255,
		ColumnLength: wt.length,
		Type:         wt.code,
		Flags:        flags,
	}
}

func (d *Dispatcher) sendResult(writer *mysqlwire.Writer, sess *session.Session, result engine.Result) error {
	switch result.Kind {
	case engine.ResultQuery:
		return d.sendResultSet(writer, sess, result.Rows)
	case engine.ResultModification:
		ok := mysqlwire.OKPacket{
			AffectedRows: result.AffectedRows,
			LastInsertID: result.LastInsertID,
			StatusFlags:  sess.StatusFlags(),
		}
		return writer.WritePacket(ok.Encode())
	default: // ResultDdl, ResultEmpty
		ok := mysqlwire.OKPacket{StatusFlags: sess.StatusFlags(), Info: result.Message}
		return writer.WritePacket(ok.Encode())
	}
}

func (d *Dispatcher) sendResultSet(writer *mysqlwire.Writer, sess *session.Session, rs engine.ResultSet) error {
	defer rs.Close()
	schema := rs.Schema()

	if err := writer.WritePacket(mysqlwire.PutLengthEncodedInt(nil, uint64(len(schema.Columns)))); err != nil {
		return err
	}
	for _, col := range schema.Columns {
		def := columnDef("", "", col)
		if err := writer.WritePacket(def.Encode()); err != nil {
			return err
		}
	}
	if !sess.DeprecateEOF() {
		if err := writer.WritePacket(mysqlwire.EOFPacket{StatusFlags: sess.StatusFlags()}.Encode()); err != nil {
			return err
		}
	}

	for rs.Next() {
		row := rs.Row()
		var buf []byte
		for i, v := range row {
			colType := schema.Columns[i].Type
			text, isNull := formatValue(v, colType)
			if isNull {
				buf = mysqlwire.PutNullColumn(buf)
			} else {
				buf = mysqlwire.PutLengthEncodedString(buf, text)
			}
		}
		if err := writer.WritePacket(buf); err != nil {
			return err
		}
	}
	if err := rs.Err(); err != nil {
		return err
	}

	return mysqlwire.SendEOFOrOK(writer, sess.DeprecateEOF(), 0, sess.StatusFlags())
}

func hostOf(conn net.Conn) string {
	addr := conn.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
