package server_test

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lKGreat/cyscaledb/internal/auth"
	"github.com/lKGreat/cyscaledb/internal/config"
	"github.com/lKGreat/cyscaledb/internal/dispatcher"
	"github.com/lKGreat/cyscaledb/internal/engine"
	"github.com/lKGreat/cyscaledb/internal/engine/memengine"
	"github.com/lKGreat/cyscaledb/internal/logging"
	"github.com/lKGreat/cyscaledb/internal/mysqlwire"
	"github.com/lKGreat/cyscaledb/internal/server"
)

func newTestServer(t *testing.T, cfg *config.Config) (*server.Server, net.Addr) {
	eng := memengine.New()
	eng.CreateDatabase("testdb")
	users := auth.NewStaticUserManager()
	users.AddUser("root", "127.0.0.1", "secret")
	logger := logging.New(logging.Config{Level: "error"})

	d := dispatcher.New(eng, func() engine.Executor { return eng }, users, logger, cfg.ServerVersion)
	s := server.New(cfg, d, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.SetListener(ln)
	return s, ln.Addr()
}

// TestMaxClientsRefusal asserts that once MaxClients connections are
// registered, the next accepted connection is sent a TooManyConnections
// error packet before ever reaching the handshake (spec.md §4.7).
func TestMaxClientsRefusal(t *testing.T) {
	cfg := config.Default()
	cfg.MaxClients = 1
	cfg.HealthCheckInterval = time.Hour
	cfg.GracefulShutdown = 200 * time.Millisecond

	s, addr := newTestServer(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Serve(ctx)
		close(done)
	}()

	first, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer first.Close()

	// give the accept loop a moment to register the first connection
	// before dialing the one that should be refused.
	time.Sleep(50 * time.Millisecond)

	second, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer second.Close()

	r := mysqlwire.NewReader(second)
	payload, err := r.ReadLogicalPacket()
	require.NoError(t, err)
	require.Equal(t, byte(0xFF), payload[0])

	cancel()
	<-done
}

// TestGracefulShutdownDrains asserts Serve returns after shutdown even
// while a connection is stuck mid-handshake: the drain gives up after
// GracefulShutdown (200ms), force-closes that connection, and Serve
// returns within the test's one-second bound.
func TestGracefulShutdownDrains(t *testing.T) {
	cfg := config.Default()
	cfg.HealthCheckInterval = time.Hour
	cfg.GracefulShutdown = 200 * time.Millisecond

	s, addr := newTestServer(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Serve(ctx)
		close(done)
	}()

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	r := mysqlwire.NewReader(conn)
	greeting, err := r.ReadLogicalPacket()
	require.NoError(t, err)
	require.Equal(t, byte(10), greeting[0])

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
}

// TestIdleTimeoutSweep asserts that a session past ClientIdleTimeout
// is closed by the sweeper even though it never quits on its own
// (spec.md §4.7, §5 "Idle timeout").
func TestIdleTimeoutSweep(t *testing.T) {
	cfg := config.Default()
	cfg.ClientIdleTimeout = 30 * time.Millisecond
	cfg.HealthCheckInterval = 20 * time.Millisecond
	cfg.GracefulShutdown = 200 * time.Millisecond

	s, addr := newTestServer(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Serve(ctx)
		close(done)
	}()

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	r := mysqlwire.NewReader(conn)
	w := mysqlwire.NewWriter(conn)
	greeting, err := r.ReadLogicalPacket()
	require.NoError(t, err)
	salt, plugin := decodeGreeting(t, greeting)
	require.Equal(t, "mysql_native_password", plugin)

	scrambled := auth.ScramblePassword("secret", salt)
	resp := encodeResponse(auth.DefaultServerCapabilities, "root", scrambled, "testdb")
	w.SetSeq(1)
	require.NoError(t, w.WritePacket(resp))
	require.NoError(t, w.Flush())
	r.SetSeq(2)
	ok, err := r.ReadLogicalPacket()
	require.NoError(t, err)
	require.Equal(t, byte(0x00), ok[0])

	// the session is now idle; wait past ClientIdleTimeout for the
	// sweeper to close it, which surfaces as a read failure here.
	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	require.Error(t, err)

	cancel()
	<-done
}

func decodeGreeting(t *testing.T, buf []byte) (salt [20]byte, pluginName string) {
	pos := 1
	_, pos, err := mysqlwire.ReadNullTerminatedString(buf, pos)
	require.NoError(t, err)
	pos += 4
	copy(salt[:8], buf[pos:pos+8])
	pos += 8 + 1
	pos += 2
	pos += 1
	pos += 2
	pos += 2
	pos += 1
	pos += 10
	copy(salt[8:], buf[pos:pos+12])
	pos += 13
	pluginName, _, err = mysqlwire.ReadNullTerminatedString(buf, pos)
	require.NoError(t, err)
	return salt, pluginName
}

func encodeResponse(caps uint32, username string, authResponse []byte, database string) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], caps)
	binary.LittleEndian.PutUint32(buf[4:8], mysqlwire.MaxPacketSize)
	buf[8] = 255
	buf = mysqlwire.PutNullTerminatedString(buf, username)
	buf = append(buf, byte(len(authResponse)))
	buf = append(buf, authResponse...)
	if caps&mysqlwire.CapConnectWithDB != 0 && database != "" {
		buf = mysqlwire.PutNullTerminatedString(buf, database)
	}
	buf = mysqlwire.PutNullTerminatedString(buf, "mysql_native_password")
	return buf
}
