// Package server implements the connection manager (C9): the accept
// loop, MaxClients admission control, the idle-timeout sweeper, and
// graceful shutdown draining described in spec.md §4.7 and §5.
//
// It keeps the teacher's getty-flavored task-pool vocabulary
// (server/net/mysql_server.go's gxsync.GenericTaskPool) as the
// goroutine-dispatch mechanism for accepted connections, while handing
// each connection to the plain net.Conn command loop of
// internal/dispatcher rather than the teacher's getty Session
// machinery, per spec §5's "one independent worker per connection".
package server

import (
	"context"
	"net"
	"sync"
	"time"

	gxsync "github.com/dubbogo/gost/sync"
	jerrors "github.com/juju/errors"

	"github.com/lKGreat/cyscaledb/internal/config"
	"github.com/lKGreat/cyscaledb/internal/dispatcher"
	"github.com/lKGreat/cyscaledb/internal/engine"
	"github.com/lKGreat/cyscaledb/internal/mysqlerr"
	"github.com/lKGreat/cyscaledb/internal/mysqlwire"
	"github.com/lKGreat/cyscaledb/internal/netutil"
	"github.com/lKGreat/cyscaledb/internal/session"
)

// tracker is the subset of dispatcher bookkeeping the sweeper needs to
// decide whether a connection has been idle past the configured
// threshold; the dispatcher's own Session type satisfies it.
type tracker interface {
	IdleSince() time.Time
}

// registry is the connection manager's view of live connections,
// guarded by its own mutex since the accept loop, the sweeper, and
// graceful shutdown all touch it from different goroutines.
type registry struct {
	mu    sync.Mutex
	conns map[uint32]*entry
}

type entry struct {
	conn    net.Conn
	tracker tracker
}

func newRegistry() *registry {
	return &registry{conns: make(map[uint32]*entry)}
}

func (r *registry) add(id uint32, conn net.Conn, t tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &entry{conn: conn, tracker: t}
}

func (r *registry) remove(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// setTracker attaches the session to an already-registered connection
// once the dispatcher's handshake has created it.
func (r *registry) setTracker(id uint32, t tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.tracker = t
	}
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// sweepIdle closes every tracked connection whose tracker reports an
// IdleSince older than threshold, returning the ids it closed.
func (r *registry) sweepIdle(threshold time.Duration) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var closed []uint32
	now := time.Now()
	for id, e := range r.conns {
		if e.tracker == nil {
			continue
		}
		if now.Sub(e.tracker.IdleSince()) > threshold {
			e.conn.Close()
			closed = append(closed, id)
		}
	}
	return closed
}

// closeAll force-closes every remaining connection, used as the last
// step of graceful shutdown once GracefulShutdownTimeout has elapsed.
func (r *registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.conns {
		e.conn.Close()
	}
}

// Server owns the listener, the task pool connections are dispatched
// through, and the idle sweeper, wiring them to one
// dispatcher.Dispatcher instance (spec.md §4.7).
type Server struct {
	cfg        *config.Config
	dispatcher *dispatcher.Dispatcher
	logger     engine.Logger

	listener net.Listener
	taskPool gxsync.GenericTaskPool
	reg      *registry

	wg       sync.WaitGroup
	nextConn uint32
	connMu   sync.Mutex
}

// New wires a Server around an already-constructed Dispatcher, mirroring
// the teacher's NewMySQLServer(conf) composition in mysql_server.go.
// It installs the Dispatcher's OnConnect/OnDisconnect hooks so the
// idle-timeout sweeper can see each connection's session.
func New(cfg *config.Config, d *dispatcher.Dispatcher, logger engine.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		dispatcher: d,
		logger:     logger,
		taskPool:   gxsync.NewTaskPoolSimple(0),
		reg:        newRegistry(),
	}
	d.OnConnect = func(connID uint32, sess *session.Session) {
		s.reg.setTracker(connID, sess)
	}
	d.OnDisconnect = func(connID uint32) {
		s.reg.remove(connID)
	}
	return s
}

// SetListener installs a pre-bound listener for Serve to use, letting
// callers (tests, or a supervisor binding an ephemeral port) learn the
// real address before the accept loop starts.
func (s *Server) SetListener(ln net.Listener) { s.listener = ln }

// Serve binds the listener and runs the accept loop until ctx is
// cancelled, then drains in-flight connections for up to
// GracefulShutdownTimeout before returning (spec.md §5 "Cancellation &
// timeouts"). If a listener has already been installed via
// SetListener (tests bind to an ephemeral port ahead of time to learn
// its address), that listener is used instead of opening a new one.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		ln, err := netutil.Listen(s.cfg)
		if err != nil {
			return jerrors.Trace(err)
		}
		s.listener = ln
	}
	ln := s.listener

	sweepDone := make(chan struct{})
	go s.runSweeper(ctx, sweepDone)

	acceptErr := make(chan error, 1)
	go s.acceptLoop(acceptErr)

	select {
	case <-ctx.Done():
	case err := <-acceptErr:
		if err != nil {
			s.logger.Error("server: accept loop stopped: %v", err)
		}
	}

	ln.Close()
	<-sweepDone
	s.drain()
	return nil
}

func (s *Server) acceptLoop(errc chan<- error) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			errc <- jerrors.Trace(err)
			return
		}
		netutil.ApplyConnOptions(conn, s.cfg)

		if s.reg.count() >= s.cfg.MaxClients {
			s.refuse(conn)
			continue
		}

		id := s.allocConnID()
		s.reg.add(id, conn, nil)
		s.wg.Add(1)
		task := func() {
			defer s.wg.Done()
			// OnDisconnect (wired in New) removes the registry entry
			// once the dispatcher's defer fires.
			s.dispatcher.HandleConnection(conn, id)
		}
		s.taskPool.AddTask(task)
	}
}

// refuse writes a TooManyConnections error packet and closes the
// socket without ever reaching the handshake, matching spec.md §4.7's
// "refuse by closing after writing the error".
func (s *Server) refuse(conn net.Conn) {
	w := mysqlwire.NewWriter(conn)
	errPkt := mysqlerr.TooManyConnections(s.cfg.MaxClients)
	pkt := mysqlwire.ErrorPacket{Code: errPkt.Code, SQLState: errPkt.State, Message: errPkt.Message}
	w.WritePacket(pkt.Encode())
	w.Flush()
	conn.Close()
}

func (s *Server) allocConnID() uint32 {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.nextConn++
	return s.nextConn
}

// runSweeper polls the registry every HealthCheckInterval, closing
// connections idle past ClientIdleTimeout (spec.md §4.7).
func (s *Server) runSweeper(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range s.reg.sweepIdle(s.cfg.ClientIdleTimeout) {
				s.logger.Info("server: closed idle connection %d", id)
			}
		}
	}
}

// drain waits up to GracefulShutdownTimeout for in-flight commands to
// finish, then force-closes whatever sockets remain.
func (s *Server) drain() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.GracefulShutdown):
		s.reg.closeAll()
		<-done
	}
	s.taskPool.Close()
}
