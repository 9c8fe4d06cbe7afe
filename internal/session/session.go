// Package session implements the per-connection state machine of
// spec.md §4.5 ("Session"), grounded on the locking/field shape of
// server/session/session_impl.go but holding the protocol-level fields
// (capabilities, autocommit, transaction state) the teacher's Session
// left to other layers.
package session

import (
	"sync"
	"time"

	"github.com/lKGreat/cyscaledb/internal/mysqlwire"
)

// Session is the mutable per-connection state the dispatcher consults
// and updates across commands (spec.md §4.5).
type Session struct {
	mu sync.Mutex

	ID              uint32
	User            string
	Host            string
	Database        string
	Capabilities    uint32
	Autocommit      bool
	InTransaction   bool
	MultiStatements bool
	QueryCount      uint64
	LastActivity    time.Time
	Salt            [20]byte
}

// New creates a fresh Session for connection id, defaulting
// autocommit on as MySQL does (spec.md §4.5).
func New(id uint32, salt [20]byte) *Session {
	return &Session{
		ID:           id,
		Autocommit:   true,
		LastActivity: time.Now(),
		Salt:         salt,
	}
}

// Touch records command activity for the idle-timeout sweeper
// (spec.md §4.7 "Connection lifecycle").
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActivity = time.Now()
}

func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastActivity
}

// NegotiateCapabilities intersects the client-offered flags with the
// server's supported set (spec.md §4.4).
func (s *Session) NegotiateCapabilities(clientFlags, serverFlags uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Capabilities = clientFlags & serverFlags
	s.MultiStatements = s.Capabilities&mysqlwire.CapMultiStatements != 0
}

// SetMultiStatements updates the multi-statement flag on behalf of
// COM_SET_OPTION (spec.md §4.6), independent of capability negotiation.
func (s *Session) SetMultiStatements(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MultiStatements = enabled
}

func (s *Session) DeprecateEOF() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Capabilities&mysqlwire.CapDeprecateEOF != 0
}

// StatusFlags computes the OK/EOF status word for the session's
// current transaction and autocommit state (spec.md §4.5).
func (s *Session) StatusFlags() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var flags uint16
	if s.Autocommit {
		flags |= mysqlwire.StatusAutocommit
	}
	if s.InTransaction {
		flags |= mysqlwire.StatusInTrans
	}
	return flags
}

// Reset restores session state for COM_RESET_CONNECTION while
// preserving capability negotiation and connection identity
// (spec.md §4.5 "reset()").
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Database = ""
	s.Autocommit = true
	s.InTransaction = false
	s.QueryCount = 0
	s.LastActivity = time.Now()
}

func (s *Session) BeginTransaction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InTransaction = true
}

func (s *Session) EndTransaction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InTransaction = false
}

func (s *Session) UseDatabase(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Database = name
}

func (s *Session) CurrentDatabase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Database
}

func (s *Session) IncrementQueryCount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QueryCount++
}
