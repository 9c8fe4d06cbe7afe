package auth

import "github.com/lKGreat/cyscaledb/internal/mysqlerr"

// UserManager is the collaborator interface spec.md §6 defines for
// credential and privilege lookups; the dispatcher depends only on
// this interface, never on a concrete store.
type UserManager interface {
	// Authenticate validates a client's scrambled response against the
	// stored mysql_native_password hash for user@host, returning
	// mysqlerr.AccessDenied on failure.
	Authenticate(user, host string, scrambled []byte, salt [20]byte) error

	// DatabaseExists reports whether database is a known schema.
	DatabaseExists(database string) bool
}

// NativePasswordHash computes the value stored for a user's password,
// namely SHA1(SHA1(password)), grounded on
// password_validator.go's HashPassword (spec.md §4.4 storage form).
func NativePasswordHash(password string) []byte {
	return sha1Sum(sha1Sum([]byte(password)))
}

// VerifyNativePassword checks a client's scrambled auth-response
// against the stored SHA1(SHA1(password)) hash and the connection's
// salt, without ever re-deriving the plaintext password.
func VerifyNativePassword(scrambled, storedHash []byte, salt [20]byte) bool {
	if len(scrambled) == 0 {
		return len(storedHash) == 0
	}
	if len(scrambled) != 20 || len(storedHash) != 20 {
		return false
	}
	// scrambled = SHA1(password) XOR SHA1(salt + storedHash)
	// => SHA1(password) = scrambled XOR SHA1(salt + storedHash)
	mixed := append(append([]byte{}, salt[:]...), storedHash...)
	challengeHash := sha1Sum(mixed)
	stage1 := make([]byte, 20)
	for i := range stage1 {
		stage1[i] = scrambled[i] ^ challengeHash[i]
	}
	return string(sha1Sum(stage1)) == string(storedHash)
}

// StaticUserManager is an in-memory UserManager keyed by "user@host",
// suitable for tests and the default single-node deployment; grounded
// on the shape of auth_service.go's userCache but exposing only the
// collaborator interface the dispatcher needs.
type StaticUserManager struct {
	users     map[string]staticUser
	databases map[string]bool
}

type staticUser struct {
	passwordHash []byte
}

func NewStaticUserManager() *StaticUserManager {
	return &StaticUserManager{
		users:     make(map[string]staticUser),
		databases: make(map[string]bool),
	}
}

// AddUser registers a user@host credential. An empty password stores
// an empty hash, matching VerifyNativePassword's no-password case
// rather than hashing the empty string.
func (m *StaticUserManager) AddUser(user, host, password string) {
	var hash []byte
	if password != "" {
		hash = NativePasswordHash(password)
	}
	m.users[user+"@"+host] = staticUser{passwordHash: hash}
}

func (m *StaticUserManager) AddDatabase(name string) {
	m.databases[name] = true
}

func (m *StaticUserManager) Authenticate(user, host string, scrambled []byte, salt [20]byte) error {
	u, ok := m.users[user+"@"+host]
	if !ok {
		return mysqlerr.AccessDenied(user, host, len(scrambled) > 0)
	}
	if !VerifyNativePassword(scrambled, u.passwordHash, salt) {
		return mysqlerr.AccessDenied(user, host, len(scrambled) > 0)
	}
	return nil
}

func (m *StaticUserManager) DatabaseExists(database string) bool {
	return m.databases[database]
}
