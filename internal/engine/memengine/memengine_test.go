package memengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lKGreat/cyscaledb/internal/engine"
	"github.com/lKGreat/cyscaledb/internal/engine/memengine"
)

func newTestEngine(t *testing.T) *memengine.Engine {
	t.Helper()
	e := memengine.New()
	e.CreateDatabase("testdb")
	e.SetCurrentDatabase("testdb")
	res, err := e.Execute("CREATE TABLE users (id INT, name VARCHAR(64))")
	require.NoError(t, err)
	require.Equal(t, engine.ResultDdl, res.Kind)
	return e
}

func TestInsertAndSelect(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Execute("INSERT INTO users VALUES (1, 'alice'), (2, 'bob')")
	require.NoError(t, err)
	require.Equal(t, engine.ResultModification, res.Kind)
	require.Equal(t, uint64(2), res.AffectedRows)

	res, err = e.Execute("SELECT id, name FROM users")
	require.NoError(t, err)
	require.Equal(t, engine.ResultQuery, res.Kind)

	var names []string
	for res.Rows.Next() {
		row := res.Rows.Row()
		names = append(names, row[1].Str)
	}
	require.NoError(t, res.Rows.Err())
	require.ElementsMatch(t, []string{"alice", "bob"}, names)
}

func TestSelectWithWhereEquality(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Execute("INSERT INTO users VALUES (1, 'alice'), (2, 'bob')")
	require.NoError(t, err)

	res, err := e.Execute("SELECT id, name FROM users WHERE name = 'bob'")
	require.NoError(t, err)

	var rows [][]engine.DataValue
	for res.Rows.Next() {
		rows = append(rows, res.Rows.Row())
	}
	require.Len(t, rows, 1)
	require.Equal(t, "bob", rows[0][1].Str)
}

func TestUnknownTableReturnsError(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Execute("SELECT * FROM ghosts")
	require.Error(t, err)
}

// TestTransactionAndSetAreNoOps asserts BEGIN/COMMIT/ROLLBACK/SET are
// accepted as session-state no-ops rather than rejected as unsupported
// statements, per SPEC_FULL.md's ambient transaction-control handling.
func TestTransactionAndSetAreNoOps(t *testing.T) {
	e := newTestEngine(t)
	for _, sql := range []string{
		"BEGIN",
		"START TRANSACTION",
		"COMMIT",
		"ROLLBACK",
		"SET autocommit = 0",
		"SET SESSION sql_mode = ''",
	} {
		res, err := e.Execute(sql)
		require.NoError(t, err, sql)
		require.Equal(t, engine.ResultEmpty, res.Kind, sql)
	}
}
