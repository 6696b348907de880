// Package testutil provides an in-memory database/sql driver that understands
// the narrow SQL dialect of the snapshot store, so the Postgres store can be
// tested without a server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// StubConn records statements and keeps table rows as column maps.
type StubConn struct {
	mu     sync.Mutex
	Execs  []string
	Tables map[string][]map[string]any

	FailPing   bool
	FailBegin  bool
	FailCommit bool
	// FailTables makes inserts into and selects from the named tables fail.
	FailTables map[string]bool

	backup map[string][]map[string]any
}

var driverSeq atomic.Int64

// NewStubDB registers a fresh driver and returns a pool bound to it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("ifcquery-stub-%d", driverSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, fmt.Errorf("stub: prepared statements not supported")
}

func (c *StubConn) Close() error { return nil }

func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("stub: ping failed")
	}
	return nil
}

// BeginTx snapshots the tables so Rollback can restore them.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("stub: begin failed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backup = make(map[string][]map[string]any, len(c.Tables))
	for table, rows := range c.Tables {
		c.backup[table] = append([]map[string]any(nil), rows...)
	}
	return stubTx{conn: c}, nil
}

type stubTx struct{ conn *StubConn }

func (t stubTx) Commit() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	if t.conn.FailCommit {
		t.conn.Tables, t.conn.backup = t.conn.backup, nil
		return fmt.Errorf("stub: commit failed")
	}
	t.conn.backup = nil
	return nil
}

func (t stubTx) Rollback() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	if t.conn.backup != nil {
		t.conn.Tables, t.conn.backup = t.conn.backup, nil
	}
	return nil
}

var (
	insertRe = regexp.MustCompile(`(?is)^INSERT INTO\s+(\w+)\s*\(([^)]*)\)`)
	deleteRe = regexp.MustCompile(`(?is)^DELETE FROM\s+(\w+)\s+WHERE\s+(\w+)\s*=\s*\$1\s*$`)
	selectRe = regexp.MustCompile(`(?is)^SELECT\s+(.+?)\s+FROM\s+(\w+)(?:\s+WHERE\s+(\w+)\s*=\s*\$1)?(?:\s+ORDER BY\s+(\w+))?\s*$`)
)

func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	query = strings.TrimSpace(query)
	c.Execs = append(c.Execs, query)

	if m := insertRe.FindStringSubmatch(query); m != nil {
		table, cols := strings.ToLower(m[1]), splitColumns(m[2])
		if c.FailTables[table] {
			return nil, fmt.Errorf("stub: insert into %s failed", table)
		}
		if len(cols) != len(args) {
			return nil, fmt.Errorf("stub: %d columns but %d args for %s", len(cols), len(args), table)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = args[i].Value
		}
		c.Tables[table] = append(c.Tables[table], row)
		return driver.RowsAffected(1), nil
	}
	if m := deleteRe.FindStringSubmatch(query); m != nil {
		table, col := strings.ToLower(m[1]), strings.ToLower(m[2])
		if len(args) != 1 {
			return nil, fmt.Errorf("stub: delete from %s needs one arg", table)
		}
		var kept []map[string]any
		var removed int64
		for _, row := range c.Tables[table] {
			if row[col] == args[0].Value {
				removed++
				continue
			}
			kept = append(kept, row)
		}
		c.Tables[table] = kept
		return driver.RowsAffected(removed), nil
	}
	// DDL and anything else succeeds without effect.
	return driver.RowsAffected(0), nil
}

func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := selectRe.FindStringSubmatch(strings.TrimSpace(query))
	if m == nil {
		return nil, fmt.Errorf("stub: cannot parse select: %s", query)
	}
	cols, table := splitColumns(m[1]), strings.ToLower(m[2])
	where, order := strings.ToLower(m[3]), strings.ToLower(m[4])
	if c.FailTables[table] {
		return nil, fmt.Errorf("stub: select from %s failed", table)
	}
	var matched []map[string]any
	for _, row := range c.Tables[table] {
		if where != "" {
			if len(args) != 1 || row[where] != args[0].Value {
				continue
			}
		}
		matched = append(matched, row)
	}
	if order != "" {
		sort.SliceStable(matched, func(i, j int) bool { return less(matched[i][order], matched[j][order]) })
	}
	values := make([][]driver.Value, 0, len(matched))
	for _, row := range matched {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values}, nil
}

func less(a, b any) bool {
	switch av := a.(type) {
	case int64:
		bv, _ := b.(int64)
		return av < bv
	case string:
		bv, _ := b.(string)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	}
	return false
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
