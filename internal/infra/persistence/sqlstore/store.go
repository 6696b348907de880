// Package sqlstore implements persistence.Store over database/sql. The SQLite
// and Postgres packages supply the connection and placeholder style; the
// schema and statements are shared and kept to portable SQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ifcquery/internal/persistence"
)

var _ persistence.Store = (*Store)(nil)

// Schema is applied statement by statement on open.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS models (
		model_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		project_name TEXT NOT NULL,
		project_schema TEXT NOT NULL,
		project_description TEXT NOT NULL,
		storey_count INTEGER NOT NULL,
		product_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS storeys (
		model_id TEXT NOT NULL,
		storey_id TEXT NOT NULL,
		name TEXT NOT NULL,
		elevation DOUBLE PRECISION,
		position INTEGER NOT NULL,
		PRIMARY KEY (model_id, storey_id)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		model_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		product_id TEXT NOT NULL,
		ifc_type TEXT NOT NULL,
		name TEXT NOT NULL,
		storey_id TEXT NOT NULL,
		space_id TEXT NOT NULL,
		step TEXT NOT NULL,
		PRIMARY KEY (model_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS products_by_storey ON products (model_id, storey_id)`,
}

// Binder rewrites the ? placeholders of a statement for a driver.
type Binder func(query string) string

// QuestionMarks leaves statements unchanged.
func QuestionMarks(query string) string { return query }

// Dollars numbers placeholders as $1, $2, ...
func Dollars(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store is a persistence.Store over a database/sql pool. Drivers differ only
// in their Binder.
type Store struct {
	db   *sql.DB
	bind Binder
}

// New migrates db and returns a store over it. The store owns db.
func New(ctx context.Context, db *sql.DB, bind Binder) (*Store, error) {
	if bind == nil {
		bind = QuestionMarks
	}
	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Store{db: db, bind: bind}, nil
}

// DB exposes the connection pool for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (s *Store) deleteRows(ctx context.Context, tx *sql.Tx, modelID string) (int64, error) {
	var removed int64
	for _, table := range []string{"products", "storeys", "models"} {
		res, err := tx.ExecContext(ctx, s.bind("DELETE FROM "+table+" WHERE model_id = ?"), modelID)
		if err != nil {
			return 0, fmt.Errorf("delete %s: %w", table, err)
		}
		if table == "models" {
			removed, _ = res.RowsAffected()
		}
	}
	return removed, nil
}

// SaveSnapshot replaces every row of the model in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap persistence.Snapshot) error {
	if snap.ModelID == "" {
		return errors.New("save snapshot: empty model id")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.deleteRows(ctx, tx, snap.ModelID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.bind(`INSERT INTO models (model_id, project_id, project_name, project_schema, project_description, storey_count, product_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			snap.ModelID, snap.Project.ID, snap.Project.Name, snap.Project.Schema, snap.Project.Description,
			len(snap.Storeys), len(snap.Products), snap.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert model: %w", err)
		}
		for _, st := range snap.Storeys {
			var elevation any
			if st.Elevation != nil {
				elevation = *st.Elevation
			}
			if _, err := tx.ExecContext(ctx, s.bind(`INSERT INTO storeys (model_id, storey_id, name, elevation, position) VALUES (?, ?, ?, ?, ?)`),
				snap.ModelID, st.ID, st.Name, elevation, st.Position); err != nil {
				return fmt.Errorf("insert storey %s: %w", st.ID, err)
			}
		}
		for i, p := range snap.Products {
			if _, err := tx.ExecContext(ctx, s.bind(`INSERT INTO products (model_id, seq, product_id, ifc_type, name, storey_id, space_id, step) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				snap.ModelID, i, p.ID, p.Type, p.Name, p.StoreyID, p.SpaceID, p.Step); err != nil {
				return fmt.Errorf("insert product %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// LoadSnapshot reads a snapshot back in stored order. An unknown id wraps
// persistence.ErrSnapshotNotFound.
func (s *Store) LoadSnapshot(ctx context.Context, modelID string) (persistence.Snapshot, error) {
	snap := persistence.Snapshot{ModelID: modelID}
	var created string
	row := s.db.QueryRowContext(ctx, s.bind(`SELECT project_id, project_name, project_schema, project_description, created_at FROM models WHERE model_id = ?`), modelID)
	if err := row.Scan(&snap.Project.ID, &snap.Project.Name, &snap.Project.Schema, &snap.Project.Description, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Snapshot{}, fmt.Errorf("%s: %w", modelID, persistence.ErrSnapshotNotFound)
		}
		return persistence.Snapshot{}, fmt.Errorf("select model: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("model %s created_at: %w", modelID, err)
	}
	snap.CreatedAt = at

	storeys, err := s.db.QueryContext(ctx, s.bind(`SELECT storey_id, name, elevation, position FROM storeys WHERE model_id = ? ORDER BY position`), modelID)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("select storeys: %w", err)
	}
	defer func() { _ = storeys.Close() }()
	for storeys.Next() {
		var st persistence.Storey
		var elevation sql.NullFloat64
		if err := storeys.Scan(&st.ID, &st.Name, &elevation, &st.Position); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("scan storey: %w", err)
		}
		if elevation.Valid {
			v := elevation.Float64
			st.Elevation = &v
		}
		snap.Storeys = append(snap.Storeys, st)
	}
	if err := storeys.Err(); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("iterate storeys: %w", err)
	}

	products, err := s.db.QueryContext(ctx, s.bind(`SELECT product_id, ifc_type, name, storey_id, space_id, step FROM products WHERE model_id = ? ORDER BY seq`), modelID)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("select products: %w", err)
	}
	defer func() { _ = products.Close() }()
	for products.Next() {
		var p persistence.Product
		if err := products.Scan(&p.ID, &p.Type, &p.Name, &p.StoreyID, &p.SpaceID, &p.Step); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("scan product: %w", err)
		}
		snap.Products = append(snap.Products, p)
	}
	if err := products.Err(); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("iterate products: %w", err)
	}
	return snap, nil
}

// DeleteSnapshot removes every row of the model and reports whether it
// existed.
func (s *Store) DeleteSnapshot(ctx context.Context, modelID string) (bool, error) {
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = s.deleteRows(ctx, tx, modelID)
		return err
	})
	return removed > 0, err
}

// ListSnapshots summarizes every stored snapshot ordered by model id.
func (s *Store) ListSnapshots(ctx context.Context) ([]persistence.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT model_id, project_name, storey_count, product_count, created_at FROM models ORDER BY model_id`)
	if err != nil {
		return nil, fmt.Errorf("select models: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []persistence.Summary
	for rows.Next() {
		var sum persistence.Summary
		var created string
		if err := rows.Scan(&sum.ModelID, &sum.ProjectName, &sum.Storeys, &sum.Products, &created); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("model %s created_at: %w", sum.ModelID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
