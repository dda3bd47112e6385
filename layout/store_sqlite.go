package layout

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/chazu/slotbridge/slots"

	_ "modernc.org/sqlite"
)

// SQLStore keeps plans in a SQLite database, one row per assignment.
type SQLStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLStore opens (or creates) the database at dbPath.
func NewSQLStore(dbPath string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS slot_assignments (
		package    TEXT    NOT NULL,
		type_name  TEXT    NOT NULL,
		type_order INTEGER NOT NULL,
		slot       INTEGER NOT NULL,
		kind       INTEGER NOT NULL,
		member     TEXT    NOT NULL,
		host_name  TEXT    NOT NULL DEFAULT '',
		signature  TEXT    NOT NULL DEFAULT '',
		PRIMARY KEY (package, type_name, slot)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Save replaces every stored assignment of p.Package with p.
func (s *SQLStore) Save(p *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM slot_assignments WHERE package = ?", p.Package); err != nil {
		return fmt.Errorf("clearing plan: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO slot_assignments
		(package, type_name, type_order, slot, kind, member, host_name, signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for order, tl := range p.Types {
		for _, a := range tl.Slots {
			_, err := stmt.Exec(p.Package, tl.Name, order, int(a.ID), int(a.Kind), a.Member, a.HostName, a.Signature)
			if err != nil {
				return fmt.Errorf("saving %s.%s: %w", tl.Name, a.Member, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing plan: %w", err)
	}
	return nil
}

// Load rebuilds the plan for pkg.
func (s *SQLStore) Load(pkg string) (*Plan, error) {
	rows, err := s.db.Query(`SELECT type_name, slot, kind, member, host_name, signature
		FROM slot_assignments WHERE package = ?
		ORDER BY type_order, slot`, pkg)
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	defer rows.Close()

	p := &Plan{Package: pkg, Version: PlanVersion}
	for rows.Next() {
		var (
			typeName string
			id, kind int
			a        Assignment
		)
		if err := rows.Scan(&typeName, &id, &kind, &a.Member, &a.HostName, &a.Signature); err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		a.ID = slots.ID(id)
		a.Kind = slots.Kind(kind)

		if n := len(p.Types); n == 0 || p.Types[n-1].Name != typeName {
			p.Types = append(p.Types, TypeLayout{Name: typeName})
		}
		last := &p.Types[len(p.Types)-1]
		last.Slots = append(last.Slots, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}

	if len(p.Types) == 0 {
		return nil, ErrPlanNotFound
	}
	return p, nil
}
