package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jward/veriscope/internal/diag"
	"github.com/jward/veriscope/internal/index"
)

// Unit returns the exported unit, or nil when nothing was written yet.
func (s *Store) Unit() (*Unit, error) {
	u := &Unit{}
	var ms int64
	err := s.db.QueryRow(`SELECT id, created_at, iterations, duration_ms FROM units`).
		Scan(&u.ID, &u.CreatedAt, &u.Iterations, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query unit: %w", err)
	}
	u.Duration = time.Duration(ms) * time.Millisecond
	return u, nil
}

// Files returns every exported file, sorted by path.
func (s *Store) Files() ([]File, error) {
	rows, err := s.db.Query(`SELECT id, path, user_loaded, modified FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()
	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.Path, &f.UserLoaded, &f.Modified); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

const symbolCols = `f.path, s.name, s.scope, s.type_name, s.record_name, s.array_levels, s.kind`

// SymbolsByFile returns the symbols of path in declaration order.
func (s *Store) SymbolsByFile(path string) ([]index.Symbol, error) {
	return s.querySymbols(
		`SELECT `+symbolCols+` FROM symbols s JOIN files f ON f.id = s.file_id
		 WHERE f.path = ? ORDER BY s.ordinal`, path)
}

// SymbolsByName returns every symbol called name, ordered by file.
func (s *Store) SymbolsByName(name string) ([]index.Symbol, error) {
	return s.querySymbols(
		`SELECT `+symbolCols+` FROM symbols s JOIN files f ON f.id = s.file_id
		 WHERE s.name = ? ORDER BY f.path, s.ordinal`, name)
}

func (s *Store) querySymbols(query string, args ...any) ([]index.Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()
	var symbols []index.Symbol
	for rows.Next() {
		var sym index.Symbol
		var kind string
		if err := rows.Scan(&sym.File, &sym.Name, &sym.Scope, &sym.TypeName,
			&sym.RecordName, &sym.ArrayLevels, &kind); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		sym.Kind, _ = index.ParseKind(kind)
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Records returns every exported record name, sorted.
func (s *Store) Records() ([]string, error) {
	return s.queryStrings(`SELECT name FROM record_types ORDER BY name`)
}

// RecordMembers returns the members of the named record in declaration
// order. An unknown record has no members.
func (s *Store) RecordMembers(record string) ([]index.Member, error) {
	rows, err := s.db.Query(
		`SELECT m.name, m.type_name, m.record_name, m.array_levels, m.kind
		 FROM record_members m JOIN record_types r ON r.id = m.record_id
		 WHERE r.name = ? ORDER BY m.ordinal`, record)
	if err != nil {
		return nil, fmt.Errorf("query record members: %w", err)
	}
	defer rows.Close()
	var members []index.Member
	for rows.Next() {
		var m index.Member
		var kind string
		if err := rows.Scan(&m.Name, &m.TypeName, &m.RecordName, &m.ArrayLevels, &kind); err != nil {
			return nil, fmt.Errorf("scan record member: %w", err)
		}
		m.Kind, _ = index.ParseKind(kind)
		members = append(members, m)
	}
	return members, rows.Err()
}

// Packages returns the files that declare packages, in index order.
func (s *Store) Packages() ([]string, error) {
	return s.queryStrings(
		`SELECT f.path FROM packages p JOIN files f ON f.id = p.file_id ORDER BY p.ordinal`)
}

// DiagnosticsByFile returns the diagnostics of path in report order.
func (s *Store) DiagnosticsByFile(path string) ([]diag.Diagnostic, error) {
	rows, err := s.db.Query(
		`SELECT d.code, d.message, d.severity, d.start_line, d.start_col, d.end_line, d.end_col
		 FROM diagnostics d JOIN files f ON f.id = d.file_id
		 WHERE f.path = ? ORDER BY d.ordinal`, path)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()
	var out []diag.Diagnostic
	for rows.Next() {
		var d diag.Diagnostic
		var sev string
		if err := rows.Scan(&d.Code, &d.Message, &sev,
			&d.Start.Line, &d.Start.Character, &d.End.Line, &d.End.Character); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Severity, _ = diag.ParseSeverity(sev)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) queryStrings(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
