package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
)

// WriteSnapshot replaces the stored export with ex in a single
// transaction. Files referenced by the snapshot or the diagnostics but
// missing from ex.Files are added as library files.
func (s *Store) WriteSnapshot(ex *Export) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("write snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := tx.Exec("DELETE FROM " + tables[i]); err != nil {
			return fmt.Errorf("write snapshot: clear %s: %w", tables[i], err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO units (id, created_at, iterations, duration_ms) VALUES (?, ?, ?, ?)`,
		ex.Unit.ID, ex.Unit.CreatedAt, ex.Unit.Iterations, ex.Unit.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("write snapshot: unit: %w", err)
	}

	fileIDs := make(map[string]int64)
	for _, f := range allFiles(ex) {
		id, err := insertFileTx(tx, f)
		if err != nil {
			return fmt.Errorf("write snapshot: file %s: %w", f.Path, err)
		}
		fileIDs[f.Path] = id
	}

	snap := ex.Snapshot
	for _, path := range snap.Files() {
		for i, sym := range snap.FileSymbols(path) {
			if _, err := tx.Exec(
				`INSERT INTO symbols (file_id, ordinal, name, scope, type_name, record_name, array_levels, kind)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				fileIDs[path], i, sym.Name, sym.Scope, sym.TypeName, sym.RecordName, sym.ArrayLevels, sym.Kind.String(),
			); err != nil {
				return fmt.Errorf("write snapshot: symbol %q: %w", sym.Name, err)
			}
		}
	}

	for _, name := range snap.Records() {
		rec, _ := snap.Record(name)
		res, err := tx.Exec(
			`INSERT INTO record_types (name, signature) VALUES (?, ?)`,
			rec.Name, strconv.FormatUint(rec.Signature, 16),
		)
		if err != nil {
			return fmt.Errorf("write snapshot: record %q: %w", name, err)
		}
		recID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("write snapshot: record %q: %w", name, err)
		}
		for i, m := range rec.Members {
			if _, err := tx.Exec(
				`INSERT INTO record_members (record_id, ordinal, name, type_name, record_name, array_levels, kind)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				recID, i, m.Name, m.TypeName, m.RecordName, m.ArrayLevels, m.Kind.String(),
			); err != nil {
				return fmt.Errorf("write snapshot: member %s.%s: %w", name, m.Name, err)
			}
		}
	}

	for i, path := range snap.Packages() {
		if _, err := tx.Exec(`INSERT INTO packages (file_id, ordinal) VALUES (?, ?)`, fileIDs[path], i); err != nil {
			return fmt.Errorf("write snapshot: package %s: %w", path, err)
		}
	}

	for path, list := range ex.Diagnostics {
		for i, d := range list {
			if _, err := tx.Exec(
				`INSERT INTO diagnostics (file_id, ordinal, code, message, severity, start_line, start_col, end_line, end_col)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				fileIDs[path], i, d.Code, d.Message, d.Severity.String(),
				d.Start.Line, d.Start.Character, d.End.Line, d.End.Character,
			); err != nil {
				return fmt.Errorf("write snapshot: diagnostic in %s: %w", path, err)
			}
		}
	}

	return tx.Commit()
}

// allFiles merges ex.Files with every other path the export refers to,
// sorted by path.
func allFiles(ex *Export) []File {
	byPath := make(map[string]File, len(ex.Files))
	for _, f := range ex.Files {
		byPath[f.Path] = f
	}
	add := func(path string) {
		if _, ok := byPath[path]; !ok {
			byPath[path] = File{Path: path}
		}
	}
	for _, path := range ex.Snapshot.Files() {
		add(path)
	}
	for _, path := range ex.Snapshot.Packages() {
		add(path)
	}
	for path := range ex.Diagnostics {
		add(path)
	}
	out := make([]File, 0, len(byPath))
	for _, f := range byPath {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func insertFileTx(tx *sql.Tx, f File) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO files (path, user_loaded, modified) VALUES (?, ?, ?)`,
		f.Path, f.UserLoaded, f.Modified,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
