package veriscope

import (
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jward/veriscope/internal/store"
)

// ErrNotIndexed is returned by Export before the first compile.
var ErrNotIndexed = errors.New("veriscope: nothing indexed yet")

// Export writes the published snapshot and diagnostics to the SQLite
// database at dbPath, replacing any earlier export there.
func (e *Engine) Export(dbPath string) error {
	st := e.state.Load()
	if st == nil {
		return ErrNotIndexed
	}

	ex := &store.Export{
		Unit: store.Unit{
			ID:         st.pass.Unit.ID,
			CreatedAt:  unitTime(st.pass.Unit.ID),
			Iterations: st.pass.Iterations,
			Duration:   st.pass.Duration,
		},
		Snapshot:    st.index,
		Diagnostics: st.diagnostics,
	}
	for _, f := range e.sources.Files() {
		ex.Files = append(ex.Files, store.File{Path: f.Path, UserLoaded: f.UserLoaded, Modified: f.Modified})
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("veriscope: export: %w", err)
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return fmt.Errorf("veriscope: export: %w", err)
	}
	if err := s.WriteSnapshot(ex); err != nil {
		return fmt.Errorf("veriscope: export: %w", err)
	}
	e.logger.Printf("exported unit %s to %s", ex.Unit.ID, dbPath)
	return nil
}

// unitTime recovers the creation time encoded in a unit ID. IDs that are
// not ULIDs fall back to the current time.
func unitTime(id string) time.Time {
	u, err := ulid.Parse(id)
	if err != nil {
		return time.Now().UTC()
	}
	return ulid.Time(u.Time()).UTC()
}
