package store

import (
	"database/sql"

	"github.com/SatoshiReport/s3evacuate/internal/migration"
)

// phaseManager owns the migration_metadata table's single
// current_phase entry.
type phaseManager struct {
	db *sql.DB
}

func (m *phaseManager) init() error {
	var value string
	err := m.db.QueryRow("SELECT value FROM migration_metadata WHERE key = 'current_phase'").Scan(&value)
	if err == sql.ErrNoRows {
		return m.SetPhase(migration.PhaseScanning)
	}
	return err
}

// GetPhase returns the current migration phase, defaulting to scanning
// if no phase has ever been recorded.
func (m *phaseManager) GetPhase() (migration.Phase, error) {
	var value string
	err := m.db.QueryRow("SELECT value FROM migration_metadata WHERE key = 'current_phase'").Scan(&value)
	if err == sql.ErrNoRows {
		return migration.PhaseScanning, nil
	}
	if err != nil {
		return "", err
	}
	return migration.Phase(value), nil
}

// SetPhase persists phase as the current migration phase.
func (m *phaseManager) SetPhase(phase migration.Phase) error {
	now := nowISO()
	_, err := m.db.Exec(`
		INSERT OR REPLACE INTO migration_metadata (key, value, updated_at)
		VALUES ('current_phase', ?, ?)`,
		string(phase), now,
	)
	return err
}
