package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"smart_irrigation/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

// constants and helpers for clarity and reuse
const (
	controllerStateRowID = 1

	insertOrUpdateStateSQL = `
		INSERT INTO controller_state (id, pumps, channels, failsafe, counters, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pumps=excluded.pumps,
			channels=excluded.channels,
			failsafe=excluded.failsafe,
			counters=excluded.counters,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, pumps, channels, failsafe, counters, updated_at
		FROM controller_state WHERE id=?
	`
)

// Save updates or inserts the controller_state row (id always 1). The
// structured fields travel as JSON columns; SQLite has no reason to index
// inside them.
func (r *StateSQLite) Save(ctx context.Context, state models.ControllerState) error {
	pumps, err := json.Marshal(state.Pumps)
	if err != nil {
		return err
	}
	channels, err := json.Marshal(state.Channels)
	if err != nil {
		return err
	}
	failsafe, err := json.Marshal(state.Failsafe)
	if err != nil {
		return err
	}
	counters, err := json.Marshal(state.Counters)
	if err != nil {
		return err
	}

	// ensure UpdatedAt is always persisted as UTC; set if zero
	tsUTC := state.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err = r.db.ExecContext(ctx, insertOrUpdateStateSQL,
		controllerStateRowID,
		string(pumps),
		string(channels),
		string(failsafe),
		string(counters),
		tsUTC,
	)
	return err
}

// Load fetches the single controller_state row (id=1). A missing row is not
// an error; it means a first boot.
func (r *StateSQLite) Load(ctx context.Context) (models.ControllerState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, controllerStateRowID)

	var s models.ControllerState
	var pumps, channels, failsafe, counters string
	if err := row.Scan(
		&s.ID,
		&pumps,
		&channels,
		&failsafe,
		&counters,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ControllerState{}, nil // no state yet
		}
		return models.ControllerState{}, err
	}

	if err := json.Unmarshal([]byte(pumps), &s.Pumps); err != nil {
		return models.ControllerState{}, err
	}
	if err := json.Unmarshal([]byte(channels), &s.Channels); err != nil {
		return models.ControllerState{}, err
	}
	if err := json.Unmarshal([]byte(failsafe), &s.Failsafe); err != nil {
		return models.ControllerState{}, err
	}
	if err := json.Unmarshal([]byte(counters), &s.Counters); err != nil {
		return models.ControllerState{}, err
	}
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
