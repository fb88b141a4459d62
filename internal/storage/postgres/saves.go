package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/idle-lightning/internal/storage"
)

// SaveRepository is a storage.Store over the save_slots table.
type SaveRepository struct {
	db *pgxpool.Pool
}

// NewSaveRepository creates a SaveRepository backed by db.
//
// Precondition: db is an open pool and the save_slots migration has run.
func NewSaveRepository(db *pgxpool.Pool) *SaveRepository {
	return &SaveRepository{db: db}
}

// Load returns the snapshot stored in slot.
//
// Postcondition: returns an error wrapping storage.ErrSlotNotFound when the
// slot is empty and storage.ErrMalformed when the payload cannot be decoded.
func (r *SaveRepository) Load(ctx context.Context, slot string) (*storage.Snapshot, error) {
	var data []byte
	err := r.db.QueryRow(ctx,
		`SELECT data FROM save_slots WHERE slot = $1`,
		slot,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("loading %q: %w", slot, storage.ErrSlotNotFound)
		}
		return nil, fmt.Errorf("loading save %q: %w", slot, err)
	}

	var snap storage.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding save %q: %w: %w", slot, storage.ErrMalformed, err)
	}
	return &snap, nil
}

// Save upserts snap into slot. A snapshot without a valid run ID is
// assigned a fresh one.
func (r *SaveRepository) Save(ctx context.Context, slot string, snap storage.Snapshot) error {
	runID, err := uuid.Parse(snap.RunID)
	if err != nil {
		runID = uuid.New()
		snap.RunID = runID.String()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding save %q: %w", slot, err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO save_slots (slot, run_id, floor, chapter, stage, gold, data, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (slot) DO UPDATE SET
			run_id     = EXCLUDED.run_id,
			floor      = EXCLUDED.floor,
			chapter    = EXCLUDED.chapter,
			stage      = EXCLUDED.stage,
			gold       = EXCLUDED.gold,
			data       = EXCLUDED.data,
			saved_at   = EXCLUDED.saved_at,
			updated_at = NOW()`,
		slot, runID.String(), snap.Floor, snap.Chapter, snap.Stage, int64(snap.Gold), string(data), snap.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("saving %q: %w", slot, err)
	}
	return nil
}

// Delete removes slot. Deleting an empty slot is not an error.
func (r *SaveRepository) Delete(ctx context.Context, slot string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM save_slots WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("deleting %q: %w", slot, err)
	}
	return nil
}

// SlotSummary is the listing view of a save.
type SlotSummary struct {
	Slot    string
	RunID   uuid.UUID
	Floor   int
	Chapter int
	Stage   int
	Gold    int64
}

// List returns every slot ordered by most recently saved.
func (r *SaveRepository) List(ctx context.Context) ([]SlotSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT slot, run_id::text, floor, chapter, stage, gold
		FROM save_slots ORDER BY saved_at DESC, slot ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}
	defer rows.Close()

	out := make([]SlotSummary, 0)
	for rows.Next() {
		var s SlotSummary
		var runID string
		if err := rows.Scan(&s.Slot, &runID, &s.Floor, &s.Chapter, &s.Stage, &s.Gold); err != nil {
			return nil, fmt.Errorf("scanning save row: %w", err)
		}
		if s.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf("parsing run id %q: %w", runID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
