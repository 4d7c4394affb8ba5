package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/toplikes/internal/models"
	"github.com/desertthunder/toplikes/internal/shared"
)

// SnapshotRepository implements models.Repository[*models.Snapshot] for ranking history.
type SnapshotRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Snapshot] = (*SnapshotRepository)(nil)

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create inserts a snapshot and its ranked artists in one transaction, assigning ID and sequence.
func (r *SnapshotRepository) Create(snap *models.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(tx, "snapshots")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	id := shared.GenerateID()

	_, err = tx.Exec(`
		INSERT INTO snapshots (id, sequence, track_count, artist_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, sequence, snap.TrackCount(), snap.ArtistCount(), snap.CreatedAt(), snap.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for i, tally := range snap.Tallies() {
		_, err = tx.Exec(`
			INSERT INTO snapshot_artists (snapshot_id, rank, artist_id, artist_name, liked_count)
			VALUES (?, ?, ?, ?, ?)
		`, id, i+1, tally.Artist.ID, tally.Artist.Name, tally.Count)
		if err != nil {
			return fmt.Errorf("failed to insert ranked artist %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	snap.SetID(id)
	snap.SetSequence(sequence)
	return nil
}

// Get retrieves a snapshot with its ranked artists by ID
func (r *SnapshotRepository) Get(id string) (*models.Snapshot, error) {
	row := r.db.QueryRow(`
		SELECT id, sequence, track_count, artist_count, created_at, updated_at
		FROM snapshots
		WHERE id = ?
	`, id)

	snap, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return r.withTallies(snap)
}

// Latest returns the most recently saved snapshot.
func (r *SnapshotRepository) Latest() (*models.Snapshot, error) {
	snaps, err := r.List(1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("%w: no snapshots saved", shared.ErrNotFound)
	}
	return snaps[0], nil
}

// Delete removes a snapshot by ID. Its ranked artists are removed by the foreign key cascade.
func (r *SnapshotRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: snapshot %s", shared.ErrNotFound, id)
	}

	return nil
}

// List retrieves up to limit snapshots, newest first. limit <= 0 returns all of them.
func (r *SnapshotRepository) List(limit int) ([]*models.Snapshot, error) {
	query := `
		SELECT id, sequence, track_count, artist_count, created_at, updated_at
		FROM snapshots
		ORDER BY sequence DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}

	var snaps []*models.Snapshot
	for rows.Next() {
		snap, err := r.scan(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for i, snap := range snaps {
		if snaps[i], err = r.withTallies(snap); err != nil {
			return nil, err
		}
	}

	return snaps, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one snapshots row. Tallies are loaded separately by [SnapshotRepository.withTallies].
func (r *SnapshotRepository) scan(s scanner) (*models.Snapshot, error) {
	var (
		id          string
		sequence    int
		trackCount  int
		artistCount int
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := s.Scan(&id, &sequence, &trackCount, &artistCount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	return models.LoadSnapshot(id, sequence, trackCount, artistCount, nil, createdAt, updatedAt), nil
}

func (r *SnapshotRepository) withTallies(snap *models.Snapshot) (*models.Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT artist_id, artist_name, liked_count
		FROM snapshot_artists
		WHERE snapshot_id = ?
		ORDER BY rank ASC
	`, snap.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked artists: %w", err)
	}
	defer rows.Close()

	tallies := []models.ArtistTally{}
	for rows.Next() {
		var tally models.ArtistTally
		if err := rows.Scan(&tally.Artist.ID, &tally.Artist.Name, &tally.Count); err != nil {
			return nil, fmt.Errorf("failed to scan ranked artist: %w", err)
		}
		tallies = append(tallies, tally)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return models.LoadSnapshot(snap.ID(), snap.Sequence(), snap.TrackCount(), snap.ArtistCount(), tallies, snap.CreatedAt(), snap.UpdatedAt()), nil
}
