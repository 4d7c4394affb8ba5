package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/toplikes/internal/shared"
)

// Snapshot is a persisted ranking produced by one run.
type Snapshot struct {
	id          string
	sequence    int
	trackCount  int
	artistCount int
	tallies     []ArtistTally
	createdAt   time.Time
	updatedAt   time.Time
}

// NewSnapshot creates an unsaved snapshot for the given ranking.
//
// artistCount is the number of distinct artists in the library, which may exceed len(tallies).
func NewSnapshot(trackCount, artistCount int, tallies []ArtistTally) *Snapshot {
	now := time.Now().UTC()
	return &Snapshot{
		trackCount:  trackCount,
		artistCount: artistCount,
		tallies:     append([]ArtistTally(nil), tallies...),
		createdAt:   now,
		updatedAt:   now,
	}
}

// LoadSnapshot rebuilds a stored snapshot. Used by repositories when scanning rows.
func LoadSnapshot(id string, sequence, trackCount, artistCount int, tallies []ArtistTally, createdAt, updatedAt time.Time) *Snapshot {
	return &Snapshot{
		id:          id,
		sequence:    sequence,
		trackCount:  trackCount,
		artistCount: artistCount,
		tallies:     tallies,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (s *Snapshot) ID() string             { return s.id }
func (s *Snapshot) Sequence() int          { return s.sequence }
func (s *Snapshot) TrackCount() int        { return s.trackCount }
func (s *Snapshot) ArtistCount() int       { return s.artistCount }
func (s *Snapshot) Tallies() []ArtistTally { return s.tallies }
func (s *Snapshot) CreatedAt() time.Time   { return s.createdAt }
func (s *Snapshot) UpdatedAt() time.Time   { return s.updatedAt }

func (s *Snapshot) SetID(id string)          { s.id = id }
func (s *Snapshot) SetSequence(seq int)      { s.sequence = seq }
func (s *Snapshot) SetUpdatedAt(t time.Time) { s.updatedAt = t }

// Validate checks that the ranking is internally consistent: ids present and counts non-increasing.
func (s *Snapshot) Validate() error {
	if s.trackCount < 0 {
		return fmt.Errorf("%w: negative track count", shared.ErrInvalidInput)
	}
	if s.artistCount < len(s.tallies) {
		return fmt.Errorf("%w: artist count %d below ranked artists %d", shared.ErrInvalidInput, s.artistCount, len(s.tallies))
	}
	for i, t := range s.tallies {
		if t.Artist.ID == "" {
			return fmt.Errorf("%w: tally %d has no artist id", shared.ErrInvalidInput, i+1)
		}
		if t.Count <= 0 {
			return fmt.Errorf("%w: tally %d has non-positive count", shared.ErrInvalidInput, i+1)
		}
		if i > 0 && t.Count > s.tallies[i-1].Count {
			return fmt.Errorf("%w: tallies are not ranked", shared.ErrInvalidInput)
		}
	}
	return nil
}
