// package tasks ranks the artists of a user's saved tracks.
//
// The core abstraction is [ReportEngine], which fetches the library, ranks its artists and optionally records
// the ranking. Operations emit progress updates via channels for non-blocking status reporting to the CLI.
package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/toplikes/internal/models"
	"github.com/desertthunder/toplikes/internal/services"
	"github.com/desertthunder/toplikes/internal/shared"
)

// SnapshotSaver persists a finished ranking. [repositories.SnapshotRepository] is the production implementation.
type SnapshotSaver interface {
	Create(snap *models.Snapshot) error
}

// ReportResult contains everything one run produced.
type ReportResult struct {
	Summary  Summary
	Snapshot *models.Snapshot // nil unless a saver was configured
}

// ReportEngine runs fetch → rank → save.
type ReportEngine struct {
	source services.LibrarySource
	saver  SnapshotSaver
}

// NewReportEngine creates a ReportEngine. saver may be nil to skip persistence.
func NewReportEngine(source services.LibrarySource, saver SnapshotSaver) *ReportEngine {
	return &ReportEngine{source: source, saver: saver}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ReportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run fetches every saved track, ranks the top n artists and saves a snapshot when a saver is set.
//
// A fetch failure returns no result. A save failure returns the result together with the error so the
// ranking can still be shown.
func (e *ReportEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, n int) (*ReportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: library source not configured", shared.ErrInvalidConfig)
	}

	e.sendProgress(progress, fetchingLibraryUpdate())

	tracks, err := e.source.AllSavedTracks(ctx)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, fetchedLibraryUpdate(len(tracks)))

	result := &ReportResult{Summary: Summarize(tracks, n)}
	e.sendProgress(progress, rankedArtistsUpdate(result.Summary))

	if e.saver == nil {
		return result, nil
	}

	snap := models.NewSnapshot(result.Summary.TrackCount, result.Summary.ArtistCount, result.Summary.Top)
	if err := e.saver.Create(snap); err != nil {
		return result, fmt.Errorf("failed to save snapshot: %w", err)
	}
	result.Snapshot = snap
	e.sendProgress(progress, savedSnapshotUpdate(snap))

	return result, nil
}
