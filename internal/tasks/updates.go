package tasks

import (
	"fmt"

	"github.com/desertthunder/toplikes/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchLibrary Phase = iota
	RankArtists
	SaveSnapshot
)

func (p Phase) String() string {
	switch p {
	case FetchLibrary:
		return "fetch_library"
	case RankArtists:
		return "rank_artists"
	case SaveSnapshot:
		return "save_snapshot"
	default:
		return ""
	}
}

func fetchingLibraryUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    1,
		Total:   1,
		Message: "Fetching liked tracks from Spotify...",
	}
}

func fetchedLibraryUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d liked tracks", count),
		Data:    count,
	}
}

func rankedArtistsUpdate(summary Summary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RankArtists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Ranked %d artists", summary.ArtistCount),
		Data:    summary,
	}
}

func savedSnapshotUpdate(snap *models.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveSnapshot,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Snapshot saved: #%d (ID: %s)", snap.Sequence(), snap.ID()),
		Data:    snap,
	}
}
