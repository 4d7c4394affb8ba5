package tasks

import (
	"slices"

	"github.com/desertthunder/toplikes/internal/models"
)

// Summary is the aggregate of one library.
type Summary struct {
	TrackCount  int                  `json:"track_count"`
	ArtistCount int                  `json:"artist_count"` // distinct artists credited on any track
	Top         []models.ArtistTally `json:"top"`
}

// TopArtists counts saved tracks per credited artist and returns at most n tallies, highest first.
//
// Every credit counts, so a track that lists an artist twice adds two for that artist. Artists are
// grouped by id and credits without an id (local files) are skipped. The display name is the first
// name seen for that id. Equal counts keep the order in which the artists were first seen. n <= 0
// returns every artist.
func TopArtists(tracks []models.Track, n int) []models.ArtistTally {
	tallies := tally(tracks)
	if n > 0 && len(tallies) > n {
		tallies = tallies[:n]
	}
	return tallies
}

// Summarize ranks the library and records its totals.
func Summarize(tracks []models.Track, n int) Summary {
	tallies := tally(tracks)
	summary := Summary{TrackCount: len(tracks), ArtistCount: len(tallies), Top: tallies}
	if n > 0 && len(tallies) > n {
		summary.Top = tallies[:n]
	}
	return summary
}

// tally returns every artist ranked by count, ties in first-seen order.
func tally(tracks []models.Track) []models.ArtistTally {
	index := make(map[string]int)
	tallies := make([]models.ArtistTally, 0)

	for _, track := range tracks {
		for _, artist := range track.Artists {
			if artist.ID == "" {
				continue
			}

			if i, ok := index[artist.ID]; ok {
				tallies[i].Count++
				continue
			}
			index[artist.ID] = len(tallies)
			tallies = append(tallies, models.ArtistTally{Artist: artist, Count: 1})
		}
	}

	slices.SortStableFunc(tallies, func(a, b models.ArtistTally) int {
		return b.Count - a.Count
	})
	return tallies
}
