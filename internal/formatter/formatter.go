// package formatter renders artist rankings and saved snapshots as terminal tables, CSV and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/desertthunder/toplikes/internal/models"
)

// TalliesToCSV converts a ranking to CSV format with columns: Rank, Artist ID, Artist Name, Liked Tracks
func TalliesToCSV(tallies []models.ArtistTally) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "Artist ID", "Artist Name", "Liked Tracks"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, tally := range tallies {
		record := []string{
			strconv.Itoa(i + 1),
			tally.Artist.ID,
			tally.Artist.Name,
			strconv.Itoa(tally.Count),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// RankedArtist is the JSON shape of one ranking row.
type RankedArtist struct {
	Rank        int    `json:"rank"`
	ArtistID    string `json:"artist_id"`
	ArtistName  string `json:"artist_name"`
	LikedTracks int    `json:"liked_tracks"`
}

// Ranked numbers tallies from 1 in their given order.
func Ranked(tallies []models.ArtistTally) []RankedArtist {
	ranked := make([]RankedArtist, len(tallies))
	for i, t := range tallies {
		ranked[i] = RankedArtist{Rank: i + 1, ArtistID: t.Artist.ID, ArtistName: t.Artist.Name, LikedTracks: t.Count}
	}
	return ranked
}

// SnapshotJSON is the JSON shape of a saved snapshot.
type SnapshotJSON struct {
	ID          string         `json:"id"`
	Sequence    int            `json:"sequence"`
	TrackCount  int            `json:"track_count"`
	ArtistCount int            `json:"artist_count"`
	CreatedAt   string         `json:"created_at"`
	Artists     []RankedArtist `json:"artists"`
}

// SnapshotToJSON maps a snapshot to its JSON shape.
func SnapshotToJSON(snap *models.Snapshot) SnapshotJSON {
	return SnapshotJSON{
		ID:          snap.ID(),
		Sequence:    snap.Sequence(),
		TrackCount:  snap.TrackCount(),
		ArtistCount: snap.ArtistCount(),
		CreatedAt:   snap.CreatedAt().Format(timeLayout),
		Artists:     Ranked(snap.Tallies()),
	}
}

// MarshalJSON encodes v with two-space indentation and a trailing newline.
func MarshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}
