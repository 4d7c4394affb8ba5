// package services defines interfaces for reading a user's library from HTTP APIs
//
// Spotify
package services

import (
	"context"

	"github.com/desertthunder/toplikes/internal/models"
)

// LibrarySource returns every track the authenticated user has saved.
//
// [*SpotifyService] is the production implementation.
type LibrarySource interface {
	AllSavedTracks(ctx context.Context) ([]models.Track, error)
}

var _ LibrarySource = (*SpotifyService)(nil)
