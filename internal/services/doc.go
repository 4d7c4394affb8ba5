// Package services reads the authenticated user's saved tracks from the Spotify Web API.
//
// # Spotify Implementation
//
// [SpotifyService] sends the access token from the authorization flow as a bearer credential through an
// [oauth2.Transport]. It never refreshes or stores the token.
//
// [SpotifyService.AllSavedTracks] walks /me/tracks with limit/offset paging. Requests are strictly
// sequential and paced by a token-bucket limiter.
//
// # Error Handling
//
// Failed pages surface as [*FetchError]:
//   - [shared.ErrFetch] : any non-2xx status, transport failure or undecodable body
//   - [shared.ErrNotAuthenticated] : the API answered 401
//
// A failure anywhere in the walk discards partial results.
//
// # API Mappings
//
// [SpotifyTrack] maps to [models.Track] keeping the credited artists in order. Items whose track is null
// are skipped.
package services
