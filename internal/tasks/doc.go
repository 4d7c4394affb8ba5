// Package tasks turns a saved-track library into an artist ranking.
//
// # Ranking
//
// [TopArtists] groups credits by artist id and orders artists by the number of saved tracks crediting them.
// Equal counts keep first-seen order, so the result depends only on the order of the input tracks.
//
// # Progress Reporting
//
// [ReportEngine.Run] sends [ProgressUpdate] values on an optional channel.
// Updates use select with default to prevent blocking.
//
// # Snapshots
//
// The optional [SnapshotSaver] interface records each ranking. Save failures are returned alongside the
// ranking rather than replacing it.
package tasks
