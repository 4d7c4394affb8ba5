// Package repositories implements SQLite persistence for saved rankings.
//
// Key Implementations:
//   - [SnapshotRepository] : ranking snapshots and their ranked artist rows
//
// Sequence numbers provide stable, human-readable ordering (e.g., snapshot #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function increments per-table sequence counters in dedicated sequence tables.
//
// Databases opened with [shared.OpenDatabase] use a single connection, so repositories never issue a
// query while another result set is still open.
package repositories
