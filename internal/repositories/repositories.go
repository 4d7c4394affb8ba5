// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements models.Repository[T] for a specific entity type,
// handling CRUD operations and sequence generation.
package repositories

import (
	"database/sql"
	"fmt"
)

// Queryer is the subset of [*sql.DB] and [*sql.Tx] used by helpers that run inside a caller's transaction.
type Queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// NextSequence increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities (e.g., snapshot #42).
// Pass a transaction so the increment commits or rolls back together with the insert that uses it.
func NextSequence(q Queryer, table string) (int, error) {
	sequenceTable := table + "_sequence"

	_, err := q.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = q.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	return sequence, nil
}
