package storage

import (
	"context"
	"database/sql"
)

// migration is one ordered schema step committed in its own transaction.
// version 0 is the schema created by initialize(); real migrations start
// at 1. None exist yet — schemaFor() already produces the current shape —
// but the list stays here so adding a column later doesn't require
// touching Store.runMigrations.
type migration struct {
	version int
	up      func(ctx context.Context, tx *sql.Tx) error
}

var migrations = []migration{}
