package volume

import (
	"context"

	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
	"github.com/findit-engine/findit/internal/storage"
)

// rebaseTarget is one (table, column) pair whose values may need rewriting
// after a folder's absolute path changes.
var rebaseTargets = []struct {
	table  string
	column string
}{
	{"videos", "file_path"},
	{"videos", "srt_path"},
	{"clips", "thumbnail_path"},
}

// PathRebaser rewrites stored absolute paths when a folder's mount point
// changes, per invariant P4: any path under oldPrefix becomes
// newPrefix + the path's suffix past oldPrefix, and paths under any other
// prefix are left untouched.
type PathRebaser struct{}

// RebaseIfNeeded rewrites file_path, srt_path, and thumbnail_path columns
// in store wherever they currently live under oldPrefix, moving them to
// newPrefix, in a single transaction. It is a no-op (didRebase=false) if
// oldPrefix equals newPrefix.
func (PathRebaser) RebaseIfNeeded(ctx context.Context, store *storage.Store, oldPrefix, newPrefix string) (didRebase bool, rowsUpdated int64, err error) {
	if oldPrefix == newPrefix {
		return false, 0, nil
	}

	tx, err := store.BeginBatch(ctx)
	if err != nil {
		metrics.VolumeRebaseTotal.WithLabelValues("error").Inc()
		return false, 0, err
	}

	oldWithSlash := oldPrefix + "/"
	var total int64

	for _, target := range rebaseTargets {
		query := "UPDATE " + target.table + " SET " + target.column +
			" = ? || substr(" + target.column + ", ?) " +
			"WHERE substr(" + target.column + ", 1, ?) = ?"

		res, execErr := tx.ExecContext(ctx, query, newPrefix, len(oldPrefix)+1, len(oldWithSlash), oldWithSlash)
		if execErr != nil {
			err = execErr
			break
		}
		rows, _ := res.RowsAffected()
		total += rows
	}

	if commitErr := store.EndBatch(tx, err); commitErr != nil {
		metrics.VolumeRebaseTotal.WithLabelValues("error").Inc()
		return false, 0, commitErr
	}

	metrics.VolumeRebaseTotal.WithLabelValues("success").Inc()
	metrics.VolumeRebaseRowsUpdated.Add(float64(total))

	logging.Info("rebased %d paths in %s store from %s to %s", total, store.Kind(), oldPrefix, newPrefix)
	return true, total, nil
}
