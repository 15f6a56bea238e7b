package wal

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// LocalFlusher is the offline checkpoint collaborator for checking a pair of
// directories with no live replication between them. A "checkpoint" fsyncs
// every regular file under the primary directory so the on-disk state is
// current, and it reports no mirror senders, which the coordinator treats as
// vacuously caught up.
type LocalFlusher struct {
	Dir string

	lsn atomic.Uint64
}

var _ Checkpointer = (*LocalFlusher)(nil)
var _ SenderRegistry = (*LocalFlusher)(nil)

// RequestCheckpoint implements Checkpointer.
func (f *LocalFlusher) RequestCheckpoint(ctx context.Context, force, wait bool) error {
	err := filepath.WalkDir(f.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		fd, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil // deleted mid-walk
			}
			return err
		}
		syncErr := unix.Fsync(int(fd.Fd()))
		fd.Close()
		if syncErr != nil {
			return fmt.Errorf("fsync %s: %w", path, syncErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flush %s: %w", f.Dir, err)
	}

	f.lsn.Add(1)
	return nil
}

// RedoPointer implements Checkpointer.
func (f *LocalFlusher) RedoPointer() (LSN, error) {
	return LSN(f.lsn.Load()), nil
}

// Senders implements SenderRegistry. No mirror senders exist offline.
func (f *LocalFlusher) Senders() []SenderStatus {
	return nil
}
