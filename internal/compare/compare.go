// Package compare performs block-by-block comparison of a primary file
// against its mirror counterpart, retrying around concurrent write and
// replication activity.
package compare

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/zeebo/blake3"

	"github.com/replicheck/replicheck/internal/catalog"
	"github.com/replicheck/replicheck/internal/classify"
	"github.com/replicheck/replicheck/internal/event"
	"github.com/replicheck/replicheck/internal/page"
	"github.com/replicheck/replicheck/internal/pagemask"
	"github.com/replicheck/replicheck/internal/stats"
)

// NumRetries is the total attempt budget per file. A clean block resets the
// counter, so the budget is really "consecutive failed attempts on one block".
const NumRetries = 3

// Syncer waits for the mirror to catch up to a fresh checkpoint. Satisfied by
// *wal.Coordinator.
type Syncer interface {
	Wait(ctx context.Context) bool
}

// Comparator compares primary/mirror file pairs.
type Comparator struct {
	Sync   Syncer
	Masks  *pagemask.Registry
	Events chan<- event.Event
	Stats  *stats.Collector
	Log    *slog.Logger
}

// attemptOutcome is the result of one open-and-scan attempt.
type attemptOutcome int

const (
	attemptMatched attemptOutcome = iota // clean EOF on both sides
	attemptBenign                        // concurrent deletion on both sides
	attemptRetry                         // transient discrepancy, try again
	attemptAborted                       // cancelled
)

// fileComparison is the retry state machine for one file pair. The block
// number persists across attempts: a retry resumes at the block that failed,
// it never rescans blocks already proven equal.
type fileComparison struct {
	primaryPath string
	mirrorPath  string
	entry       *catalog.Entry
	category    classify.Category

	blockno    uint32
	attempts   int
	anyRetries bool

	// Last divergent block images, kept for the give-up diagnostic.
	lastPrimary []byte
	lastMirror  []byte
}

func (c *Comparator) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// CompareFiles compares the file pair block by block, retrying up to
// NumRetries attempts around transient discrepancies. Between attempts it
// waits for the mirror to catch up; if that wait fails, so does the
// comparison. The result is reported, never fatal: a false return folds into
// the run result and the scan moves on.
func (c *Comparator) CompareFiles(ctx context.Context, primaryPath, mirrorPath string, entry *catalog.Entry) bool {
	fc := &fileComparison{
		primaryPath: primaryPath,
		mirrorPath:  mirrorPath,
		entry:       entry,
		category:    classify.Classify(entry.AccessMethod, entry.Kind),
	}

	if c.Stats != nil {
		c.Stats.AddFilesCompared(1)
	}

	for {
		if ctx.Err() != nil {
			return false
		}

		if fc.attempts == NumRetries {
			c.giveUp(fc)
			return false
		}
		fc.attempts++

		if fc.attempts > 1 {
			fc.anyRetries = true
			if c.Stats != nil {
				c.Stats.AddRetries(1)
			}
			event.Emit(c.Events, event.Event{
				Type:     event.FileRetried,
				Path:     fc.primaryPath,
				Block:    fc.blockno,
				Category: fc.category.String(),
			})
			// No point comparing bytes while the mirror is known to be
			// behind; and if it cannot catch up at all, retrying is futile.
			if !c.Sync.Wait(ctx) {
				if c.Stats != nil {
					c.Stats.AddFilesMismatched(1)
				}
				return false
			}
		}

		switch c.attempt(ctx, fc) {
		case attemptMatched:
			if fc.anyRetries {
				// The mismatch notices above are normal under concurrent
				// activity; reassure the operator that this file is fine.
				c.log().Info("succeeded after retrying", "path", fc.primaryPath)
				event.Emit(c.Events, event.Event{
					Type: event.FileRecovered,
					Path: fc.primaryPath,
				})
			}
			if c.Stats != nil {
				c.Stats.AddFilesMatched(1)
			}
			event.Emit(c.Events, event.Event{
				Type:     event.FileCompared,
				Path:     fc.primaryPath,
				Category: fc.category.String(),
			})
			return true

		case attemptBenign:
			if c.Stats != nil {
				c.Stats.AddFilesMatched(1)
			}
			return true

		case attemptRetry:
			continue

		case attemptAborted:
			return false
		}
	}
}

// attempt opens both files and scans blocks from fc.blockno. File handles are
// scoped to the attempt: closed on every return path.
func (c *Comparator) attempt(ctx context.Context, fc *fileComparison) attemptOutcome {
	primary, primaryExists, ok := c.open(fc.primaryPath)
	if !ok {
		return attemptRetry
	}
	defer closeFile(&primary)

	mirror, mirrorExists, ok := c.open(fc.mirrorPath)
	if !ok {
		return attemptRetry
	}
	defer closeFile(&mirror)

	switch {
	case !primaryExists && !mirrorExists:
		c.log().Info("file was concurrently deleted on primary and mirror",
			"path", fc.primaryPath)
		event.Emit(c.Events, event.Event{
			Type: event.ConcurrentDelete,
			Path: fc.primaryPath,
		})
		return attemptBenign

	case !primaryExists:
		c.log().Info("file was concurrently deleted on primary", "path", fc.primaryPath)
		return attemptRetry

	case !mirrorExists:
		c.log().Info("file was concurrently deleted on mirror", "path", fc.mirrorPath)
		return attemptRetry
	}

	primaryBuf := make([]byte, page.BlockSize)
	mirrorBuf := make([]byte, page.BlockSize)

	for {
		if ctx.Err() != nil {
			return attemptAborted
		}

		offset := int64(fc.blockno) * page.BlockSize

		pn, err := readBlock(primary, primaryBuf, offset)
		if err != nil {
			c.log().Info("could not read from file",
				"path", fc.primaryPath, "block", fc.blockno, "error", err)
			return attemptRetry
		}
		mn, err := readBlock(mirror, mirrorBuf, offset)
		if err != nil {
			c.log().Info("could not read from file",
				"path", fc.mirrorPath, "block", fc.blockno, "error", err)
			return attemptRetry
		}

		if pn != mn {
			c.mismatch(fc, fmt.Sprintf("primary length %d, mirror length %d", pn, mn))
			return attemptRetry
		}
		if pn == 0 {
			return attemptMatched // clean EOF on both sides
		}

		primaryBlock := primaryBuf[:pn]
		mirrorBlock := mirrorBuf[:mn]
		doCheck := true

		if fc.entry.AccessMethod == catalog.AMHeap {
			if pn != page.BlockSize {
				c.log().Info("short read from heap file",
					"path", fc.primaryPath, "block", fc.blockno, "bytes", pn)
				return attemptRetry
			}
			// Sanity-check both headers before masking: a bogus block must be
			// a retry, not a crash, because bulk extension can expose sparse
			// pages mid-write.
			if !page.Verified(primaryBlock, fc.blockno) {
				c.log().Info("invalid page header or checksum",
					"path", fc.primaryPath, "block", fc.blockno)
				return attemptRetry
			}
			if !page.Verified(mirrorBlock, fc.blockno) {
				c.log().Info("invalid page header or checksum",
					"path", fc.mirrorPath, "block", fc.blockno)
				return attemptRetry
			}

			switch {
			case page.IsEmpty(primaryBlock) && page.IsNew(mirrorBlock):
				// Bulk extension initializes pages without logging them; the
				// mirror side stays zero-filled. Benign, skip the block.
				doCheck = false
				if c.Stats != nil {
					c.Stats.AddBlocksSkipped(1)
				}
			case !page.IsNew(primaryBlock) && !page.IsNew(mirrorBlock):
				m := c.Masks.For(fc.entry.AccessMethod, fc.entry.Kind)
				m.Mask(primaryBlock, fc.blockno)
				m.Mask(mirrorBlock, fc.blockno)
				if c.Stats != nil {
					c.Stats.AddBlocksMasked(1)
				}
			}
		}

		if doCheck && !bytes.Equal(primaryBlock, mirrorBlock) {
			fc.lastPrimary = bytes.Clone(primaryBlock)
			fc.lastMirror = bytes.Clone(mirrorBlock)
			c.mismatch(fc, fmt.Sprintf("first difference at byte %d",
				firstDiff(primaryBlock, mirrorBlock)))
			return attemptRetry
		}

		if c.Stats != nil {
			c.Stats.AddBlocksCompared(1)
		}

		// A clean block forgives prior retries.
		fc.attempts = 1
		fc.blockno++
	}
}

// open opens a file read-only. The third return is false for errors other
// than "not found", which the caller logs-and-retries.
func (c *Comparator) open(path string) (f *os.File, exists, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, true
		}
		c.log().Warn("could not open file", "path", path, "error", err)
		return nil, false, false
	}
	return f, true, true
}

func closeFile(f **os.File) {
	if *f != nil {
		(*f).Close()
		*f = nil
	}
}

// readBlock reads one block at offset. EOF is not an error: it returns the
// short (possibly zero) byte count, matching the read semantics the retry
// logic is built around.
func readBlock(f *os.File, buf []byte, offset int64) (int, error) {
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return -1, err
	}
	return n, nil
}

func (c *Comparator) mismatch(fc *fileComparison, detail string) {
	c.log().Info("files mismatch",
		"category", fc.category.String(),
		"primary", fc.primaryPath,
		"mirror", fc.mirrorPath,
		"relation", fc.entry.Name,
		"block", fc.blockno,
		"detail", detail,
	)
	event.Emit(c.Events, event.Event{
		Type:     event.FileMismatch,
		Path:     fc.primaryPath,
		Block:    fc.blockno,
		Category: fc.category.String(),
		Detail:   detail,
	})
	if c.Stats != nil {
		c.Stats.AddBlocksCompared(1)
	}
}

func (c *Comparator) giveUp(fc *fileComparison) {
	detail := fmt.Sprintf("gave up after %d retries", fc.attempts)
	if fc.lastPrimary != nil {
		detail += fmt.Sprintf(", primary block %s, mirror block %s",
			shortDigest(fc.lastPrimary), shortDigest(fc.lastMirror))
	}
	c.log().Warn("files mismatch, gave up",
		"category", fc.category.String(),
		"primary", fc.primaryPath,
		"mirror", fc.mirrorPath,
		"relation", fc.entry.Name,
		"block", fc.blockno,
		"detail", detail,
	)
	event.Emit(c.Events, event.Event{
		Type:     event.FileGaveUp,
		Path:     fc.primaryPath,
		Block:    fc.blockno,
		Category: fc.category.String(),
		Detail:   detail,
	})
	if c.Stats != nil {
		c.Stats.AddGiveUps(1)
		c.Stats.AddFilesMismatched(1)
	}
}

// shortDigest returns an abbreviated BLAKE3 digest of a block image, enough
// to tell two divergent images apart in a log line.
func shortDigest(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

func firstDiff(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return len(a)
}
