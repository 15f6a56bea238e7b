package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector tracks check-run statistics using lock-free atomic counters.
type Collector struct {
	filesCompared   atomic.Int64
	filesMatched    atomic.Int64
	filesMismatched atomic.Int64
	filesSkipped    atomic.Int64
	filesUnresolved atomic.Int64
	extraFiles      atomic.Int64
	blocksCompared  atomic.Int64
	blocksMasked    atomic.Int64
	blocksSkipped   atomic.Int64
	retries         atomic.Int64
	giveUps         atomic.Int64
	syncWaits       atomic.Int64
	startTime       time.Time
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

func (c *Collector) AddFilesCompared(n int64)   { c.filesCompared.Add(n) }
func (c *Collector) AddFilesMatched(n int64)    { c.filesMatched.Add(n) }
func (c *Collector) AddFilesMismatched(n int64) { c.filesMismatched.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)    { c.filesSkipped.Add(n) }
func (c *Collector) AddFilesUnresolved(n int64) { c.filesUnresolved.Add(n) }
func (c *Collector) AddExtraFiles(n int64)      { c.extraFiles.Add(n) }
func (c *Collector) AddBlocksCompared(n int64)  { c.blocksCompared.Add(n) }
func (c *Collector) AddBlocksMasked(n int64)    { c.blocksMasked.Add(n) }
func (c *Collector) AddBlocksSkipped(n int64)   { c.blocksSkipped.Add(n) }
func (c *Collector) AddRetries(n int64)         { c.retries.Add(n) }
func (c *Collector) AddGiveUps(n int64)         { c.giveUps.Add(n) }
func (c *Collector) AddSyncWaits(n int64)       { c.syncWaits.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesCompared   int64
	FilesMatched    int64
	FilesMismatched int64
	FilesSkipped    int64
	FilesUnresolved int64
	ExtraFiles      int64
	BlocksCompared  int64
	BlocksMasked    int64
	BlocksSkipped   int64
	Retries         int64
	GiveUps         int64
	SyncWaits       int64
	Elapsed         time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesCompared:   c.filesCompared.Load(),
		FilesMatched:    c.filesMatched.Load(),
		FilesMismatched: c.filesMismatched.Load(),
		FilesSkipped:    c.filesSkipped.Load(),
		FilesUnresolved: c.filesUnresolved.Load(),
		ExtraFiles:      c.extraFiles.Load(),
		BlocksCompared:  c.blocksCompared.Load(),
		BlocksMasked:    c.blocksMasked.Load(),
		BlocksSkipped:   c.blocksSkipped.Load(),
		Retries:         c.retries.Load(),
		GiveUps:         c.giveUps.Load(),
		SyncWaits:       c.syncWaits.Load(),
		Elapsed:         c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"compared=%d matched=%d mismatched=%d skipped=%d unresolved=%d extra=%d blocks=%d retries=%d gaveup=%d",
		s.FilesCompared, s.FilesMatched, s.FilesMismatched, s.FilesSkipped,
		s.FilesUnresolved, s.ExtraFiles, s.BlocksCompared, s.Retries, s.GiveUps,
	)
}
