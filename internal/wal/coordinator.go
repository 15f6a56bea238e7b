package wal

import (
	"context"
	"log/slog"
	"time"

	"github.com/replicheck/replicheck/internal/event"
	"github.com/replicheck/replicheck/internal/stats"
)

const (
	// WaitsPerSec is the sender poll rate while waiting for convergence.
	WaitsPerSec = 5

	// SyncTimeoutSeconds bounds how long a single sync wait may poll.
	SyncTimeoutSeconds = 600
)

// Coordinator forces a durability checkpoint and waits for every mirror
// replication sender to apply past the checkpoint's redo point.
type Coordinator struct {
	Checkpoint Checkpointer
	Registry   SenderRegistry
	Timeout    time.Duration // 0 means SyncTimeoutSeconds
	Events     chan<- event.Event
	Stats      *stats.Collector
	Log        *slog.Logger
}

func (c *Coordinator) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// Wait issues an immediate forced blocking checkpoint, then polls the mirror
// senders' applied positions at WaitsPerSec until all have reached the
// checkpoint's redo point or the timeout elapses.
//
// It returns false immediately, without waiting out the timeout, when any
// mirror sender is gone or not streaming: that means the mirror is not
// currently synchronizing, which retrying cannot fix. Cancellation is checked
// on entry and on every poll iteration.
func (c *Coordinator) Wait(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	if c.Stats != nil {
		c.Stats.AddSyncWaits(1)
	}
	event.Emit(c.Events, event.Event{Type: event.SyncWaitStarted})

	if err := c.Checkpoint.RequestCheckpoint(ctx, true, true); err != nil {
		c.log().Warn("checkpoint request failed", "error", err)
		return false
	}
	ckpt, err := c.Checkpoint.RedoPointer()
	if err != nil {
		c.log().Warn("could not read checkpoint redo pointer", "error", err)
		return false
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = SyncTimeoutSeconds * time.Second
	}
	interval := time.Second / WaitsPerSec

	for retry := 0; retry < int(timeout/interval); retry++ {
		if ctx.Err() != nil {
			return false
		}

		caughtUp := true
		for _, s := range c.Registry.Senders() {
			if !s.ForMirror {
				continue
			}
			if s.PID == 0 || s.State != StateStreaming {
				c.log().Info("primary and mirror not in sync",
					"pid", s.PID, "state", s.State.String())
				event.Emit(c.Events, event.Event{
					Type:   event.SyncLost,
					Detail: "mirror sender not streaming",
				})
				return false
			}
			if s.Applied < ckpt {
				caughtUp = false
				break
			}
		}
		if caughtUp {
			event.Emit(c.Events, event.Event{Type: event.SyncCaughtUp})
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}

	c.log().Warn("mirror did not catch up", "redo", ckpt.String(), "timeout", timeout)
	event.Emit(c.Events, event.Event{
		Type:   event.SyncTimeout,
		Detail: "mirror did not reach " + ckpt.String(),
	})
	return false
}
