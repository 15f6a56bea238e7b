// Package wal models the checker's view of durability and replication
// progress: log positions, the checkpoint collaborator, and the replication
// sender registry it polls while waiting for a mirror to catch up.
package wal

import (
	"context"
	"fmt"
)

// LSN is a monotonically increasing marker of durable write progress.
type LSN uint64

func (l LSN) String() string {
	return fmt.Sprintf("%X/%X", uint32(l>>32), uint32(l))
}

// SenderState is the streaming state of a replication sender.
type SenderState int

const (
	StateStartup SenderState = iota
	StateCatchup
	StateStreaming
	StateStopping
)

var stateNames = [...]string{
	StateStartup:   "startup",
	StateCatchup:   "catchup",
	StateStreaming: "streaming",
	StateStopping:  "stopping",
}

func (s SenderState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// SenderStatus is one replication sender's progress record. Senders serving
// other reader kinds (base backups, for instance) have ForMirror false and
// are ignored by the sync coordinator.
type SenderStatus struct {
	ForMirror bool
	PID       int
	State     SenderState
	Applied   LSN
}

// Checkpointer requests durability checkpoints and reports the redo point of
// the most recent one.
type Checkpointer interface {
	RequestCheckpoint(ctx context.Context, force, wait bool) error
	RedoPointer() (LSN, error)
}

// SenderRegistry exposes the current set of replication senders. Senders must
// return a consistent snapshot; the registry holds whatever lock it needs
// only for the duration of the call.
type SenderRegistry interface {
	Senders() []SenderStatus
}
