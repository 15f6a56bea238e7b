package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	CheckStarted Type = iota + 1
	CheckCompleted
	FileCompared
	FileSkipped
	FileMismatch
	FileRetried
	FileRecovered
	FileGaveUp
	FileUnresolved
	ExtraFile
	ExtraUnknownFile
	ConcurrentDelete
	SyncWaitStarted
	SyncCaughtUp
	SyncLost
	SyncTimeout
)

var typeNames = [...]string{
	CheckStarted:     "CheckStarted",
	CheckCompleted:   "CheckCompleted",
	FileCompared:     "FileCompared",
	FileSkipped:      "FileSkipped",
	FileMismatch:     "FileMismatch",
	FileRetried:      "FileRetried",
	FileRecovered:    "FileRecovered",
	FileGaveUp:       "FileGaveUp",
	FileUnresolved:   "FileUnresolved",
	ExtraFile:        "ExtraFile",
	ExtraUnknownFile: "ExtraUnknownFile",
	ConcurrentDelete: "ConcurrentDelete",
	SyncWaitStarted:  "SyncWaitStarted",
	SyncCaughtUp:     "SyncCaughtUp",
	SyncLost:         "SyncLost",
	SyncTimeout:      "SyncTimeout",
}

func (t Type) String() string {
	if int(t) > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single diagnostic from a check run. The event stream is
// part of the checker's observable contract: every warning or notice the run
// produces is also delivered as a typed event.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // file the event concerns (primary path unless noted)
	Block     uint32 // block number, for per-block events
	Category  string // classified category name, when known
	Detail    string // human-readable reason
	Error     error
}

// Emit sends e on ch without blocking. A nil channel or a full buffer drops
// the event; the slog record carries the same information either way.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}
