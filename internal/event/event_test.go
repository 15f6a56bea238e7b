package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeString(t *testing.T) {
	assert.Equal(t, "CheckStarted", CheckStarted.String())
	assert.Equal(t, "FileGaveUp", FileGaveUp.String())
	assert.Equal(t, "SyncTimeout", SyncTimeout.String())
	assert.Equal(t, "Unknown", Type(0).String())
	assert.Equal(t, "Unknown", Type(999).String())
}

func TestEmit_SetsTimestamp(t *testing.T) {
	ch := make(chan Event, 1)
	Emit(ch, Event{Type: FileMismatch, Path: "16384", Block: 3})

	ev := <-ch
	assert.Equal(t, FileMismatch, ev.Type)
	assert.Equal(t, uint32(3), ev.Block)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestEmit_NilChannel(t *testing.T) {
	// Must not panic or block.
	Emit(nil, Event{Type: CheckStarted})
}

func TestEmit_FullChannelDrops(t *testing.T) {
	ch := make(chan Event, 1)
	Emit(ch, Event{Type: FileRetried})
	Emit(ch, Event{Type: FileRecovered}) // buffer full, dropped

	ev := <-ch
	assert.Equal(t, FileRetried, ev.Type)
	select {
	case ev := <-ch:
		t.Fatalf("expected dropped event, got %v", ev.Type)
	default:
	}
}
