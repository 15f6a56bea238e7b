// Package pagemask normalizes page byte ranges that are allowed to differ
// between a primary and its mirror without indicating real divergence.
package pagemask

import (
	"github.com/replicheck/replicheck/internal/catalog"
	"github.com/replicheck/replicheck/internal/page"
)

// Masker normalizes one page image in place. Implementations must be
// idempotent: masking a masked page is a no-op.
type Masker interface {
	Mask(p []byte, blockno uint32)
}

// MaskFunc adapts a function to the Masker interface.
type MaskFunc func(p []byte, blockno uint32)

func (f MaskFunc) Mask(p []byte, blockno uint32) { f(p, blockno) }

// Registry dispatches maskers by access method, with the sequence kind as a
// special case on heap storage and an explicit fallback for access methods
// nobody registered. Adding a storage layout is a single Register call.
type Registry struct {
	byAM     map[catalog.AccessMethod]Masker
	sequence Masker
	fallback Masker
}

// NewRegistry returns a registry with all built-in maskers installed.
func NewRegistry() *Registry {
	r := &Registry{
		byAM:     make(map[catalog.AccessMethod]Masker),
		sequence: MaskFunc(maskSequence),
		fallback: MaskFunc(maskCommon),
	}
	r.Register(catalog.AMHeap, MaskFunc(maskHeap))
	r.Register(catalog.AMBtree, MaskFunc(maskBtree))
	r.Register(catalog.AMGist, MaskFunc(maskGist))
	r.Register(catalog.AMGin, MaskFunc(maskGin))
	return r
}

// Register installs (or replaces) the masker for an access method.
func (r *Registry) Register(am catalog.AccessMethod, m Masker) {
	r.byAM[am] = m
}

// For returns the masker for an object's access method and kind. Unknown
// access methods get the common fallback mask.
func (r *Registry) For(am catalog.AccessMethod, kind catalog.Kind) Masker {
	if am == catalog.AMHeap && kind == catalog.KindSequence {
		return r.sequence
	}
	if m, ok := r.byAM[am]; ok {
		return m
	}
	return r.fallback
}

// maskCommon hides the fields every layout allows to differ: the page LSN,
// the checksum derived from it, and the free-line/full hint flags.
func maskCommon(p []byte, _ uint32) {
	if len(p) < page.HeaderSize {
		return
	}
	page.SetLSN(p, 0)
	page.SetChecksum(p, 0)
	page.SetFlags(p, page.Flags(p)&^(page.FlagHasFreeLines|page.FlagFull))
}

// maskUnusedSpace zeroes the hole between the item pointer area and the tuple
// area. Its contents are whatever was there before the last compaction and
// are never replicated.
func maskUnusedSpace(p []byte) {
	lower, upper := int(page.Lower(p)), int(page.Upper(p))
	if lower < page.HeaderSize || lower > upper || upper > len(p) {
		return
	}
	clear(p[lower:upper])
}

func maskHeap(p []byte, blockno uint32) {
	maskCommon(p, blockno)
	if len(p) < page.HeaderSize {
		return
	}
	// The all-visible flag is set lazily by reads and may trail on the mirror.
	page.SetFlags(p, page.Flags(p)&^page.FlagAllVisible)
	maskUnusedSpace(p)
}

func maskSequence(p []byte, blockno uint32) {
	// Sequence pages are rewritten whole on every logged change; only the
	// LSN and checksum may legitimately differ.
	if len(p) < page.HeaderSize {
		return
	}
	page.SetLSN(p, 0)
	page.SetChecksum(p, 0)
}

func maskBtree(p []byte, blockno uint32) {
	maskCommon(p, blockno)
	maskUnusedSpace(p)
	// The vacuum cycle id lives in the last two bytes of the special area
	// and is not propagated through the log.
	if special := int(page.Special(p)); special <= len(p)-2 {
		clear(p[len(p)-2:])
	}
}

func maskGist(p []byte, blockno uint32) {
	maskCommon(p, blockno)
	maskUnusedSpace(p)
}

func maskGin(p []byte, blockno uint32) {
	maskCommon(p, blockno)
	maskUnusedSpace(p)
}
