package catalog

import (
	"context"
	"fmt"
	"slices"
)

// Entry is the index record for one on-disk filenode. Segments is mutated
// (append-only) while the primary directory is scanned; everything else is
// immutable once the index is built.
type Entry struct {
	Filenode     uint32
	AccessMethod AccessMethod
	Kind         Kind
	Name         string
	segments     []int
}

// AddSegment records a segment number observed on the primary.
func (e *Entry) AddSegment(n int) {
	e.segments = append(e.segments, n)
}

// HasSegment reports whether segment n was recorded during the primary scan.
func (e *Entry) HasSegment(n int) bool {
	return slices.Contains(e.segments, n)
}

// Index maps filenodes to their catalog entries for one check run.
type Index struct {
	entries map[uint32]*Entry
}

// Lookup returns the entry for an exact filenode, or nil.
func (ix *Index) Lookup(filenode uint32) *Entry {
	return ix.entries[filenode]
}

// Len returns the number of indexed filenodes.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// BuildIndex scans the catalog once and produces the filenode index.
//
// Objects with no physical storage (views, composite types) are skipped, as
// are unlogged objects: those are never replicated, so comparing them is
// meaningless. Objects with a zero filenode are resolved through the
// catalog's filenode map. A failed scan is fatal for the whole run.
func BuildIndex(ctx context.Context, cat Catalog) (*Index, error) {
	objects, err := cat.Objects(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}

	ix := &Index{entries: make(map[uint32]*Entry, len(objects))}
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if obj.Kind == KindView || obj.Kind == KindComposite {
			continue
		}
		if obj.Persistence == Unlogged {
			continue
		}

		filenode := obj.Filenode
		if filenode == 0 {
			filenode, err = cat.MappedFilenode(obj.OID, obj.Shared)
			if err != nil {
				return nil, fmt.Errorf("resolve mapped filenode for %q (oid %d): %w",
					obj.Name, obj.OID, err)
			}
		}

		ix.entries[filenode] = &Entry{
			Filenode:     filenode,
			AccessMethod: obj.AccessMethod,
			Kind:         obj.Kind,
			Name:         obj.Name,
		}
	}

	return ix, nil
}
