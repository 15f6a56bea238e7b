// Package classify maps catalog access methods to logical storage categories
// and parses the user-facing category filter.
package classify

import (
	"fmt"
	"strings"

	"github.com/replicheck/replicheck/internal/catalog"
)

// Category is a logical storage category. The set is closed; every access
// method not matching a known case classifies as Unknown.
type Category int

const (
	Btree Category = iota
	Hash
	Gist
	Gin
	Bitmap
	Heap
	Sequence
	AppendOptimized
	Unknown

	numCategories
)

// numSelectable excludes the Unknown sentinel: "all" never selects it.
const numSelectable = int(Unknown)

var categoryNames = [numCategories]string{
	Btree:           "btree",
	Hash:            "hash",
	Gist:            "gist",
	Gin:             "gin",
	Bitmap:          "bitmap",
	Heap:            "heap",
	Sequence:        "sequence",
	AppendOptimized: "ao",
	Unknown:         "unknown",
}

func (c Category) String() string {
	if c >= 0 && c < numCategories {
		return categoryNames[c]
	}
	return "unknown"
}

// Classify maps an access method and kind to a category. Total: unrecognized
// access methods map to Unknown. A sequence stored with the generic heap
// layout classifies as Sequence, not Heap, because its mask differs.
func Classify(am catalog.AccessMethod, kind catalog.Kind) Category {
	switch am {
	case catalog.AMBtree:
		return Btree
	case catalog.AMHash:
		return Hash
	case catalog.AMGist:
		return Gist
	case catalog.AMGin:
		return Gin
	case catalog.AMBitmap:
		return Bitmap
	case catalog.AMHeap:
		if kind == catalog.KindSequence {
			return Sequence
		}
		return Heap
	case catalog.AMAORow, catalog.AMAOColumn:
		return AppendOptimized
	default:
		return Unknown
	}
}

// IncludeSet is the immutable set of categories selected for checking.
type IncludeSet struct {
	included [numCategories]bool
}

// Contains reports whether category c is selected.
func (s IncludeSet) Contains(c Category) bool {
	if c < 0 || c >= numCategories {
		return false
	}
	return s.included[c]
}

// All returns the set selecting every named category. Unknown stays excluded.
func All() IncludeSet {
	var s IncludeSet
	for i := 0; i < numSelectable; i++ {
		s.included[i] = true
	}
	return s
}

// ParseInclude parses a comma-separated, case-insensitive list of category
// names, with "all" selecting every named category. Any unrecognized token
// fails immediately: this runs before any directory I/O, so a typo never
// wastes a scan.
func ParseInclude(spec string) (IncludeSet, error) {
	var s IncludeSet

	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return IncludeSet{}, fmt.Errorf("category list %q: empty element", spec)
		}

		if strings.EqualFold(tok, "all") {
			for i := 0; i < numSelectable; i++ {
				s.included[i] = true
			}
			continue
		}

		found := false
		for i := 0; i < numSelectable; i++ {
			if strings.EqualFold(tok, categoryNames[i]) {
				s.included[i] = true
				found = true
				break
			}
		}
		if !found {
			return IncludeSet{}, fmt.Errorf("unrecognized category: %q", tok)
		}
	}

	return s, nil
}
