package check

import (
	"strconv"
	"strings"
)

// shouldSkip reports whether a directory entry is outside the comparison's
// scope: catalog-internal files, temporary-table files, dotfiles, and the
// free-space-map / visibility-map / init-fork auxiliary files. The auxiliary
// forks are not fully replication-logged, so divergence there is expected and
// benign. Matching is case-insensitive like the on-disk naming it mirrors.
func shouldSkip(name string) bool {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "pg"),
		strings.HasPrefix(lower, "t_"),
		strings.HasPrefix(lower, "."),
		strings.HasSuffix(lower, "_fsm"),
		strings.HasSuffix(lower, "_vm"),
		strings.HasSuffix(lower, "_init"):
		return true
	}
	return false
}

// parseName splits a directory entry name into its filenode and optional
// segment number ("16384" or "16384.2"). ok is false when the leading token
// is not a filenode at all.
func parseName(name string) (filenode uint32, segment int, hasSegment bool, ok bool) {
	base, seg, found := strings.Cut(name, ".")

	fn, err := strconv.ParseUint(base, 10, 32)
	if err != nil {
		return 0, 0, false, false
	}

	if found {
		n, err := strconv.Atoi(seg)
		if err != nil {
			return 0, 0, false, false
		}
		return uint32(fn), n, true, true
	}
	return uint32(fn), 0, false, true
}
