// Package version implements the ordering used to decide whether a
// remote release is newer than the running build.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed version string: numeric dot segments plus an
// optional pre-release suffix ("1.2.3-beta.1" -> [1 2 3], "beta.1").
type Version struct {
	Segments []int
	Pre      string
}

// Parse parses a version string. A leading "v" is tolerated. Each dot
// segment before the first "-" must be numeric.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(s, "v"))
	if trimmed == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	core := trimmed
	pre := ""
	if idx := strings.IndexByte(trimmed, '-'); idx >= 0 {
		core = trimmed[:idx]
		pre = trimmed[idx+1:]
	}

	parts := strings.Split(core, ".")
	segments := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version segment %q in %q", part, s)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("negative version segment %q in %q", part, s)
		}
		segments = append(segments, n)
	}

	return Version{Segments: segments, Pre: pre}, nil
}

// Compare returns -1 if v < other, 0 if equal, 1 if v > other.
// Missing segments compare as zero; a pre-release sorts below the
// release with the same numeric prefix.
func (v Version) Compare(other Version) int {
	n := len(v.Segments)
	if len(other.Segments) > n {
		n = len(other.Segments)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v.Segments) {
			a = v.Segments[i]
		}
		if i < len(other.Segments) {
			b = other.Segments[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}

	switch {
	case v.Pre == other.Pre:
		return 0
	case v.Pre == "":
		return 1
	case other.Pre == "":
		return -1
	}
	return strings.Compare(v.Pre, other.Pre)
}

// Compare compares two version strings under the semantic ordering.
// Returns an error when either side cannot be parsed.
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// IsNewer reports whether remote is strictly newer than current.
// Unparseable input on either side yields false: when availability
// cannot be determined, there is no update.
func IsNewer(remote, current string) bool {
	cmp, err := Compare(remote, current)
	if err != nil {
		return false
	}
	return cmp > 0
}
