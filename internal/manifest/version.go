package manifest

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a flat MAJOR.MINOR.PATCH tuple. Major and minor are
// operator-controlled; patch is owned by the reconciler.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses "MAJOR.MINOR" or "MAJOR.MINOR.PATCH". A missing patch
// component defaults to 0. Anything else is a configuration error.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, fmt.Errorf("invalid version %q: expected MAJOR.MINOR or MAJOR.MINOR.PATCH", s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: component %q is not a non-negative integer", s, p)
		}
		nums[i] = n
	}
	v := Version{Major: nums[0], Minor: nums[1]}
	if len(nums) == 3 {
		v.Patch = nums[2]
	}
	return v, nil
}

func (v Version) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
}

// Compare returns -1, 0 or 1 under lexicographic tuple ordering.
func (v Version) Compare(o Version) int {
	if v.Major != o.Major {
		return sign(v.Major - o.Major)
	}
	if v.Minor != o.Minor {
		return sign(v.Minor - o.Minor)
	}
	return sign(v.Patch - o.Patch)
}

// SameTrack reports whether two versions share major and minor. The registry
// floor only applies within one track.
func (v Version) SameTrack(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
