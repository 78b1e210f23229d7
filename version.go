package autoprobe

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Version is a rustc release number.
//
// Pre-release and build metadata are dropped: "1.70.0-nightly" and "1.70.0"
// compare equal. The release track is reported separately as a [Channel].
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// NewVersion returns the version major.minor.patch.
func NewVersion(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// ParseVersion parses a string starting with "MAJOR.MINOR.PATCH".
// Whatever follows the third number (a "-" or "+" suffix, extra dotted
// fields, trailing text) is dropped, whether or not it is valid semver.
// Anything that does not start with three dot-separated non-negative
// integers is rejected with [ErrInvalidVersion].
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	core := s
	if i := strings.IndexAny(core, "-+ \t"); i >= 0 {
		core = core[:i]
	}

	fields := strings.Split(core, ".")
	if len(fields) < 3 {
		return Version{}, fmt.Errorf("%w: %q: want MAJOR.MINOR.PATCH", ErrInvalidVersion, s)
	}

	var nums [3]uint64
	for i := range nums {
		n, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, s, err)
		}
		nums[i] = n
	}
	return NewVersion(nums[0], nums[1], nums[2]), nil
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to,
// or after o.
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, o.Patch)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// AtLeast reports whether v is major.minor.0 or newer.
func (v Version) AtLeast(major, minor uint64) bool {
	return v.Compare(NewVersion(major, minor, 0)) >= 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
