// Package version resolves dataset releases from the repository release API
// and the long-term archive mirror.
package version

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Latest is the selector that asks for the most recent release.
const Latest = "latest"

var (
	strictPattern   = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)
	majorMinorRegex = regexp.MustCompile(`^\d+\.\d+$`)
)

// VersionCode is a three-component dataset version. The zero value is 0.0.0.
type VersionCode struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to,
// or after o. Ordering is lexicographic on (Major, Minor, Patch).
func (v VersionCode) Compare(o VersionCode) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, o.Patch)
}

// Less reports whether v sorts before o.
func (v VersionCode) Less(o VersionCode) bool {
	return v.Compare(o) < 0
}

func (v VersionCode) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseStrict parses the major.minor.patch form written to the dataset marker
// file. Prefixes, missing components and suffixes are rejected.
func ParseStrict(s string) (VersionCode, error) {
	m := strictPattern.FindStringSubmatch(s)
	if m == nil {
		return VersionCode{}, fmt.Errorf("invalid version %q: expected major.minor.patch", s)
	}
	var parts [3]uint64
	for i := range parts {
		n, err := strconv.ParseUint(m[i+1], 10, 64)
		if err != nil {
			return VersionCode{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		parts[i] = n
	}
	return VersionCode{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
}

// ParseLenient parses a release tag. A leading "v" and a missing patch
// component are tolerated ("1.5" is 1.5.0); prerelease and build metadata
// are not, since dataset releases never carry them.
func ParseLenient(tag string) (VersionCode, error) {
	sv, err := semver.NewVersion(strings.TrimSpace(tag))
	if err != nil {
		return VersionCode{}, fmt.Errorf("invalid release tag %q: %w", tag, err)
	}
	if sv.Prerelease() != "" || sv.Metadata() != "" {
		return VersionCode{}, fmt.Errorf("invalid release tag %q: prerelease and build metadata are not supported", tag)
	}
	return VersionCode{Major: sv.Major(), Minor: sv.Minor(), Patch: sv.Patch()}, nil
}

// NormalizeSelector brings a caller-supplied selector into the strict
// three-component form. "latest" passes through unchanged and "1.50"
// becomes "1.50.0".
func NormalizeSelector(selector string) (string, error) {
	s := strings.TrimSpace(selector)
	switch {
	case s == Latest:
		return s, nil
	case majorMinorRegex.MatchString(s):
		s += ".0"
	case strictPattern.MatchString(s):
	default:
		return "", &ResolverError{
			Type:    ErrTypeInvalidVersion,
			Source:  "catalog",
			Version: selector,
			Message: `version must be "latest", major.minor or major.minor.patch`,
		}
	}
	// Reject components that overflow uint64.
	if _, err := ParseStrict(s); err != nil {
		return "", &ResolverError{
			Type:    ErrTypeInvalidVersion,
			Source:  "catalog",
			Version: selector,
			Message: "version components out of range",
			Err:     err,
		}
	}
	return s, nil
}
