// Package version carries the running tool version and the PSF container
// format revision, and answers minimum-version compatibility questions.
package version

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the version of the running tool. Submissions and archives may
// declare a minimum_version they require; see AtLeast.
const Version = "1.0.0"

// FormatRevision is the newest PSF container format revision this tool
// understands. Archives declaring a higher revision are refused.
const FormatRevision = 1

// ErrInvalidVersion indicates a version string that is not plain semver.
var ErrInvalidVersion = errors.New("invalid version string")

// AtLeast reports whether have satisfies the minimum version want. Both are
// plain "major.minor.patch" strings without a leading "v".
func AtLeast(have, want string) (bool, error) {
	h, err := canonical(have)
	if err != nil {
		return false, err
	}
	w, err := canonical(want)
	if err != nil {
		return false, err
	}
	return semver.Compare(h, w) >= 0, nil
}

func canonical(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidVersion)
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return v, nil
}
