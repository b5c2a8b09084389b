package domain

import (
	"strconv"
	"time"
)

const versionLayout = "20060102150405"

// MintVersion derives a fresh model version from the wall clock. Versions
// are 14-digit UTC timestamps; when two saves land inside the same second
// the new version is bumped numerically past the previous one so ordering
// stays strictly increasing.
func MintVersion(now time.Time, previous string) string {
	version := now.UTC().Format(versionLayout)
	if previous == "" || version > previous {
		return version
	}
	n, err := strconv.ParseUint(previous, 10, 64)
	if err != nil {
		// Previous version isn't numeric; the timestamp still orders after
		// anything this registry minted itself.
		return version
	}
	return strconv.FormatUint(n+1, 10)
}
