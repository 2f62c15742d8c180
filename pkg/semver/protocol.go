// Package semver negotiates the envelope protocol version and parses method
// names.
package semver

import (
	"fmt"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:protocol"

const (
	// DefaultProtocolVersion is assumed for envelopes without a version.
	DefaultProtocolVersion = "1.0.0"
	// ResponseProtocolVersion is stamped on every response envelope.
	ResponseProtocolVersion = "1.1.0"
	// SupportedRange is the range of accepted call envelope versions.
	SupportedRange = "^1.0.0"
)

var supported = masterminds.MustParse(DefaultProtocolVersion)

var supportedConstraint = func() *masterminds.Constraints {
	c, err := masterminds.NewConstraint(SupportedRange)
	if err != nil {
		panic(err)
	}
	return c
}()

// CheckProtocol validates a call envelope protocol version. The empty string
// is DefaultProtocolVersion.
func CheckProtocol(version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil
	}
	v, err := masterminds.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%s - invalid protocol version %q: %w", logPrefix, version, err)
	}
	if !supportedConstraint.Check(v) {
		return fmt.Errorf("%s - unsupported protocol version %s, want %s", logPrefix, v, SupportedRange)
	}
	return nil
}

// Satisfies reports whether version satisfies rangeStr.
func Satisfies(version, rangeStr string) bool {
	c, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return false
	}
	v, err := masterminds.NewVersion(version)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// Major returns the major component of version, or the major of
// DefaultProtocolVersion when version does not parse.
func Major(version string) uint64 {
	v, err := masterminds.NewVersion(version)
	if err != nil {
		return supported.Major()
	}
	return v.Major()
}
