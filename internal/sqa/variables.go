package sqa

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// NameTransform is the application-name policy applied when rendering addon
// configuration. Older tracks deployed applications under underscore names;
// newer tracks keep the charm name as-is.
type NameTransform int

const (
	// TransformIdentity keeps application names unchanged.
	TransformIdentity NameTransform = iota
	// TransformHyphenToUnderscore replaces hyphens with underscores,
	// required for channels up to and including 1.32.
	TransformHyphenToUnderscore
)

// lastUnderscoreTrack is the newest track still deployed with underscore
// application names.
var lastUnderscoreTrack = semver.MustParse("1.32.0")

// Apply transforms an application name according to the policy.
func (t NameTransform) Apply(name string) string {
	if t == TransformHyphenToUnderscore {
		return strings.ReplaceAll(name, "-", "_")
	}
	return name
}

// TransformForTrack selects the transform policy for a track. Tracks that
// do not parse as versions keep identity naming.
func TransformForTrack(track string) NameTransform {
	v, err := semver.NewVersion(track)
	if err != nil {
		return TransformIdentity
	}
	if !v.GreaterThan(lastUnderscoreTrack) {
		return TransformHyphenToUnderscore
	}
	return TransformIdentity
}

// BranchForChannel returns the source branch matching a channel's track,
// e.g. "1.32/candidate" maps to "release-1.32".
func BranchForChannel(channel string) string {
	track, _, _ := strings.Cut(channel, "/")
	return "release-" + track
}

// Variables is the explicit set of template variables recognized by the
// addon configuration templates.
type Variables struct {
	// Base is the Ubuntu base under test, e.g. "22.04".
	Base string
	// Arch is the architecture under test.
	Arch string
	// Channel is the charm channel under test, e.g. "1.32/candidate".
	Channel string
	// Branch is the snap branch matching the track, e.g. "release-1.32".
	Branch string
	// Revisions maps charm name to the revision under test.
	Revisions map[string]string
	// Transform is the application-name policy for this track.
	Transform NameTransform
}
