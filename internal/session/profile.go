package session

import (
	"strings"

	"CamSession/internal/backend"
)

// Profile captures the per-deployment differences in orientation and
// mirroring policy. The coordinator is parameterized over one Profile
// chosen at construction instead of branching on the host platform.
type Profile interface {
	// VideoOrientation maps the physical device orientation to the
	// orientation applied to video connections.
	VideoOrientation(backend.Orientation) backend.Orientation

	// Mirror reports whether connections for a camera with the given
	// facing should be horizontally flipped.
	Mirror(backend.Facing) bool
}

// HandheldProfile rotates connections with the device and mirrors the
// front camera, matching what users expect from a phone-style viewfinder.
type HandheldProfile struct{}

func (HandheldProfile) VideoOrientation(o backend.Orientation) backend.Orientation { return o }

func (HandheldProfile) Mirror(f backend.Facing) bool { return f == backend.FacingFront }

// FixedMountProfile pins connections to one orientation and never mirrors,
// for rigs where the camera does not move with the device.
type FixedMountProfile struct {
	Orientation backend.Orientation
}

func (p FixedMountProfile) VideoOrientation(backend.Orientation) backend.Orientation {
	return p.Orientation
}

func (FixedMountProfile) Mirror(backend.Facing) bool { return false }

// ParseProfile maps a config string to a Profile.
func ParseProfile(s string) (Profile, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "handheld":
		return HandheldProfile{}, true
	case "fixed", "fixed-mount":
		return FixedMountProfile{Orientation: backend.OrientationLandscapeLeft}, true
	default:
		return nil, false
	}
}
