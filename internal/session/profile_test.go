package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CamSession/internal/backend"
)

func TestHandheldProfile(t *testing.T) {
	p := HandheldProfile{}
	assert.Equal(t, backend.OrientationPortrait, p.VideoOrientation(backend.OrientationPortrait))
	assert.Equal(t, backend.OrientationLandscapeRight, p.VideoOrientation(backend.OrientationLandscapeRight))

	assert.True(t, p.Mirror(backend.FacingFront))
	assert.False(t, p.Mirror(backend.FacingBack))
	assert.False(t, p.Mirror(backend.FacingUnspecified))
}

func TestFixedMountProfile(t *testing.T) {
	p := FixedMountProfile{Orientation: backend.OrientationLandscapeLeft}
	assert.Equal(t, backend.OrientationLandscapeLeft, p.VideoOrientation(backend.OrientationPortrait))
	assert.Equal(t, backend.OrientationLandscapeLeft, p.VideoOrientation(backend.OrientationPortraitUpsideDown))

	assert.False(t, p.Mirror(backend.FacingFront))
	assert.False(t, p.Mirror(backend.FacingBack))
}

func TestParseProfile(t *testing.T) {
	for _, s := range []string{"", "handheld", "Handheld", " handheld "} {
		p, ok := ParseProfile(s)
		require.True(t, ok, "%q", s)
		assert.IsType(t, HandheldProfile{}, p)
	}
	for _, s := range []string{"fixed", "fixed-mount", "FIXED"} {
		p, ok := ParseProfile(s)
		require.True(t, ok, "%q", s)
		assert.IsType(t, FixedMountProfile{}, p)
	}
	_, ok := ParseProfile("bogus")
	assert.False(t, ok)
}
