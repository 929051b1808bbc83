package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFacing(t *testing.T) {
	cases := []struct {
		in   string
		want Facing
		ok   bool
	}{
		{"back", FacingBack, true},
		{"rear", FacingBack, true},
		{"Front", FacingFront, true},
		{" front ", FacingFront, true},
		{"", FacingUnspecified, true},
		{"any", FacingUnspecified, true},
		{"sideways", FacingUnspecified, false},
	}
	for _, c := range cases {
		got, ok := ParseFacing(c.in)
		assert.Equal(t, c.want, got, "%q", c.in)
		assert.Equal(t, c.ok, ok, "%q", c.in)
	}
}

func TestFacingString(t *testing.T) {
	assert.Equal(t, "back", FacingBack.String())
	assert.Equal(t, "front", FacingFront.String())
	assert.Equal(t, "unspecified", FacingUnspecified.String())
}

func TestParseFlashMode(t *testing.T) {
	cases := []struct {
		in   string
		want FlashMode
		ok   bool
	}{
		{"", FlashOff, true},
		{"off", FlashOff, true},
		{"ON", FlashOn, true},
		{"auto", FlashAuto, true},
		{"strobe", FlashOff, false},
	}
	for _, c := range cases {
		got, ok := ParseFlashMode(c.in)
		assert.Equal(t, c.want, got, "%q", c.in)
		assert.Equal(t, c.ok, ok, "%q", c.in)
	}
}

func TestOrientationString(t *testing.T) {
	assert.Equal(t, "portrait", OrientationPortrait.String())
	assert.Equal(t, "portrait-upside-down", OrientationPortraitUpsideDown.String())
	assert.Equal(t, "landscape-left", OrientationLandscapeLeft.String())
	assert.Equal(t, "landscape-right", OrientationLandscapeRight.String())
}

func TestFacingFromLabel(t *testing.T) {
	assert.Equal(t, FacingFront, facingFromLabel("FaceTime HD Front Camera"))
	assert.Equal(t, FacingBack, facingFromLabel("Back Triple Camera"))
	assert.Equal(t, FacingBack, facingFromLabel("rear wide"))
	assert.Equal(t, FacingUnspecified, facingFromLabel("USB2.0 HD UVC WebCam"))
}

func TestRecordingSettingsValueEquality(t *testing.T) {
	a := RecordingSettings{Codec: "h264", BitrateKbps: 2000, Width: 1280, Height: 720}
	b := a
	assert.True(t, a == b)
	b.BitrateKbps = 4000
	assert.False(t, a == b)
}
