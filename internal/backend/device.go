package backend

import "strings"

// Facing describes which way a camera points.
type Facing int

const (
	FacingUnspecified Facing = iota
	FacingBack
	FacingFront
)

func (f Facing) String() string {
	switch f {
	case FacingBack:
		return "back"
	case FacingFront:
		return "front"
	default:
		return "unspecified"
	}
}

// ParseFacing maps a config string to a Facing. Unknown values come back
// as FacingUnspecified with ok=false.
func ParseFacing(s string) (Facing, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "back", "rear":
		return FacingBack, true
	case "front":
		return FacingFront, true
	case "", "unspecified", "any":
		return FacingUnspecified, true
	default:
		return FacingUnspecified, false
	}
}

// Device is one physical camera as reported by enumeration. Values are
// immutable; a changed camera shows up as a new enumeration result.
type Device struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Facing    Facing `json:"facing"`
	HasFlash  bool   `json:"has_flash"`
	WideAngle bool   `json:"wide_angle"`
	Connected bool   `json:"connected"`
	Suspended bool   `json:"suspended"`
}

// FlashMode selects the flash behavior for photo capture.
type FlashMode int

const (
	FlashOff FlashMode = iota
	FlashOn
	FlashAuto
)

func (m FlashMode) String() string {
	switch m {
	case FlashOn:
		return "on"
	case FlashAuto:
		return "auto"
	default:
		return "off"
	}
}

// ParseFlashMode maps a config string to a FlashMode.
func ParseFlashMode(s string) (FlashMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return FlashOff, true
	case "on":
		return FlashOn, true
	case "auto":
		return FlashAuto, true
	default:
		return FlashOff, false
	}
}

// Orientation is the physical device orientation driving the video
// connection rotation.
type Orientation int

const (
	OrientationPortrait Orientation = iota
	OrientationPortraitUpsideDown
	OrientationLandscapeLeft
	OrientationLandscapeRight
)

func (o Orientation) String() string {
	switch o {
	case OrientationPortraitUpsideDown:
		return "portrait-upside-down"
	case OrientationLandscapeLeft:
		return "landscape-left"
	case OrientationLandscapeRight:
		return "landscape-right"
	default:
		return "portrait"
	}
}

// ConnectionPolicy carries the rotation and horizontal-flip flags applied
// to every video connection of the session.
type ConnectionPolicy struct {
	Orientation Orientation
	Mirrored    bool
}

// PhotoSettings parameterizes a single photo capture.
type PhotoSettings struct {
	Flash       FlashMode
	Orientation Orientation
}

// RecordingSettings selects the structured (codec-configurable) video file
// output. Compared by value; an unchanged value must not trigger output
// reconfiguration.
type RecordingSettings struct {
	Codec       string `json:"codec" yaml:"codec"`
	BitrateKbps int    `json:"bitrate_kbps" yaml:"bitrate_kbps"`
	Width       int    `json:"width" yaml:"width"`
	Height      int    `json:"height" yaml:"height"`
}

// Photo is a captured still image.
type Photo struct {
	Data     []byte
	MIMEType string
}

// Frame is one live frame from the running session.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Seq    uint64
}
