package backend

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/openh264"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // registers the camera driver
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"CamSession/internal/log"
)

// MediaBackend drives local cameras through pion/mediadevices.
//
// All configuration methods are called from the coordinator's single run
// loop, so they need no locking of their own; the mutex below only guards
// state shared with the frame-pump and recording goroutines.
type MediaBackend struct {
	logger   zerolog.Logger
	selector *mediadevices.CodecSelector

	stream mediadevices.MediaStream
	track  *mediadevices.VideoTrack

	photoAttached bool
	movieAttached bool
	structured    *RecordingSettings
	preset        string
	policy        ConnectionPolicy
	running       bool

	mu       sync.Mutex
	frameCb  func(Frame)
	pumpStop chan struct{}
	pumpDone chan struct{}
	rec      *activeRecording
}

type activeRecording struct {
	dest   string
	file   *os.File
	reader io.ReadCloser
	done   chan error
}

// NewMediaBackend builds a backend with an H264 encoder wired in for the
// structured output and encoded preview readers.
func NewMediaBackend() (*MediaBackend, error) {
	params, err := openh264.NewParams()
	if err != nil {
		return nil, fmt.Errorf("create h264 params: %w", err)
	}
	selector := mediadevices.NewCodecSelector(mediadevices.WithVideoEncoders(&params))
	return &MediaBackend{
		logger:   log.WithComponent("backend"),
		selector: selector,
	}, nil
}

// EnumerateDevices lists video input devices. Labels are NFC-normalized so
// device identity survives platforms that report decomposed unicode names.
func (b *MediaBackend) EnumerateDevices() ([]Device, error) {
	infos := mediadevices.EnumerateDevices()
	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info.Kind != mediadevices.VideoInput {
			continue
		}
		label := norm.NFC.String(info.Label)
		devices = append(devices, Device{
			ID:        info.DeviceID,
			Label:     label,
			Facing:    facingFromLabel(label),
			WideAngle: strings.Contains(strings.ToLower(label), "wide"),
			Connected: true,
		})
	}
	return devices, nil
}

func facingFromLabel(label string) Facing {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "front"):
		return FacingFront
	case strings.Contains(l, "back"), strings.Contains(l, "rear"):
		return FacingBack
	default:
		return FacingUnspecified
	}
}

// BeginConfiguration suspends frame delivery so a mutation batch is never
// observed half-applied.
func (b *MediaBackend) BeginConfiguration() {
	b.stopPump()
}

// CommitConfiguration resumes frame delivery with the batch fully applied.
func (b *MediaBackend) CommitConfiguration() {
	if b.running {
		b.startPump()
	}
}

func (b *MediaBackend) AttachInput(d Device) error {
	if err := b.DetachInput(); err != nil {
		b.logger.Warn().Err(err).Msg("detach previous input")
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.DeviceID = prop.String(d.ID)
			if b.structured != nil && b.structured.Width > 0 {
				c.Width = prop.Int(b.structured.Width)
				c.Height = prop.Int(b.structured.Height)
			}
		},
		Codec: b.selector,
	})
	if err != nil {
		return fmt.Errorf("open device %s: %w", d.ID, err)
	}

	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return fmt.Errorf("open device %s: no video track", d.ID)
	}
	video, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		return fmt.Errorf("open device %s: unexpected track type", d.ID)
	}

	b.stream = stream
	b.track = video
	b.logger.Info().Str("device", d.ID).Str("label", d.Label).Msg("input attached")
	return nil
}

// Track exposes the active video track for the preview publisher, or nil
// when no input is attached.
func (b *MediaBackend) Track() mediadevices.Track {
	if b.track == nil {
		return nil
	}
	return b.track
}

func (b *MediaBackend) DetachInput() error {
	if b.track == nil {
		return nil
	}
	err := b.track.Close()
	b.track = nil
	b.stream = nil
	return err
}

func (b *MediaBackend) AttachPhotoOutput() error { b.photoAttached = true; return nil }
func (b *MediaBackend) DetachPhotoOutput() error { b.photoAttached = false; return nil }
func (b *MediaBackend) AttachMovieOutput() error { b.movieAttached = true; return nil }
func (b *MediaBackend) DetachMovieOutput() error { b.movieAttached = false; return nil }

func (b *MediaBackend) AttachStructuredOutput(settings RecordingSettings) error {
	s := settings
	b.structured = &s
	return nil
}

func (b *MediaBackend) DetachStructuredOutput() error {
	b.structured = nil
	return nil
}

func (b *MediaBackend) AttachFrameOutput(cb func(Frame)) error {
	b.mu.Lock()
	b.frameCb = cb
	b.mu.Unlock()
	if b.running {
		b.startPump()
	}
	return nil
}

func (b *MediaBackend) DetachFrameOutput() error {
	b.stopPump()
	b.mu.Lock()
	b.frameCb = nil
	b.mu.Unlock()
	return nil
}

func (b *MediaBackend) SetPreset(preset string) error {
	b.preset = preset
	return nil
}

func (b *MediaBackend) ApplyConnectionPolicy(policy ConnectionPolicy) {
	b.policy = policy
	b.logger.Debug().
		Str("orientation", policy.Orientation.String()).
		Bool("mirrored", policy.Mirrored).
		Msg("connection policy applied")
}

func (b *MediaBackend) StartRunning() error {
	if b.track == nil {
		return errors.New("start running: no input attached")
	}
	if b.running {
		return nil
	}
	b.running = true
	b.startPump()
	return nil
}

func (b *MediaBackend) StopRunning() error {
	if !b.running {
		return nil
	}
	b.running = false
	b.stopPump()
	return nil
}

// startPump begins live frame delivery on its own goroutine. Frames are
// JPEG-encoded so the sink can use them directly as preview snapshots.
func (b *MediaBackend) startPump() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frameCb == nil || b.track == nil || b.pumpStop != nil {
		return
	}

	reader := b.track.NewReader(false)
	stop := make(chan struct{})
	done := make(chan struct{})
	b.pumpStop = stop
	b.pumpDone = done
	cb := b.frameCb

	go func() {
		defer close(done)
		var seq uint64
		for {
			select {
			case <-stop:
				return
			default:
			}
			img, release, err := reader.Read()
			if err != nil {
				b.logger.Debug().Err(err).Msg("frame pump stopped")
				return
			}
			var buf bytes.Buffer
			encErr := jpeg.Encode(&buf, img, nil)
			bounds := img.Bounds()
			release()
			if encErr != nil {
				continue
			}
			seq++
			cb(Frame{
				Data:   buf.Bytes(),
				Width:  bounds.Dx(),
				Height: bounds.Dy(),
				Seq:    seq,
			})
		}
	}()
}

func (b *MediaBackend) stopPump() {
	b.mu.Lock()
	stop, done := b.pumpStop, b.pumpDone
	b.pumpStop, b.pumpDone = nil, nil
	b.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (b *MediaBackend) CapturePhoto(settings PhotoSettings, done func(Photo, error)) {
	track := b.track
	if track == nil {
		done(Photo{}, errors.New("capture photo: no input attached"))
		return
	}
	reader := track.NewReader(true)
	go func() {
		img, release, err := reader.Read()
		if err != nil {
			done(Photo{}, fmt.Errorf("capture photo: %w", err))
			return
		}
		defer release()
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, nil); err != nil {
			done(Photo{}, fmt.Errorf("encode photo: %w", err))
			return
		}
		done(Photo{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil)
	}()
}

func (b *MediaBackend) StartRecording(dest string) error {
	if b.track == nil {
		return errors.New("start recording: no input attached")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rec != nil {
		return errors.New("start recording: already recording")
	}

	codec := "h264"
	if b.structured != nil && b.structured.Codec != "" {
		codec = b.structured.Codec
	}
	reader, err := b.track.NewEncodedIOReader(codec)
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}

	file, err := os.Create(dest)
	if err != nil {
		_ = reader.Close()
		return fmt.Errorf("start recording: %w", err)
	}

	rec := &activeRecording{
		dest:   dest,
		file:   file,
		reader: reader,
		done:   make(chan error, 1),
	}
	b.rec = rec

	go func() {
		_, err := io.Copy(file, reader)
		rec.done <- err
	}()

	b.logger.Info().Str("dest", dest).Str("codec", codec).Msg("recording started")
	return nil
}

func (b *MediaBackend) StopRecording(done func(string, error)) {
	b.mu.Lock()
	rec := b.rec
	b.rec = nil
	b.mu.Unlock()
	if rec == nil {
		done("", errors.New("stop recording: no active recording"))
		return
	}

	go func() {
		_ = rec.reader.Close()
		copyErr := <-rec.done
		if closeErr := rec.file.Close(); copyErr == nil {
			copyErr = closeErr
		}
		if copyErr != nil && !errors.Is(copyErr, io.EOF) && !errors.Is(copyErr, os.ErrClosed) {
			done("", fmt.Errorf("stop recording: %w", copyErr))
			return
		}
		done(rec.dest, nil)
	}()
}
