// Package session implements the camera session coordinator: the single
// authority over one capture session's lifecycle, device selection, output
// wiring, and in-flight capture/record bookkeeping.
//
// Every configuration mutation runs on one exclusive run loop goroutine in
// strict submission order, so two mutations can never interleave their
// effects. Live frames arrive on the backend's own delivery goroutine and
// only ever touch the latest-frame cell.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"CamSession/internal/backend"
	"CamSession/internal/log"
)

// Authorizer reports whether camera access has been granted. Denial is not
// an error the coordinator returns; Start logs it and leaves the session
// alone, and callers observe authorization separately.
type Authorizer interface {
	Authorized() bool
}

// AlwaysAuthorized is the Authorizer for platforms without a permission
// prompt.
type AlwaysAuthorized struct{}

func (AlwaysAuthorized) Authorized() bool { return true }

type lifecycleState int

const (
	stateUnconfigured lifecycleState = iota
	stateConfiguring
	stateStopped
	stateRunning
)

// Options configures a Coordinator. Backend is required; the zero value of
// every other field is usable.
type Options struct {
	Backend      backend.Backend
	Authorizer   Authorizer // defaults to AlwaysAuthorized
	Profile      Profile    // defaults to HandheldProfile
	Preset       string
	RecordingDir string // defaults to os.TempDir semantics via "." when empty
	PreferFacing backend.Facing
	FlashMode    backend.FlashMode
}

// Snapshot is the published coordinator state as one consistent value.
type Snapshot struct {
	Recording      bool              `json:"recording"`
	PreviewPaused  bool              `json:"preview_paused"`
	ActiveDeviceID string            `json:"active_device_id"`
	Devices        []backend.Device  `json:"devices"`
	FlashMode      backend.FlashMode `json:"flash_mode"`
}

// Coordinator owns one capture session. Construct with New, release with
// Close. All exported methods are safe for concurrent use.
type Coordinator struct {
	logger  zerolog.Logger
	backend backend.Backend
	auth    Authorizer
	profile Profile
	preset  string
	recDir  string
	prefer  backend.Facing

	jobs      chan func()
	closed    chan struct{}
	closeOnce sync.Once

	// Owned by the run loop.
	state            lifecycleState
	devices          []backend.Device
	active           backend.Device
	hasActive        bool
	orientation      backend.Orientation
	flash            backend.FlashMode
	recSettings      *backend.RecordingSettings
	photoOutput      bool
	movieOutput      bool
	structuredOutput bool
	recording        bool
	previewPaused    bool
	stopPending      bool
	recordingDest    string

	pending *pendingPhotos

	// Latest-frame cell, written by the backend's frame goroutine.
	frameMu   sync.Mutex
	lastFrame *backend.Frame

	// Published snapshot. Written only via publish* helpers on the run
	// loop (single-writer), readable from any goroutine.
	pubMu sync.RWMutex
	pub   Snapshot

	hub *stateHub
}

// New builds a Coordinator around the given backend and enumerates devices
// once up front. The caller owns the instance and must Close it.
func New(opts Options) (*Coordinator, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("session: Options.Backend is required")
	}
	auth := opts.Authorizer
	if auth == nil {
		auth = AlwaysAuthorized{}
	}
	profile := opts.Profile
	if profile == nil {
		profile = HandheldProfile{}
	}
	recDir := opts.RecordingDir
	if recDir == "" {
		recDir = "."
	}

	c := &Coordinator{
		logger:  log.WithComponent("session"),
		backend: opts.Backend,
		auth:    auth,
		profile: profile,
		preset:  opts.Preset,
		recDir:  recDir,
		prefer:  opts.PreferFacing,
		flash:   opts.FlashMode,
		jobs:    make(chan func(), 16),
		closed:  make(chan struct{}),
		pending: newPendingPhotos(),
		hub:     newStateHub(),
	}

	devices, err := c.backend.EnumerateDevices()
	if err != nil {
		c.logger.Warn().Err(err).Msg("initial device enumeration failed")
	}
	c.devices = devices
	c.pub.Devices = append([]backend.Device(nil), devices...)
	c.pub.FlashMode = c.flash

	go c.loop()
	return c, nil
}

func (c *Coordinator) loop() {
	for {
		select {
		case job := <-c.jobs:
			job()
		case <-c.closed:
			return
		}
	}
}

// Close stops the run loop. Pending requests that have already reached the
// backend still resolve; new operations fail with ErrClosed.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// run executes fn on the run loop and waits for it to finish.
func (c *Coordinator) run(fn func()) error {
	return c.runCtx(context.Background(), fn)
}

func (c *Coordinator) runCtx(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	job := func() {
		fn()
		close(done)
	}
	select {
	case c.jobs <- job:
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// async submits fn without waiting. Used by backend completion callbacks,
// which must never block on the run loop.
func (c *Coordinator) async(fn func()) {
	go func() {
		select {
		case c.jobs <- fn:
		case <-c.closed:
		}
	}()
}

// Subscribe returns a channel of published-state changes and a cancel
// function. Changes arrive in mutation order, at most once per mutation.
func (c *Coordinator) Subscribe() (<-chan StateChange, func()) {
	return c.hub.subscribe()
}

// State returns the current published snapshot.
func (c *Coordinator) State() Snapshot {
	c.pubMu.RLock()
	defer c.pubMu.RUnlock()
	snap := c.pub
	snap.Devices = append([]backend.Device(nil), c.pub.Devices...)
	return snap
}

// Devices returns the enumerated device list.
func (c *Coordinator) Devices() []backend.Device { return c.State().Devices }

// ActiveDeviceID returns the identifier of the active device, or "".
func (c *Coordinator) ActiveDeviceID() string { return c.State().ActiveDeviceID }

// IsRecording reports whether a recording is in progress.
func (c *Coordinator) IsRecording() bool { return c.State().Recording }

// IsPreviewPaused reports whether the preview is paused.
func (c *Coordinator) IsPreviewPaused() bool { return c.State().PreviewPaused }

// FlashMode returns the current flash mode.
func (c *Coordinator) FlashMode() backend.FlashMode { return c.State().FlashMode }

// publish mutates one published field and notifies subscribers. Run-loop
// only.
func (c *Coordinator) publish(field StateField, value interface{}, mutate func(*Snapshot)) {
	c.pubMu.Lock()
	mutate(&c.pub)
	c.pubMu.Unlock()
	c.hub.publish(StateChange{Field: field, Value: value})
}

func (c *Coordinator) publishRecording(v bool) {
	c.recording = v
	c.publish(FieldRecording, v, func(s *Snapshot) { s.Recording = v })
}

func (c *Coordinator) publishPreviewPaused(v bool) {
	c.previewPaused = v
	c.publish(FieldPreviewPaused, v, func(s *Snapshot) { s.PreviewPaused = v })
}

func (c *Coordinator) publishActiveDevice(id string) {
	c.publish(FieldActiveDevice, id, func(s *Snapshot) { s.ActiveDeviceID = id })
}

func (c *Coordinator) publishDevices(devices []backend.Device) {
	cp := append([]backend.Device(nil), devices...)
	c.publish(FieldDevices, cp, func(s *Snapshot) { s.Devices = cp })
}

func (c *Coordinator) publishFlashMode(m backend.FlashMode) {
	c.flash = m
	c.publish(FieldFlashMode, m.String(), func(s *Snapshot) { s.FlashMode = m })
}

// Start configures the session on first use and starts it running. Calling
// Start while running is a no-op. Authorization denial is logged, not
// returned.
func (c *Coordinator) Start(ctx context.Context) error {
	return c.runCtx(ctx, c.startLocked)
}

func (c *Coordinator) startLocked() {
	if !c.auth.Authorized() {
		c.logger.Warn().Msg("camera access not authorized, session untouched")
		return
	}
	if c.state == stateUnconfigured {
		c.configure()
	}
	if c.state == stateRunning {
		return
	}
	if err := c.backend.StartRunning(); err != nil {
		c.logger.Error().Err(err).Msg("start running failed")
		return
	}
	c.state = stateRunning
	c.logger.Info().Str("device", c.active.ID).Msg("session running")
}

// configure performs the one-time session configuration. Output attachment
// failures degrade capability instead of aborting; the session still comes
// up with whatever subset succeeded.
func (c *Coordinator) configure() {
	c.state = stateConfiguring

	devices, err := c.backend.EnumerateDevices()
	if err != nil {
		c.logger.Warn().Err(err).Msg("device enumeration failed, keeping previous list")
	} else {
		c.devices = devices
		c.publishDevices(devices)
	}

	if c.hasActive {
		// A device chosen before configuration must still exist.
		if _, ok := c.findDevice(c.active.ID); !ok {
			c.hasActive = false
		}
	}
	if !c.hasActive {
		c.active, c.hasActive = c.pickDevice()
	}

	c.backend.BeginConfiguration()
	if err := c.backend.SetPreset(c.preset); err != nil {
		c.logger.Warn().Err(err).Str("preset", c.preset).Msg("set preset failed")
	}
	if c.hasActive {
		if err := c.backend.AttachInput(c.active); err != nil {
			c.logger.Error().Err(err).Str("device", c.active.ID).Msg("attach input failed")
		}
	} else {
		c.logger.Error().Msg("no camera device available")
	}
	if err := c.backend.AttachPhotoOutput(); err != nil {
		c.logger.Warn().Err(err).Msg("attach photo output failed")
	} else {
		c.photoOutput = true
	}
	c.attachVideoOutput()
	if err := c.backend.AttachFrameOutput(c.onFrame); err != nil {
		c.logger.Warn().Err(err).Msg("attach frame output failed")
	}
	c.backend.ApplyConnectionPolicy(c.currentPolicy())
	c.backend.CommitConfiguration()

	c.state = stateStopped
	if c.hasActive {
		c.publishActiveDevice(c.active.ID)
	}
}

// attachVideoOutput attaches whichever video file output the current
// recording settings select. Exactly one of the two is attached at a time.
func (c *Coordinator) attachVideoOutput() {
	if c.recSettings != nil {
		if err := c.backend.AttachStructuredOutput(*c.recSettings); err != nil {
			c.logger.Warn().Err(err).Msg("attach structured output failed")
		} else {
			c.structuredOutput = true
		}
		return
	}
	if err := c.backend.AttachMovieOutput(); err != nil {
		c.logger.Warn().Err(err).Msg("attach movie output failed")
	} else {
		c.movieOutput = true
	}
}

func (c *Coordinator) pickDevice() (backend.Device, bool) {
	if c.prefer != backend.FacingUnspecified {
		for _, d := range c.devices {
			if d.Facing == c.prefer {
				return d, true
			}
		}
	}
	if len(c.devices) > 0 {
		return c.devices[0], true
	}
	return backend.Device{}, false
}

func (c *Coordinator) findDevice(id string) (backend.Device, bool) {
	for _, d := range c.devices {
		if d.ID == id {
			return d, true
		}
	}
	return backend.Device{}, false
}

// Stop halts the running session. No-op unless configured and running.
func (c *Coordinator) Stop() error {
	return c.run(func() {
		if c.state != stateRunning {
			return
		}
		if err := c.backend.StopRunning(); err != nil {
			c.logger.Error().Err(err).Msg("stop running failed")
			return
		}
		c.state = stateStopped
		c.logger.Info().Msg("session stopped")
	})
}

// Pause freezes the preview without touching the underlying session.
func (c *Coordinator) Pause() error {
	return c.run(func() {
		if c.previewPaused {
			return
		}
		c.publishPreviewPaused(true)
	})
}

// Resume clears the paused flag and (re)starts the session.
func (c *Coordinator) Resume() error {
	return c.run(func() {
		if c.previewPaused {
			c.publishPreviewPaused(false)
		}
		c.startLocked()
	})
}

// RefreshDevices re-enumerates devices on demand.
func (c *Coordinator) RefreshDevices(ctx context.Context) ([]backend.Device, error) {
	var out []backend.Device
	var opErr error
	err := c.runCtx(ctx, func() {
		devices, err := c.backend.EnumerateDevices()
		if err != nil {
			opErr = fmt.Errorf("enumerate devices: %w", err)
			return
		}
		c.devices = devices
		c.publishDevices(devices)
		out = append([]backend.Device(nil), devices...)
	})
	if err != nil {
		return nil, err
	}
	return out, opErr
}

// SetDevice replaces the active device. The device must belong to the
// enumerated list; anything else is rejected with ErrUnknownDevice.
func (c *Coordinator) SetDevice(d backend.Device) error {
	var opErr error
	err := c.run(func() { opErr = c.setDeviceLocked(d) })
	if err != nil {
		return err
	}
	return opErr
}

// SetDeviceByID is SetDevice looked up from the enumerated list.
func (c *Coordinator) SetDeviceByID(id string) error {
	var opErr error
	err := c.run(func() {
		d, ok := c.findDevice(id)
		if !ok {
			opErr = ErrUnknownDevice
			return
		}
		opErr = c.setDeviceLocked(d)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (c *Coordinator) setDeviceLocked(d backend.Device) error {
	if _, ok := c.findDevice(d.ID); !ok {
		return ErrUnknownDevice
	}
	c.active = d
	c.hasActive = true

	if c.state == stateUnconfigured {
		// Configuration, when it happens, will use this device.
		c.publishActiveDevice(d.ID)
		return nil
	}

	c.backend.BeginConfiguration()
	if err := c.backend.DetachInput(); err != nil {
		c.logger.Warn().Err(err).Msg("detach input failed")
	}
	if err := c.backend.AttachInput(d); err != nil {
		c.logger.Error().Err(err).Str("device", d.ID).Msg("attach input failed")
	}
	c.backend.ApplyConnectionPolicy(c.currentPolicy())
	c.backend.CommitConfiguration()

	c.publishActiveDevice(d.ID)
	return nil
}

// SwitchDevice toggles between the back and front camera. No-op when the
// active device's facing is unspecified or no opposite device exists.
func (c *Coordinator) SwitchDevice() error {
	return c.run(func() {
		if !c.hasActive {
			return
		}
		var want backend.Facing
		switch c.active.Facing {
		case backend.FacingBack:
			want = backend.FacingFront
		case backend.FacingFront:
			want = backend.FacingBack
		default:
			return
		}
		for _, d := range c.devices {
			if d.Facing == want {
				if err := c.setDeviceLocked(d); err != nil {
					c.logger.Warn().Err(err).Msg("switch device failed")
				}
				return
			}
		}
	})
}

// UpdateRecordingSettings swaps the video file output type to match the
// given settings. An unchanged value triggers no reconfiguration.
func (c *Coordinator) UpdateRecordingSettings(settings *backend.RecordingSettings) error {
	return c.run(func() {
		if settingsEqual(c.recSettings, settings) {
			return
		}
		if settings != nil {
			s := *settings
			c.recSettings = &s
		} else {
			c.recSettings = nil
		}
		if c.state == stateUnconfigured {
			return
		}

		c.backend.BeginConfiguration()
		if c.structuredOutput {
			if err := c.backend.DetachStructuredOutput(); err != nil {
				c.logger.Warn().Err(err).Msg("detach structured output failed")
			}
			c.structuredOutput = false
		}
		if c.movieOutput {
			if err := c.backend.DetachMovieOutput(); err != nil {
				c.logger.Warn().Err(err).Msg("detach movie output failed")
			}
			c.movieOutput = false
		}
		c.attachVideoOutput()
		c.backend.ApplyConnectionPolicy(c.currentPolicy())
		c.backend.CommitConfiguration()
	})
}

func settingsEqual(a, b *backend.RecordingSettings) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SetFlashMode updates the flash mode applied to subsequent photos.
func (c *Coordinator) SetFlashMode(m backend.FlashMode) error {
	return c.run(func() {
		if c.flash == m {
			return
		}
		c.publishFlashMode(m)
	})
}

// SetOrientation records the physical device orientation and reapplies the
// orientation/mirroring policy to all video connections.
func (c *Coordinator) SetOrientation(o backend.Orientation) error {
	return c.run(func() {
		c.orientation = o
		if c.state != stateUnconfigured {
			c.backend.ApplyConnectionPolicy(c.currentPolicy())
		}
	})
}

func (c *Coordinator) currentPolicy() backend.ConnectionPolicy {
	facing := backend.FacingUnspecified
	if c.hasActive {
		facing = c.active.Facing
	}
	return backend.ConnectionPolicy{
		Orientation: c.profile.VideoOrientation(c.orientation),
		Mirrored:    c.profile.Mirror(facing),
	}
}

// onFrame is the live-frame sink. It runs on the backend's frame delivery
// goroutine and must stay cheap: it only swaps the latest-frame cell. A
// paused preview keeps the frozen frame.
func (c *Coordinator) onFrame(f backend.Frame) {
	if c.IsPreviewPaused() {
		return
	}
	c.frameMu.Lock()
	c.lastFrame = &f
	c.frameMu.Unlock()
}

// LatestFrame returns the most recent live frame, or nil before the first
// frame arrives.
func (c *Coordinator) LatestFrame() *backend.Frame {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	return c.lastFrame
}

// PreviewHandler receives the photo request identifier and a best-effort
// preview frame (possibly nil) before the capture is submitted.
type PreviewHandler func(requestID string, frame *backend.Frame)

// TakePicture captures one photo. It fails with ErrMissingPhotoOutput when
// no photo output is attached. With several captures outstanding, each
// backend completion resolves the most recently issued pending request.
func (c *Coordinator) TakePicture(ctx context.Context, preview PreviewHandler) (backend.Photo, error) {
	var req *photoRequest
	var opErr error
	err := c.runCtx(ctx, func() {
		if !c.photoOutput {
			opErr = ErrMissingPhotoOutput
			return
		}
		settings := backend.PhotoSettings{
			Orientation: c.profile.VideoOrientation(c.orientation),
		}
		if c.hasActive && c.active.HasFlash {
			settings.Flash = c.flash
		}
		req = c.pending.add()
		if preview != nil {
			preview(req.id.String(), c.LatestFrame())
		}
		c.backend.CapturePhoto(settings, func(photo backend.Photo, err error) {
			if r := c.pending.takeLatest(); r != nil {
				r.result <- photoResult{photo: photo, err: err}
			}
		})
	})
	if err != nil {
		return backend.Photo{}, err
	}
	if opErr != nil {
		return backend.Photo{}, opErr
	}

	select {
	case res := <-req.result:
		return res.photo, res.err
	case <-ctx.Done():
		// No cancellation path once submitted: the capture still resolves
		// later against the buffered result slot.
		return backend.Photo{}, ctx.Err()
	case <-c.closed:
		return backend.Photo{}, ErrClosed
	}
}

// StartRecording begins recording to a fresh uniquely named file. No-op
// while already recording. A missing video output is logged; callers learn
// of it only through IsRecording staying false.
func (c *Coordinator) StartRecording(ctx context.Context) error {
	return c.runCtx(ctx, func() {
		if c.recording {
			return
		}
		if !c.structuredOutput && !c.movieOutput {
			c.logger.Error().Msg("start recording: no video file output attached")
			return
		}
		dest := filepath.Join(c.recDir, "rec-"+xid.New().String()+".mp4")
		if err := c.backend.StartRecording(dest); err != nil {
			c.logger.Error().Err(err).Str("dest", dest).Msg("start recording failed")
			return
		}
		c.recordingDest = dest
		c.publishRecording(true)
	})
}

type recResult struct {
	url string
	err error
}

// StopRecording finishes the active recording and returns the written file
// path. It fails with ErrMissingVideoOutput when neither video file output
// is attached, and with ErrStopPending when a previous stop has not yet
// resolved.
func (c *Coordinator) StopRecording(ctx context.Context) (string, error) {
	var resCh chan recResult
	var opErr error
	err := c.runCtx(ctx, func() {
		if !c.structuredOutput && !c.movieOutput {
			opErr = ErrMissingVideoOutput
			return
		}
		if c.stopPending {
			opErr = ErrStopPending
			return
		}
		c.stopPending = true
		ch := make(chan recResult, 1)
		resCh = ch
		c.backend.StopRecording(func(url string, err error) {
			ch <- recResult{url: url, err: err}
			c.async(func() {
				c.stopPending = false
				if c.recording {
					c.publishRecording(false)
				}
				c.recordingDest = ""
			})
		})
	})
	if err != nil {
		return "", err
	}
	if opErr != nil {
		return "", opErr
	}

	select {
	case res := <-resCh:
		return res.url, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.closed:
		return "", ErrClosed
	}
}

// PendingPhotos reports the number of outstanding photo requests.
func (c *Coordinator) PendingPhotos() int { return c.pending.len() }
