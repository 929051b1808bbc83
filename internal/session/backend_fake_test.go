package session

import (
	"sync"

	"CamSession/internal/backend"
)

// fakeBackend records every call for verification and lets tests complete
// photo/recording requests by hand, in any order.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []string
	devices []backend.Device

	enumerateErr     error
	failPhotoOutput  bool
	failMovieOutput  bool
	failStructured   bool
	startRunningErr  error
	startRecordErr   error

	running    bool
	frameCb    func(backend.Frame)
	photoDones []func(backend.Photo, error)
	stopDones  []func(string, error)
	recordDest string
	policies   []backend.ConnectionPolicy
}

func newFakeBackend(devices ...backend.Device) *fakeBackend {
	return &fakeBackend{devices: devices}
}

func (f *fakeBackend) record(op string) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeBackend) EnumerateDevices() ([]backend.Device, error) {
	f.record("EnumerateDevices")
	if f.enumerateErr != nil {
		return nil, f.enumerateErr
	}
	return append([]backend.Device(nil), f.devices...), nil
}

func (f *fakeBackend) BeginConfiguration()  { f.record("BeginConfiguration") }
func (f *fakeBackend) CommitConfiguration() { f.record("CommitConfiguration") }

func (f *fakeBackend) AttachInput(d backend.Device) error {
	f.record("AttachInput:" + d.ID)
	return nil
}

func (f *fakeBackend) DetachInput() error {
	f.record("DetachInput")
	return nil
}

func (f *fakeBackend) AttachPhotoOutput() error {
	f.record("AttachPhotoOutput")
	if f.failPhotoOutput {
		return errAttach
	}
	return nil
}

func (f *fakeBackend) DetachPhotoOutput() error {
	f.record("DetachPhotoOutput")
	return nil
}

func (f *fakeBackend) AttachMovieOutput() error {
	f.record("AttachMovieOutput")
	if f.failMovieOutput {
		return errAttach
	}
	return nil
}

func (f *fakeBackend) DetachMovieOutput() error {
	f.record("DetachMovieOutput")
	return nil
}

func (f *fakeBackend) AttachStructuredOutput(backend.RecordingSettings) error {
	f.record("AttachStructuredOutput")
	if f.failStructured {
		return errAttach
	}
	return nil
}

func (f *fakeBackend) DetachStructuredOutput() error {
	f.record("DetachStructuredOutput")
	return nil
}

func (f *fakeBackend) AttachFrameOutput(cb func(backend.Frame)) error {
	f.record("AttachFrameOutput")
	f.mu.Lock()
	f.frameCb = cb
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) DetachFrameOutput() error {
	f.record("DetachFrameOutput")
	return nil
}

func (f *fakeBackend) SetPreset(preset string) error {
	f.record("SetPreset:" + preset)
	return nil
}

func (f *fakeBackend) ApplyConnectionPolicy(p backend.ConnectionPolicy) {
	f.record("ApplyConnectionPolicy")
	f.mu.Lock()
	f.policies = append(f.policies, p)
	f.mu.Unlock()
}

func (f *fakeBackend) StartRunning() error {
	f.record("StartRunning")
	if f.startRunningErr != nil {
		return f.startRunningErr
	}
	f.mu.Lock()
	f.running = true
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) StopRunning() error {
	f.record("StopRunning")
	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) CapturePhoto(_ backend.PhotoSettings, done func(backend.Photo, error)) {
	f.record("CapturePhoto")
	f.mu.Lock()
	f.photoDones = append(f.photoDones, done)
	f.mu.Unlock()
}

func (f *fakeBackend) StartRecording(dest string) error {
	f.record("StartRecording")
	if f.startRecordErr != nil {
		return f.startRecordErr
	}
	f.mu.Lock()
	f.recordDest = dest
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) StopRecording(done func(string, error)) {
	f.record("StopRecording")
	f.mu.Lock()
	f.stopDones = append(f.stopDones, done)
	f.mu.Unlock()
}

// pendingCaptures reports how many photo completions are waiting.
func (f *fakeBackend) pendingCaptures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.photoDones)
}

// completeNextPhoto fires the oldest waiting photo completion, the way
// hardware finishes captures in request order.
func (f *fakeBackend) completeNextPhoto(photo backend.Photo, err error) bool {
	f.mu.Lock()
	if len(f.photoDones) == 0 {
		f.mu.Unlock()
		return false
	}
	done := f.photoDones[0]
	f.photoDones = f.photoDones[1:]
	f.mu.Unlock()
	done(photo, err)
	return true
}

func (f *fakeBackend) pendingStops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stopDones)
}

func (f *fakeBackend) completeNextStop(err error) bool {
	f.mu.Lock()
	if len(f.stopDones) == 0 {
		f.mu.Unlock()
		return false
	}
	done := f.stopDones[0]
	f.stopDones = f.stopDones[1:]
	dest := f.recordDest
	f.mu.Unlock()
	if err != nil {
		done("", err)
	} else {
		done(dest, nil)
	}
	return true
}

func (f *fakeBackend) pushFrame(frame backend.Frame) {
	f.mu.Lock()
	cb := f.frameCb
	f.mu.Unlock()
	if cb != nil {
		cb(frame)
	}
}

func (f *fakeBackend) lastPolicy() (backend.ConnectionPolicy, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.policies) == 0 {
		return backend.ConnectionPolicy{}, false
	}
	return f.policies[len(f.policies)-1], true
}
