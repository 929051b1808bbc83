// Package backend defines the capture backend contract the session
// coordinator drives, plus the production implementation on top of
// pion/mediadevices. The backend owns hardware I/O only; all sequencing
// and bookkeeping lives in the coordinator.
package backend

// Backend is the opaque capture pipeline behind one camera session.
//
// Mutation batches are bracketed by BeginConfiguration/CommitConfiguration
// and must apply atomically: either the whole batch is in effect when the
// session resumes, or the prior state is kept.
//
// CapturePhoto and StopRecording report through single-shot callbacks.
// Each callback fires exactly once, from an arbitrary goroutine.
type Backend interface {
	// EnumerateDevices lists the cameras currently visible to the backend.
	EnumerateDevices() ([]Device, error)

	BeginConfiguration()
	CommitConfiguration()

	// AttachInput wires the given device as the session's single video
	// input, replacing any previous input.
	AttachInput(Device) error
	DetachInput() error

	AttachPhotoOutput() error
	DetachPhotoOutput() error

	// AttachMovieOutput attaches the default video file output.
	AttachMovieOutput() error
	DetachMovieOutput() error

	// AttachStructuredOutput attaches the codec/bitrate-configurable video
	// file output.
	AttachStructuredOutput(RecordingSettings) error
	DetachStructuredOutput() error

	// AttachFrameOutput registers the live frame sink. The callback runs on
	// the backend's frame delivery goroutine and must not block.
	AttachFrameOutput(func(Frame)) error
	DetachFrameOutput() error

	SetPreset(string) error

	// ApplyConnectionPolicy sets orientation and mirroring on every video
	// connection currently attached.
	ApplyConnectionPolicy(ConnectionPolicy)

	StartRunning() error
	StopRunning() error

	// CapturePhoto requests one still image and reports it through done.
	CapturePhoto(PhotoSettings, func(Photo, error))

	// StartRecording begins writing the active video file output to dest.
	StartRecording(dest string) error

	// StopRecording finishes the active recording and reports the written
	// file path through done.
	StopRecording(done func(string, error))
}
