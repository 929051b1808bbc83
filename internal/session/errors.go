package session

import "errors"

var (
	// ErrMissingPhotoOutput reports TakePicture with no photo output attached.
	ErrMissingPhotoOutput = errors.New("no photo output attached")

	// ErrMissingVideoOutput reports StopRecording with neither video file
	// output attached.
	ErrMissingVideoOutput = errors.New("no video file output attached")

	// ErrUnknownDevice reports SetDevice with a device outside the
	// enumerated device list.
	ErrUnknownDevice = errors.New("device not in enumerated device list")

	// ErrStopPending reports StopRecording while a previous stop request is
	// still waiting for the backend. Overlapping stops are rejected, not
	// queued.
	ErrStopPending = errors.New("stop-recording request already pending")

	// ErrClosed reports an operation on a closed coordinator.
	ErrClosed = errors.New("coordinator closed")
)
