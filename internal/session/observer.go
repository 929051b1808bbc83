package session

import "sync"

// StateField names one published coordinator field.
type StateField string

const (
	FieldRecording     StateField = "recording"
	FieldPreviewPaused StateField = "preview_paused"
	FieldActiveDevice  StateField = "active_device"
	FieldDevices       StateField = "devices"
	FieldFlashMode     StateField = "flash_mode"
)

// StateChange is one published-state mutation. Subscribers see every
// mutation at most once, in the order it occurred.
type StateChange struct {
	Field StateField  `json:"field"`
	Value interface{} `json:"value"`
}

// stateHub fans StateChange events out to subscribers. Publish is only
// called from the coordinator's run loop, which is what guarantees
// per-subscriber ordering; the hub itself just delivers. A subscriber that
// stops draining its channel loses events rather than stalling the session.
type stateHub struct {
	mu   sync.RWMutex
	subs map[chan StateChange]struct{}
}

func newStateHub() *stateHub {
	return &stateHub{subs: make(map[chan StateChange]struct{})}
}

// subscribe returns an event channel and a cancel function. The caller must
// invoke cancel when done with the subscription.
func (h *stateHub) subscribe() (<-chan StateChange, func()) {
	ch := make(chan StateChange, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *stateHub) publish(change StateChange) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- change:
		default:
			// subscriber stalled, drop
		}
	}
}
