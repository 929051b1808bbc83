package session

import (
	"sync"

	"github.com/rs/xid"

	"CamSession/internal/backend"
)

type photoResult struct {
	photo backend.Photo
	err   error
}

// photoRequest is one in-flight TakePicture call. The result channel is
// buffered so a completion never blocks on a caller that already gave up
// waiting; a late result simply lands in a slot nobody reads.
type photoRequest struct {
	id     xid.ID
	result chan photoResult
}

// pendingPhotos tracks outstanding photo captures keyed by request ID.
//
// Each backend photo completion resolves exactly one request: the most
// recently issued one still pending. Keeping the table identity-keyed means
// a request can never be resolved twice even when completions race.
type pendingPhotos struct {
	mu    sync.Mutex
	order []xid.ID
	byID  map[xid.ID]*photoRequest
}

func newPendingPhotos() *pendingPhotos {
	return &pendingPhotos{byID: make(map[xid.ID]*photoRequest)}
}

func (p *pendingPhotos) add() *photoRequest {
	req := &photoRequest{
		id:     xid.New(),
		result: make(chan photoResult, 1),
	}
	p.mu.Lock()
	p.order = append(p.order, req.id)
	p.byID[req.id] = req
	p.mu.Unlock()
	return req
}

// takeLatest removes and returns the most recently issued still-pending
// request, or nil when none is outstanding.
func (p *pendingPhotos) takeLatest() *photoRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.order) > 0 {
		last := p.order[len(p.order)-1]
		p.order = p.order[:len(p.order)-1]
		if req, ok := p.byID[last]; ok {
			delete(p.byID, last)
			return req
		}
	}
	return nil
}

func (p *pendingPhotos) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byID)
}
