package preview

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// SignalMessage is one websocket signaling frame. The viewer sends
// {"type":"offer","sdp":...} and receives {"type":"answer","sdp":...}.
type SignalMessage struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
	Err  string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The gin surface already applies CORS; the preview socket accepts
	// the same origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeSignal upgrades the request to a websocket and answers SDP offers
// until the viewer hangs up.
func (p *Publisher) ServeSignal(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Warn().Err(err).Msg("signal upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var msg SignalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type != "offer" {
			_ = conn.WriteJSON(SignalMessage{Type: "error", Err: "expected offer"})
			continue
		}

		answer, err := p.Answer(msg.SDP)
		if err != nil {
			p.logger.Warn().Err(err).Msg("answer offer failed")
			_ = conn.WriteJSON(SignalMessage{Type: "error", Err: err.Error()})
			continue
		}
		if err := conn.WriteJSON(SignalMessage{Type: "answer", SDP: answer}); err != nil {
			return
		}
	}
}
