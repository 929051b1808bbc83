// Package preview publishes the running camera as a WebRTC video track so
// a browser can render the live preview. Signaling is a plain SDP
// offer/answer exchange over a websocket.
package preview

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/dtls/v3/pkg/protocol/extension"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"CamSession/internal/log"
)

// ErrNoTrack reports a viewer connecting before the camera has a track.
var ErrNoTrack = errors.New("no video track available")

// Options configures the publisher's ICE behavior.
type Options struct {
	// ICEServers is an optional list of STUN/TURN server URLs.
	ICEServers []string
	// ICEUsername authenticates with the given ICEServers.
	ICEUsername string
	// ICECredential is the password matching ICEUsername.
	ICECredential string
	// PortMin/PortMax optionally pin the ephemeral UDP port range.
	PortMin uint16
	PortMax uint16
}

// TrackSource returns the current video track, or nil when the session has
// no input attached yet.
type TrackSource func() webrtc.TrackLocal

// Publisher answers viewer offers with a send-only video transceiver.
type Publisher struct {
	logger  zerolog.Logger
	opts    Options
	source  TrackSource
	mu      sync.Mutex
	stopped bool
	peers   []*webrtc.PeerConnection
}

func NewPublisher(opts Options, source TrackSource) *Publisher {
	return &Publisher{
		logger: log.WithComponent("preview"),
		opts:   opts,
		source: source,
	}
}

func (p *Publisher) newPeerConnection() (*webrtc.PeerConnection, error) {
	var configuration webrtc.Configuration
	if len(p.opts.ICEServers) > 0 {
		configuration.ICEServers = append(configuration.ICEServers, webrtc.ICEServer{
			URLs:       p.opts.ICEServers,
			Username:   p.opts.ICEUsername,
			Credential: p.opts.ICECredential,
		})
	}

	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, err
	}
	s := webrtc.SettingEngine{}
	s.SetSRTPProtectionProfiles(extension.SRTP_AES128_CM_HMAC_SHA1_80)

	if p.opts.PortMin > 0 && p.opts.PortMax > p.opts.PortMin {
		if err := s.SetEphemeralUDPPortRange(p.opts.PortMin, p.opts.PortMax); err != nil {
			return nil, err
		}
		p.logger.Info().
			Uint16("min", p.opts.PortMin).
			Uint16("max", p.opts.PortMax).
			Msg("pinned UDP port range")
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
		webrtc.WithSettingEngine(s),
	)
	return api.NewPeerConnection(configuration)
}

// Answer accepts a viewer's SDP offer and returns the answer with ICE
// gathering complete. One peer connection per viewer.
func (p *Publisher) Answer(offerSDP string) (string, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return "", errors.New("publisher closed")
	}
	p.mu.Unlock()

	track := p.source()
	if track == nil {
		return "", ErrNoTrack
	}

	pc, err := p.newPeerConnection()
	if err != nil {
		return "", fmt.Errorf("create peer connection: %w", err)
	}
	if _, err := pc.AddTransceiverFromTrack(track, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendonly,
	}); err != nil {
		_ = pc.Close()
		return "", fmt.Errorf("add video track: %w", err)
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.logger.Debug().Str("state", state.String()).Msg("viewer connection state")
	})

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	}); err != nil {
		_ = pc.Close()
		return "", fmt.Errorf("set remote sdp: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		_ = pc.Close()
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		_ = pc.Close()
		return "", fmt.Errorf("set local sdp: %w", err)
	}

	wait := time.NewTimer(10 * time.Second)
	defer wait.Stop()
	select {
	case <-gatherComplete:
	case <-wait.C:
		_ = pc.Close()
		return "", errors.New("ice gathering timed out")
	}

	p.mu.Lock()
	p.peers = append(p.peers, pc)
	p.mu.Unlock()

	return pc.LocalDescription().SDP, nil
}

// Close tears down all viewer connections. Idempotent.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	peers := p.peers
	p.peers = nil
	p.mu.Unlock()

	for _, pc := range peers {
		if err := pc.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("close peer connection")
		}
	}
}
