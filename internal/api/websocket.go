package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/internal/services/control"
	"github.com/bbernstein/lacylights-control/internal/services/input"
	"github.com/bbernstein/lacylights-control/internal/services/pubsub"
)

const (
	wsWriteWait  = 5 * time.Second
	wsBufferSize = 64
)

// inputFrame is a client-to-server WebSocket message.
type inputFrame struct {
	Kind    string           `json:"kind"` // midi | osc | control
	MIDI    *input.MIDIEvent `json:"midi,omitempty"`
	OSC     *input.OSCEvent  `json:"osc,omitempty"`
	Control *control.Intent  `json:"control,omitempty"`
}

// handleWebSocket pushes every pubsub event to the client and routes input frames it sends.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("📡 WebSocket upgrade failed: %v", err)
		return
	}
	log.Debugf("📡 WebSocket client connected: %s", r.RemoteAddr)

	sub := s.svc.PubSub.SubscribeTopics(pubsub.AllTopics(), "", wsBufferSize)
	readDone := make(chan struct{})

	go func() {
		defer close(readDone)
		s.readFrames(conn)
	}()

	s.writeEvents(conn, sub, readDone)

	s.svc.PubSub.Unsubscribe(sub)
	_ = conn.Close()
	<-readDone
	log.Debugf("📡 WebSocket client disconnected: %s", r.RemoteAddr)
}

func (s *Server) writeEvents(conn *websocket.Conn, sub *pubsub.Subscriber, readDone <-chan struct{}) {
	ping := time.NewTicker(s.opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-readDone:
			return
		case ev, ok := <-sub.Channel:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readFrames(conn *websocket.Conn) {
	for {
		var frame inputFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debugf("📡 WebSocket read error: %v", err)
			}
			return
		}
		s.handleFrame(frame)
	}
}

func (s *Server) handleFrame(frame inputFrame) {
	switch {
	case frame.Kind == "midi" && frame.MIDI != nil && validMIDIType(frame.MIDI.Type):
		s.svc.Router.HandleMIDI(*frame.MIDI)
	case frame.Kind == "osc" && frame.OSC != nil && frame.OSC.Address != "":
		s.svc.Router.HandleOSC(*frame.OSC)
	case frame.Kind == "control" && frame.Control != nil:
		s.dispatchManual(*frame.Control)
	default:
		log.Debugf("📡 Ignoring WebSocket frame of kind %q", frame.Kind)
	}
}
