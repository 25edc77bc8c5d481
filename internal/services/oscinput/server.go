// Package oscinput receives OSC control messages and echoes dispatched values back to a surface.
package oscinput

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/internal/services/input"
)

// Handler receives decoded OSC events.
type Handler func(input.OSCEvent)

// Server listens for OSC messages on a UDP address.
type Server struct {
	addr    string
	handler Handler

	mu   sync.Mutex
	conn net.PacketConn
	done chan struct{}
}

// NewServer creates a Server for addr (host:port).
func NewServer(addr string, handler Handler) *Server {
	return &Server{addr: addr, handler: handler}
}

// Start binds the socket and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}

	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen for OSC on %s: %w", s.addr, err)
	}

	d := osc.NewStandardDispatcher()
	if err := d.AddMsgHandler("*", s.handle); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to register OSC handler: %w", err)
	}

	srv := &osc.Server{}
	s.conn = conn
	s.done = make(chan struct{})
	done := s.done
	go func() {
		defer close(done)
		// Packets are dispatched on this goroutine so handlers see them in arrival order.
		for {
			pkt, err := srv.ReceivePacket(conn)
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Warnf("🛰️ OSC receive error: %v", err)
				continue
			}
			dispatch(d, pkt)
		}
	}()

	log.Infof("🛰️ Listening for OSC on %s", conn.LocalAddr())
	return nil
}

// Addr returns the bound address, or nil when not started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Stop closes the socket and waits for the serve loop to exit.
func (s *Server) Stop() {
	s.mu.Lock()
	conn, done := s.conn, s.done
	s.conn, s.done = nil, nil
	s.mu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.Close()
	<-done
}

// dispatch delivers a packet synchronously. Bundle contents are delivered
// immediately in bundle order, ignoring time tags.
func dispatch(d osc.Dispatcher, pkt osc.Packet) {
	switch p := pkt.(type) {
	case *osc.Message:
		d.Dispatch(p)
	case *osc.Bundle:
		for _, m := range p.Messages {
			d.Dispatch(m)
		}
		for _, b := range p.Bundles {
			dispatch(d, b)
		}
	}
}

func (s *Server) handle(msg *osc.Message) {
	ev, ok := Decode(msg)
	if !ok {
		log.Debugf("🛰️ Ignoring OSC %s with no numeric argument", msg.Address)
		return
	}
	s.handler(ev)
}

// Decode converts the first numeric or boolean argument of msg. A message without
// arguments is a press with value 1.
func Decode(msg *osc.Message) (input.OSCEvent, bool) {
	ev := input.OSCEvent{Address: msg.Address, ControlName: controlName(msg.Address)}
	if len(msg.Arguments) == 0 {
		ev.Value = 1
		return ev, true
	}
	switch v := msg.Arguments[0].(type) {
	case float32:
		ev.Value = float64(v)
	case float64:
		ev.Value = v
	case int32:
		ev.Value = float64(v)
	case int64:
		ev.Value = float64(v)
	case bool:
		if v {
			ev.Value = 1
		}
	default:
		return input.OSCEvent{}, false
	}
	return ev, true
}

func controlName(addr string) string {
	addr = strings.TrimRight(addr, "/")
	if i := strings.LastIndex(addr, "/"); i >= 0 {
		return addr[i+1:]
	}
	return addr
}
