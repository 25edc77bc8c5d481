// Package midiinput decodes raw MIDI from hardware ports into input events.
package midiinput

import (
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"

	"github.com/bbernstein/lacylights-control/internal/services/input"
)

// Handler receives decoded events.
type Handler func(input.MIDIEvent)

// Decode converts a raw channel voice message. Only CC, Note-On and Note-Off decode.
func Decode(raw []byte) (input.MIDIEvent, bool) {
	msg := midi.Message(raw)
	var ch, key, val uint8
	switch {
	case msg.GetControlChange(&ch, &key, &val):
		return input.MIDIEvent{Type: input.ControlChange, Channel: int(ch), Controller: int(key), Value: int(val)}, true
	case msg.GetNoteStart(&ch, &key, &val):
		return input.MIDIEvent{Type: input.NoteOn, Channel: int(ch), Note: int(key), Velocity: int(val)}, true
	case msg.GetNoteEnd(&ch, &key):
		return input.MIDIEvent{Type: input.NoteOff, Channel: int(ch), Note: int(key)}, true
	}
	return input.MIDIEvent{}, false
}

// Ports lists the names of the available input ports.
func Ports() []string {
	var names []string
	for _, p := range midi.GetInPorts() {
		names = append(names, p.String())
	}
	return names
}

// Listener holds open MIDI input ports.
type Listener struct {
	mu      sync.Mutex
	handler Handler
	stops   []func()
	ports   []string
}

// NewListener creates a Listener that forwards decoded events to handler.
func NewListener(handler Handler) *Listener {
	return &Listener{handler: handler}
}

// Open starts listening on the named port. An empty name or "*" opens every input port.
func (l *Listener) Open(portName string) error {
	if portName == "" || portName == "*" {
		var errs []string
		for _, name := range Ports() {
			if err := l.open(name); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("failed to open midi inputs: %s", strings.Join(errs, "; "))
		}
		return nil
	}
	return l.open(portName)
}

func (l *Listener) open(portName string) error {
	in, err := midi.FindInPort(portName)
	if err != nil {
		return fmt.Errorf("can't find midi input %q: %w", portName, err)
	}
	source := in.String()
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		ev, ok := Decode(msg)
		if !ok {
			return
		}
		ev.Source = source
		log.Debugf("🎹 %s from %s", ev, source)
		l.handler(ev)
	})
	if err != nil {
		return fmt.Errorf("failed to listen to midi input %q: %w", portName, err)
	}

	l.mu.Lock()
	l.stops = append(l.stops, stop)
	l.ports = append(l.ports, source)
	l.mu.Unlock()
	log.Infof("🎹 Listening for MIDI on %s", source)
	return nil
}

// OpenPorts returns the names of the ports being listened to.
func (l *Listener) OpenPorts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ports...)
}

// Close stops every open port.
func (l *Listener) Close() {
	l.mu.Lock()
	stops := l.stops
	l.stops, l.ports = nil, nil
	l.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
}
