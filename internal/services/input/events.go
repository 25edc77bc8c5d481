// Package input defines the MIDI and OSC events consumed by learn and routing.
package input

import "fmt"

// MIDIType is the kind of a MIDI event.
type MIDIType string

const (
	ControlChange MIDIType = "cc"
	NoteOn        MIDIType = "noteon"
	NoteOff       MIDIType = "noteoff"
)

// MIDIEvent is a decoded channel voice message. Channel is 0-15.
type MIDIEvent struct {
	Type       MIDIType `json:"type"`
	Channel    int      `json:"channel"`
	Controller int      `json:"controller,omitempty"`
	Note       int      `json:"note,omitempty"`
	Value      int      `json:"value,omitempty"`
	Velocity   int      `json:"velocity,omitempty"`
	Source     string   `json:"source,omitempty"`
}

// IsControlChange reports whether e is a CC message.
func (e MIDIEvent) IsControlChange() bool { return e.Type == ControlChange }

// IsNoteOn reports whether e starts a note. Note-On with velocity 0 is a note-off.
func (e MIDIEvent) IsNoteOn() bool { return e.Type == NoteOn && e.Velocity > 0 }

// Amount is the CC value or Note-On velocity, clamped to 0-127.
func (e MIDIEvent) Amount() int {
	v := e.Value
	if e.Type != ControlChange {
		v = e.Velocity
	}
	switch {
	case v < 0:
		return 0
	case v > 127:
		return 127
	}
	return v
}

func (e MIDIEvent) String() string {
	switch {
	case e.IsControlChange():
		return fmt.Sprintf("CC ch%d #%d=%d", e.Channel, e.Controller, e.Value)
	case e.IsNoteOn():
		return fmt.Sprintf("NoteOn ch%d n%d v%d", e.Channel, e.Note, e.Velocity)
	}
	return fmt.Sprintf("NoteOff ch%d n%d", e.Channel, e.Note)
}

// OSCEvent is an incoming OSC value. Value is nominally 0..1.
type OSCEvent struct {
	Address     string  `json:"address"`
	ControlName string  `json:"controlName,omitempty"`
	Value       float64 `json:"value"`
}
