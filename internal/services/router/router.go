// Package router routes incoming MIDI and OSC events through learn, bindings and actions to the dispatcher.
package router

import (
	"math"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/internal/services/binding"
	"github.com/bbernstein/lacylights-control/internal/services/channeltype"
	"github.com/bbernstein/lacylights-control/internal/services/input"
)

const (
	// MIDIBangThreshold is the value/velocity an action input must exceed.
	MIDIBangThreshold = 63
	// OSCBangThreshold is the value an OSC action input must exceed.
	OSCBangThreshold = 0.5
)

// Dispatcher applies a control value to the current selection.
type Dispatcher interface {
	Dispatch(controlID string, value float64) int
}

// Learner gets the first look at every MIDI event.
type Learner interface {
	Capture(ev input.MIDIEvent) bool
}

// Bindings lists the binding table sorted by control id.
type Bindings interface {
	All() []binding.Binding
}

// Action is a bang-style control that ignores the scaled value.
type Action func()

// Fired describes one binding that fired for an event.
type Fired struct {
	ControlID string `json:"controlId"`
	Value     int    `json:"value"`
	Action    bool   `json:"action,omitempty"`
}

// Result is the outcome of routing one event.
type Result struct {
	Learned bool    `json:"learned,omitempty"`
	Fired   []Fired `json:"fired"`
}

// Router is the single entry point for runtime input.
type Router struct {
	// mu serializes event handling
	mu sync.Mutex

	learner    Learner
	bindings   Bindings
	dispatcher Dispatcher

	actionsMu sync.RWMutex
	actions   map[string]Action
	onPanTilt func()
}

// New creates a Router. learner may be nil.
func New(learner Learner, bindings Bindings, dispatcher Dispatcher) *Router {
	return &Router{
		learner:    learner,
		bindings:   bindings,
		dispatcher: dispatcher,
		actions:    make(map[string]Action),
	}
}

// RegisterAction registers a bang action under a control id.
func (r *Router) RegisterAction(controlID string, fn Action) {
	r.actionsMu.Lock()
	defer r.actionsMu.Unlock()
	r.actions[controlID] = fn
}

// IsAction reports whether controlID is a registered action.
func (r *Router) IsAction(controlID string) bool {
	_, ok := r.action(controlID)
	return ok
}

// OnManualPanTilt sets a hook invoked before any pan/tilt family control is dispatched from input.
func (r *Router) OnManualPanTilt(fn func()) {
	r.actionsMu.Lock()
	defer r.actionsMu.Unlock()
	r.onPanTilt = fn
}

// HandleMIDI routes a MIDI event. An event captured by learn is not routed.
func (r *Router) HandleMIDI(ev input.MIDIEvent) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.learner != nil && r.learner.Capture(ev) {
		return Result{Learned: true}
	}
	if !ev.IsControlChange() && !ev.IsNoteOn() {
		return Result{}
	}

	var res Result
	for _, b := range r.bindings.All() {
		if !matchesMIDI(b, ev) {
			continue
		}
		amount := ev.Amount()
		if fn, ok := r.action(b.ControlID); ok {
			if amount > MIDIBangThreshold {
				r.fire(b.ControlID, fn)
				res.Fired = append(res.Fired, Fired{ControlID: b.ControlID, Value: amount, Action: true})
			}
			continue
		}
		out := RescaleMIDI(b, amount)
		r.dispatch(b.ControlID, out)
		res.Fired = append(res.Fired, Fired{ControlID: b.ControlID, Value: out})
	}
	return res
}

// HandleOSC routes an OSC event to bindings with exactly the same address.
func (r *Router) HandleOSC(ev input.OSCEvent) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res Result
	for _, b := range r.bindings.All() {
		if b.OSCAddress == "" || b.OSCAddress != ev.Address {
			continue
		}
		if fn, ok := r.action(b.ControlID); ok {
			if ev.Value > OSCBangThreshold {
				r.fire(b.ControlID, fn)
				res.Fired = append(res.Fired, Fired{ControlID: b.ControlID, Value: 1, Action: true})
			}
			continue
		}
		out := RescaleOSC(b, ev.Value)
		r.dispatch(b.ControlID, out)
		res.Fired = append(res.Fired, Fired{ControlID: b.ControlID, Value: out})
	}
	return res
}

// RescaleMIDI maps 0..127 onto the binding range through its response curve.
func RescaleMIDI(b binding.Binding, in int) int {
	v := float64(in) / 127
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	if b.Curve > 0 && b.Curve != 1 {
		v = math.Pow(v, b.Curve)
	}
	return scale(b, v)
}

// RescaleOSC maps 0..1 onto the binding range. Out-of-range input is clamped.
func RescaleOSC(b binding.Binding, in float64) int {
	if math.IsNaN(in) || in < 0 {
		in = 0
	} else if in > 1 {
		in = 1
	}
	return scale(b, in)
}

func scale(b binding.Binding, v float64) int {
	lo, hi := float64(b.MinValue), float64(b.MaxValue)
	return int(math.Floor(lo + v*(hi-lo) + 0.5))
}

func matchesMIDI(b binding.Binding, ev input.MIDIEvent) bool {
	if b.Channel != ev.Channel {
		return false
	}
	if b.Controller != nil && ev.IsControlChange() && *b.Controller == ev.Controller {
		return true
	}
	return b.Note != nil && ev.IsNoteOn() && *b.Note == ev.Note
}

func (r *Router) action(controlID string) (Action, bool) {
	r.actionsMu.RLock()
	defer r.actionsMu.RUnlock()
	fn, ok := r.actions[controlID]
	return fn, ok
}

func (r *Router) fire(controlID string, fn Action) {
	log.Debugf("🎚️ Action %s", controlID)
	fn()
}

func (r *Router) dispatch(controlID string, value int) {
	if c, ok := channeltype.Normalize(controlID); ok && channeltype.IsPanTilt(c) {
		r.actionsMu.RLock()
		hook := r.onPanTilt
		r.actionsMu.RUnlock()
		if hook != nil {
			hook()
		}
	}
	r.dispatcher.Dispatch(controlID, float64(value))
}
