// Package control turns abstract control intents into DMX channel writes for the current selection.
package control

import (
	"math"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/internal/services/channeltype"
	"github.com/bbernstein/lacylights-control/internal/services/pubsub"
	"github.com/bbernstein/lacylights-control/internal/services/selection"
)

// Writer is the DMX output collaborator, addressed 0..511.
type Writer interface {
	SetDmxChannelValue(address int, value byte)
	GetDmxChannelValue(address int) byte
}

// Selector yields the fixtures affected by the current selection.
type Selector interface {
	Affected() []selection.AffectedFixture
}

// Publisher receives dispatch events.
type Publisher interface {
	Publish(topic pubsub.Topic, filter string, data interface{})
}

// Intent is a request to set one control to a value.
type Intent struct {
	Control string  `json:"control"`
	Value   float64 `json:"value"`
}

// Result describes a completed dispatch.
type Result struct {
	Control channeltype.Control `json:"control"`
	Value   int                 `json:"value"`
	Writes  int                 `json:"writes"`
}

// Dispatcher writes control values to every affected fixture carrying the control.
type Dispatcher struct {
	writer    Writer
	selector  Selector
	publisher Publisher
	verify    bool

	mu        sync.RWMutex
	listeners []func(Result)
}

// NewDispatcher creates a Dispatcher. publisher may be nil.
func NewDispatcher(w Writer, s Selector, p Publisher) *Dispatcher {
	return &Dispatcher{writer: w, selector: s, publisher: p}
}

// SetVerifyWrites enables read-back verification after each write.
func (d *Dispatcher) SetVerifyWrites(verify bool) {
	d.verify = verify
}

// OnDispatch registers a listener called after every dispatch that resolved a control.
func (d *Dispatcher) OnDispatch(fn func(Result)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Clamp rounds half-up and clamps to a DMX byte. NaN maps to 0.
func Clamp(v float64) byte {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Floor(v + 0.5)
	if r <= 0 {
		return 0
	}
	if r >= 255 {
		return 255
	}
	return byte(r)
}

// Dispatch writes value to controlID on each affected fixture and returns the number of writes.
func (d *Dispatcher) Dispatch(controlID string, value float64) int {
	c, ok := channeltype.Normalize(controlID)
	if !ok {
		log.Debugf("🎛️ Dispatch: unknown control %q", controlID)
		return 0
	}

	affected := d.selector.Affected()
	if len(affected) == 0 {
		log.Debugf("🎛️ Dispatch: %s ignored, selection is empty", c)
		return 0
	}

	v := Clamp(value)
	writes := 0
	for _, af := range affected {
		addr, ok := af.Channels[c]
		if !ok {
			continue
		}
		d.writer.SetDmxChannelValue(addr, v)
		writes++
		if d.verify {
			if got := d.writer.GetDmxChannelValue(addr); got != v {
				log.Debugf("🎛️ Dispatch: read-back mismatch at %d for %s (wrote %d, read %d)", addr, af.Fixture.Name, v, got)
			}
		}
	}

	res := Result{Control: c, Value: int(v), Writes: writes}
	if d.publisher != nil {
		d.publisher.Publish(pubsub.TopicControlDispatched, string(c), res)
	}

	d.mu.RLock()
	listeners := d.listeners
	d.mu.RUnlock()
	for _, fn := range listeners {
		fn(res)
	}
	return writes
}

// DispatchIntent dispatches a single Intent.
func (d *Dispatcher) DispatchIntent(in Intent) int {
	return d.Dispatch(in.Control, in.Value)
}

// HasControl reports whether any affected fixture carries the control.
func (d *Dispatcher) HasControl(controlID string) bool {
	c, ok := channeltype.Normalize(controlID)
	if !ok {
		return false
	}
	for _, af := range d.selector.Affected() {
		if _, ok := af.Channels[c]; ok {
			return true
		}
	}
	return false
}
