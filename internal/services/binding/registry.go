// Package binding keeps the control-to-MIDI/OSC binding table and the MIDI learn workflow.
package binding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/internal/database/models"
	"github.com/bbernstein/lacylights-control/internal/services/pubsub"
)

// Binding maps physical MIDI and/or OSC input to a control id.
// Controller and Note are mutually exclusive.
type Binding struct {
	ControlID  string  `json:"controlId" yaml:"controlId"`
	Channel    int     `json:"channel" yaml:"channel"`
	Controller *int    `json:"controller,omitempty" yaml:"controller,omitempty"`
	Note       *int    `json:"note,omitempty" yaml:"note,omitempty"`
	MinValue   int     `json:"minValue" yaml:"minValue"`
	MaxValue   int     `json:"maxValue" yaml:"maxValue"`
	OSCAddress string  `json:"oscAddress,omitempty" yaml:"oscAddress,omitempty"`
	Curve      float64 `json:"curve,omitempty" yaml:"curve,omitempty"` // response exponent, 1 is linear
}

// HasMIDI reports whether the binding listens to a MIDI controller or note.
func (b Binding) HasMIDI() bool { return b.Controller != nil || b.Note != nil }

// normalize clamps fields into range. A controller wins over a note.
func (b Binding) normalize() Binding {
	b.ControlID = strings.TrimSpace(b.ControlID)
	b.Channel = clampInt(b.Channel, 0, 15)
	if b.Controller != nil {
		c := clampInt(*b.Controller, 0, 127)
		b.Controller, b.Note = &c, nil
	} else if b.Note != nil {
		n := clampInt(*b.Note, 0, 127)
		b.Note = &n
	}
	b.MinValue = clampInt(b.MinValue, 0, 255)
	b.MaxValue = clampInt(b.MaxValue, 0, 255)
	b.OSCAddress = strings.TrimSpace(b.OSCAddress)
	if b.Curve <= 0 {
		b.Curve = 1
	}
	return b
}

// Store persists bindings.
type Store interface {
	FindAll(ctx context.Context) ([]models.Binding, error)
	Upsert(ctx context.Context, b *models.Binding) error
	DeleteByControlID(ctx context.Context, controlID string) error
	DeleteAll(ctx context.Context) error
}

// Publisher receives binding table changes.
type Publisher interface {
	PublishAll(topic pubsub.Topic, data interface{})
}

// Registry holds at most one binding per control id.
type Registry struct {
	mu        sync.RWMutex
	bindings  map[string]Binding
	store     Store
	publisher Publisher
}

// NewRegistry creates a registry. store and publisher may be nil.
func NewRegistry(store Store, publisher Publisher) *Registry {
	return &Registry{
		bindings:  make(map[string]Binding),
		store:     store,
		publisher: publisher,
	}
}

// Load replaces the in-memory table with the persisted bindings.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	rows, err := r.store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bindings: %w", err)
	}

	loaded := make(map[string]Binding, len(rows))
	for _, row := range rows {
		b := fromModel(row).normalize()
		loaded[b.ControlID] = b
	}

	r.mu.Lock()
	r.bindings = loaded
	r.mu.Unlock()

	log.Infof("🎹 Loaded %d bindings", len(loaded))
	r.publish()
	return nil
}

// Set adds or replaces the binding for b.ControlID and returns the stored value.
func (r *Registry) Set(b Binding) Binding {
	b = b.normalize()
	if b.ControlID == "" {
		return b
	}

	r.mu.Lock()
	r.bindings[b.ControlID] = b
	r.mu.Unlock()

	r.persist(func(ctx context.Context, s Store) error {
		m := toModel(b)
		return s.Upsert(ctx, &m)
	})
	r.publish()
	return b
}

// Remove deletes the binding for id.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.bindings[id]
	delete(r.bindings, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	r.persist(func(ctx context.Context, s Store) error { return s.DeleteByControlID(ctx, id) })
	r.publish()
	return true
}

// Get returns the binding for id.
func (r *Registry) Get(id string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[id]
	return b, ok
}

// All returns every binding sorted by control id.
func (r *Registry) All() []Binding {
	r.mu.RLock()
	out := make([]Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, b)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ControlID < out[j].ControlID })
	return out
}

// Clear removes every binding.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.bindings = make(map[string]Binding)
	r.mu.Unlock()

	r.persist(func(ctx context.Context, s Store) error { return s.DeleteAll(ctx) })
	r.publish()
}

// SetRange changes the output range of an existing binding.
func (r *Registry) SetRange(id string, minValue, maxValue int) (Binding, bool) {
	b, ok := r.Get(id)
	if !ok {
		return Binding{}, false
	}
	b.MinValue, b.MaxValue = minValue, maxValue
	return r.Set(b), true
}

// SetOSCAddress binds an OSC address to id, keeping any MIDI binding and range.
// An empty address removes the OSC part.
func (r *Registry) SetOSCAddress(id, address string) Binding {
	b, ok := r.Get(id)
	if !ok {
		b = Binding{ControlID: id, MaxValue: 255}
	}
	b.OSCAddress = address
	return r.Set(b)
}

func (r *Registry) persist(op func(ctx context.Context, s Store) error) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := op(ctx, r.store); err != nil {
		log.Warnf("🎹 Failed to persist bindings: %v", err)
	}
}

func (r *Registry) publish() {
	if r.publisher != nil {
		r.publisher.PublishAll(pubsub.TopicBindingsChanged, r.All())
	}
}

func toModel(b Binding) models.Binding {
	m := models.Binding{
		ControlID:  b.ControlID,
		Channel:    b.Channel,
		Controller: b.Controller,
		Note:       b.Note,
		MinValue:   b.MinValue,
		MaxValue:   b.MaxValue,
		Curve:      b.Curve,
	}
	if b.OSCAddress != "" {
		addr := b.OSCAddress
		m.OSCAddress = &addr
	}
	return m
}

func fromModel(m models.Binding) Binding {
	b := Binding{
		ControlID:  m.ControlID,
		Channel:    m.Channel,
		Controller: m.Controller,
		Note:       m.Note,
		MinValue:   m.MinValue,
		MaxValue:   m.MaxValue,
		Curve:      m.Curve,
	}
	if m.OSCAddress != nil {
		b.OSCAddress = *m.OSCAddress
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
