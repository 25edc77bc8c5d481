package binding

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/internal/services/input"
	"github.com/bbernstein/lacylights-control/internal/services/pubsub"
)

// Status is the state of a learn session.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusLearning Status = "learning"
	StatusSuccess  Status = "success"
	StatusTimeout  Status = "timeout"
)

const (
	DefaultLearnTimeout = 30 * time.Second
	DefaultLearnReset   = 3 * time.Second
)

// Session is a snapshot of the learn state.
type Session struct {
	ControlID string    `json:"controlId,omitempty"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"startedAt,omitempty"`
	Binding   *Binding  `json:"binding,omitempty"`
}

// Learner captures the next MIDI control event into a binding for a target control.
type Learner struct {
	mu        sync.Mutex
	registry  *Registry
	publisher Publisher

	timeout time.Duration
	reset   time.Duration

	session    Session
	generation uint64
	timer      *time.Timer
}

// NewLearner creates an idle Learner. Non-positive durations use the defaults.
func NewLearner(registry *Registry, publisher Publisher, timeout, reset time.Duration) *Learner {
	if timeout <= 0 {
		timeout = DefaultLearnTimeout
	}
	if reset <= 0 {
		reset = DefaultLearnReset
	}
	return &Learner{
		registry:  registry,
		publisher: publisher,
		timeout:   timeout,
		reset:     reset,
		session:   Session{Status: StatusIdle},
	}
}

// Status returns the current session.
func (l *Learner) Status() Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// StartLearn cancels any session in flight and starts learning for controlID.
func (l *Learner) StartLearn(controlID string) Session {
	l.mu.Lock()
	if l.session.Status == StatusLearning && l.session.ControlID != controlID {
		log.Infof("🎓 MIDI learn for %s superseded by %s", l.session.ControlID, controlID)
	}
	gen := l.advance(Session{ControlID: controlID, Status: StatusLearning, StartedAt: time.Now()})
	l.arm(gen, l.timeout, l.expire)
	s := l.session
	l.mu.Unlock()

	log.Infof("🎓 MIDI learn started for %s", controlID)
	l.publish(s)
	return s
}

// CancelLearn returns to idle and discards any capture.
func (l *Learner) CancelLearn() {
	l.mu.Lock()
	if l.session.Status == StatusIdle {
		l.mu.Unlock()
		return
	}
	l.advance(Session{Status: StatusIdle})
	s := l.session
	l.mu.Unlock()

	l.publish(s)
}

// Capture offers a MIDI event to the learn session. It returns true when the event
// completed the session and must not be routed further.
func (l *Learner) Capture(ev input.MIDIEvent) bool {
	var b Binding
	switch {
	case ev.IsControlChange():
		c := ev.Controller
		b.Controller = &c
	case ev.IsNoteOn():
		n := ev.Note
		b.Note = &n
	default:
		return false
	}

	l.mu.Lock()
	if l.session.Status != StatusLearning {
		l.mu.Unlock()
		return false
	}
	id := l.session.ControlID

	b.ControlID = id
	b.Channel = ev.Channel
	b.MinValue, b.MaxValue = 0, 255
	if existing, ok := l.registry.Get(id); ok {
		b.MinValue, b.MaxValue = existing.MinValue, existing.MaxValue
		b.OSCAddress = existing.OSCAddress
		b.Curve = existing.Curve
	}
	stored := l.registry.Set(b)

	gen := l.advance(Session{ControlID: id, Status: StatusSuccess, StartedAt: l.session.StartedAt, Binding: &stored})
	l.arm(gen, l.reset, l.toIdle)
	s := l.session
	l.mu.Unlock()

	log.Infof("🎓 MIDI learn: %s bound to %s", id, ev)
	l.publish(s)
	return true
}

// advance installs a new session, invalidating timers of the previous one. Callers hold mu.
func (l *Learner) advance(s Session) uint64 {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.generation++
	l.session = s
	return l.generation
}

// arm schedules fn for the current generation. Callers hold mu.
func (l *Learner) arm(gen uint64, d time.Duration, fn func(uint64)) {
	l.timer = time.AfterFunc(d, func() { fn(gen) })
}

func (l *Learner) expire(gen uint64) {
	l.mu.Lock()
	if gen != l.generation || l.session.Status != StatusLearning {
		l.mu.Unlock()
		return
	}
	id := l.session.ControlID
	next := l.advance(Session{ControlID: id, Status: StatusTimeout, StartedAt: l.session.StartedAt})
	l.arm(next, l.reset, l.toIdle)
	s := l.session
	l.mu.Unlock()

	log.Infof("⏱️ MIDI learn timed out for %s", id)
	l.publish(s)
}

func (l *Learner) toIdle(gen uint64) {
	l.mu.Lock()
	if gen != l.generation {
		l.mu.Unlock()
		return
	}
	l.advance(Session{Status: StatusIdle})
	s := l.session
	l.mu.Unlock()

	l.publish(s)
}

func (l *Learner) publish(s Session) {
	if l.publisher != nil {
		l.publisher.PublishAll(pubsub.TopicLearnStatus, s)
	}
}
