package track

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/internal/services/pubsub"
)

// SettingKey is where the last autopilot configuration is persisted.
const SettingKey = "autopilot_track"

const (
	DefaultTickHz = 30
	DefaultCycle  = 8 * time.Second
)

// Dispatcher receives pan/tilt values.
type Dispatcher interface {
	Dispatch(controlID string, value float64) int
}

// SettingStore persists key/value settings.
type SettingStore interface {
	LoadSetting(ctx context.Context, key string) (string, bool, error)
	SaveSetting(ctx context.Context, key, value string) error
}

// Publisher receives autopilot state changes.
type Publisher interface {
	PublishAll(topic pubsub.Topic, data interface{})
}

// State is the externally visible autopilot state.
type State struct {
	Enabled bool          `json:"enabled"`
	Config  Config        `json:"config"`
	Cycle   time.Duration `json:"-"`
	Point   Point         `json:"point"`
}

// MarshalJSON reports the cycle in milliseconds.
func (s State) MarshalJSON() ([]byte, error) {
	type alias State
	return json.Marshal(struct {
		alias
		Cycle int64 `json:"cycleMs"`
	}{alias(s), s.Cycle.Milliseconds()})
}

// Player drives pan/tilt along a track on a ticker.
type Player struct {
	// lifecycle serializes Start and Stop; mu guards the fields below.
	lifecycle sync.Mutex
	mu        sync.RWMutex

	dispatcher Dispatcher
	store      SettingStore
	publisher  Publisher

	tick  time.Duration
	cycle time.Duration
	cfg   Config
	last  Point

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewPlayer creates a stopped Player.
func NewPlayer(d Dispatcher, tickHz int, cycle time.Duration) *Player {
	if tickHz <= 0 {
		tickHz = DefaultTickHz
	}
	if cycle <= 0 {
		cycle = DefaultCycle
	}
	return &Player{
		dispatcher: d,
		tick:       time.Second / time.Duration(tickHz),
		cycle:      cycle,
		cfg:        DefaultConfig(),
	}
}

// SetStore enables persistence of the configuration.
func (p *Player) SetStore(s SettingStore) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store = s
}

// SetPublisher enables state change events.
func (p *Player) SetPublisher(pub Publisher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publisher = pub
}

// State returns the current autopilot state.
func (p *Player) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return State{Enabled: p.stopChan != nil, Config: p.cfg, Cycle: p.cycle, Point: p.last}
}

// Enabled reports whether the loop is running.
func (p *Player) Enabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopChan != nil
}

// Restore loads the persisted configuration without starting the loop.
func (p *Player) Restore(ctx context.Context) error {
	p.mu.RLock()
	store := p.store
	p.mu.RUnlock()
	if store == nil {
		return nil
	}

	raw, ok, err := store.LoadSetting(ctx, SettingKey)
	if err != nil {
		return fmt.Errorf("failed to load autopilot setting: %w", err)
	}
	if !ok {
		return nil
	}
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return fmt.Errorf("invalid autopilot setting: %w", err)
	}
	if !cfg.Shape.Valid() {
		cfg.Shape = Circle
	}

	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	log.Infof("🛰️ Autopilot restored: %s size %.0f%% at (%.0f, %.0f)", cfg.Shape, cfg.Size, cfg.CenterX, cfg.CenterY)
	return nil
}

// SetConfig replaces the configuration. A running loop picks it up on the next tick.
func (p *Player) SetConfig(cfg Config) {
	if !cfg.Shape.Valid() {
		log.Warnf("🛰️ Autopilot: unknown shape %q, using circle", cfg.Shape)
		cfg.Shape = Circle
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	p.persist(cfg)
	p.publish()
}

// Apply sets the configuration and dispatches its position once.
func (p *Player) Apply(cfg Config) Point {
	p.SetConfig(cfg)
	return p.dispatchAt(cfg.Position)
}

// Start stops any running loop, then starts a new one with cfg.
// A non-positive cycle keeps the current cycle length.
func (p *Player) Start(cfg Config, cycle time.Duration) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.startLoop(cfg, cycle)
}

// Stop stops the loop and returns after it has exited. Stopping a stopped player is a no-op.
func (p *Player) Stop() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.stopLoop() {
		log.Info("🛰️ Autopilot stopped")
		p.publish()
	}
}

// Toggle starts the loop with the current configuration or stops it.
func (p *Player) Toggle() bool {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.stopLoop() {
		log.Info("🛰️ Autopilot stopped")
		p.publish()
		return false
	}
	p.startLoop(p.State().Config, 0)
	return true
}

// startLoop must be called with lifecycle held.
func (p *Player) startLoop(cfg Config, cycle time.Duration) {
	p.stopLoop()
	p.SetConfig(cfg)

	p.mu.Lock()
	if cycle > 0 {
		p.cycle = cycle
	}
	p.stopChan = make(chan struct{})
	p.doneChan = make(chan struct{})
	go p.loop(p.stopChan, p.doneChan, p.tick)
	p.mu.Unlock()

	log.Infof("🛰️ Autopilot started: %s", p.State().Config.Shape)
	p.publish()
}

// stopLoop must be called with lifecycle held.
func (p *Player) stopLoop() bool {
	p.mu.Lock()
	stop, done := p.stopChan, p.doneChan
	p.stopChan, p.doneChan = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return false
	}
	close(stop)
	<-done
	return true
}

func (p *Player) loop(stop, done chan struct{}, interval time.Duration) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.mu.RLock()
	origin := p.cfg.Position
	p.mu.RUnlock()
	started := time.Now()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			p.mu.RLock()
			cycle := p.cycle
			p.mu.RUnlock()
			elapsed := now.Sub(started)
			p.dispatchAt(origin + 100*float64(elapsed)/float64(cycle))
		}
	}
}

func (p *Player) dispatchAt(position float64) Point {
	p.mu.Lock()
	cfg := p.cfg
	cfg.Position = position
	pt := Compute(cfg)
	p.last = pt
	p.mu.Unlock()

	pan, tilt := ToDMX(pt)
	p.dispatcher.Dispatch("pan", float64(pan))
	p.dispatcher.Dispatch("tilt", float64(tilt))
	return pt
}

func (p *Player) persist(cfg Config) {
	p.mu.RLock()
	store := p.store
	p.mu.RUnlock()
	if store == nil {
		return
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		log.Warnf("🛰️ Autopilot: failed to encode config: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.SaveSetting(ctx, SettingKey, string(data)); err != nil {
		log.Warnf("🛰️ Autopilot: failed to persist config: %v", err)
	}
}

func (p *Player) publish() {
	p.mu.RLock()
	pub := p.publisher
	p.mu.RUnlock()
	if pub != nil {
		pub.PublishAll(pubsub.TopicAutopilot, p.State())
	}
}
