// Package dmx holds the DMX universe buffers and streams them over Art-Net.
package dmx

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/pkg/artnet"
)

const (
	// UniverseSize is the number of channels per DMX universe.
	UniverseSize = 512
	// MaxUniverses is the maximum number of supported universes.
	MaxUniverses = 4
)

// Config holds DMX service configuration.
type Config struct {
	Enabled          bool
	BroadcastAddr    string
	Port             int
	UniverseCount    int
	RefreshRateHz    int
	IdleRateHz       int
	HighRateDuration time.Duration
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		BroadcastAddr:    "255.255.255.255",
		Port:             artnet.DefaultPort,
		UniverseCount:    MaxUniverses,
		RefreshRateHz:    60,
		IdleRateHz:       1,
		HighRateDuration: 2 * time.Second,
	}
}

// Service manages DMX channel values and Art-Net output.
type Service struct {
	mu sync.RWMutex

	// 0-indexed channel buffers keyed by 1-based universe
	universes map[int][]byte

	enabled          bool
	broadcastAddr    string
	port             int
	refreshRateHz    int
	idleRateHz       int
	highRateDuration time.Duration

	// Adaptive transmission rate state
	currentRate      int
	isInHighRateMode bool
	lastChangeTime   time.Time

	dirtyUniverses map[int]bool

	// Art-Net sequence number (wraps at 255)
	sequence byte

	conn net.Conn

	stopChan chan struct{}
	running  bool
}

// NewService creates a new DMX service. Zero config values fall back to defaults.
func NewService(cfg Config) *Service {
	def := DefaultConfig()
	if cfg.RefreshRateHz <= 0 {
		cfg.RefreshRateHz = def.RefreshRateHz
	}
	if cfg.IdleRateHz <= 0 {
		cfg.IdleRateHz = def.IdleRateHz
	}
	if cfg.HighRateDuration <= 0 {
		cfg.HighRateDuration = def.HighRateDuration
	}
	if cfg.Port <= 0 {
		cfg.Port = def.Port
	}
	if cfg.UniverseCount <= 0 || cfg.UniverseCount > MaxUniverses {
		cfg.UniverseCount = def.UniverseCount
	}

	s := &Service{
		universes:        make(map[int][]byte),
		dirtyUniverses:   make(map[int]bool),
		enabled:          cfg.Enabled,
		broadcastAddr:    cfg.BroadcastAddr,
		port:             cfg.Port,
		refreshRateHz:    cfg.RefreshRateHz,
		idleRateHz:       cfg.IdleRateHz,
		highRateDuration: cfg.HighRateDuration,
		currentRate:      cfg.IdleRateHz,
		stopChan:         make(chan struct{}),
	}
	for i := 1; i <= cfg.UniverseCount; i++ {
		s.universes[i] = make([]byte, UniverseSize)
	}
	return s
}

// Initialize opens the Art-Net socket (when enabled) and starts the transmit loop.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if s.enabled {
		conn, err := net.Dial("udp4", net.JoinHostPort(s.broadcastAddr, strconv.Itoa(s.port)))
		if err != nil {
			return fmt.Errorf("failed to open Art-Net socket: %w", err)
		}
		s.conn = conn
		log.Infof("🎭 DMX Service initialized with %d universes", len(s.universes))
		log.Infof("📡 Art-Net output enabled, broadcasting to %s:%d (%dHz active / %dHz idle)",
			s.broadcastAddr, s.port, s.refreshRateHz, s.idleRateHz)
	} else {
		log.Infof("🎭 DMX Service initialized with %d universes (simulation mode)", len(s.universes))
	}

	s.running = true
	go s.transmitLoop()
	return nil
}

func (s *Service) transmitLoop() {
	s.mu.RLock()
	lastRate := s.currentRate
	s.mu.RUnlock()

	ticker := time.NewTicker(time.Second / time.Duration(lastRate))
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			rate := s.processTransmission()
			if rate != lastRate {
				ticker.Reset(time.Second / time.Duration(rate))
				lastRate = rate
			}
		}
	}
}

// processTransmission sends one frame and returns the rate for the next tick.
func (s *Service) processTransmission() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if len(s.dirtyUniverses) > 0 {
		s.lastChangeTime = now
		s.enterHighRate()
	} else if s.isInHighRateMode && now.Sub(s.lastChangeTime) > s.highRateDuration {
		s.isInHighRateMode = false
		s.currentRate = s.idleRateHz
		log.Debugf("📡 DMX transmission: idle rate (%dHz)", s.idleRateHz)
	}

	if s.enabled && s.conn != nil {
		s.outputDMX()
	}
	s.dirtyUniverses = make(map[int]bool)
	return s.currentRate
}

// outputDMX sends dirty universes, or every universe as keep-alive when nothing changed.
func (s *Service) outputDMX() {
	targets := s.dirtyUniverses
	if len(targets) == 0 {
		targets = make(map[int]bool, len(s.universes))
		for u := range s.universes {
			targets[u] = true
		}
	}
	for u := range targets {
		s.sequence++
		packet := artnet.BuildDMXPacket(u, s.universes[u], s.sequence)
		if _, err := s.conn.Write(packet); err != nil {
			log.Warnf("Art-Net send error for universe %d: %v", u, err)
		}
	}
}

func (s *Service) enterHighRate() {
	if !s.isInHighRateMode {
		s.isInHighRateMode = true
		s.currentRate = s.refreshRateHz
		log.Debugf("📡 DMX transmission: high rate (%dHz)", s.refreshRateHz)
	}
}

// SetChannelValue sets a 1-based channel in a universe.
func (s *Service) SetChannelValue(universe, channel int, value byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.universes[universe]
	if data == nil || channel < 1 || channel > UniverseSize {
		return
	}
	if data[channel-1] != value {
		data[channel-1] = value
		s.dirtyUniverses[universe] = true
		s.lastChangeTime = time.Now()
		s.enterHighRate()
	}
}

// GetChannelValue returns the value of a 1-based channel.
func (s *Service) GetChannelValue(universe, channel int) byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := s.universes[universe]
	if data == nil || channel < 1 || channel > UniverseSize {
		return 0
	}
	return data[channel-1]
}

// GetUniverse returns a copy of all channel values for a universe.
func (s *Service) GetUniverse(universe int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]int, UniverseSize)
	for i, v := range s.universes[universe] {
		result[i] = int(v)
	}
	return result
}

// UniverseCount returns the number of configured universes.
func (s *Service) UniverseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.universes)
}

// Blackout sets every channel of every universe to 0.
func (s *Service) Blackout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for u, data := range s.universes {
		for i := range data {
			if data[i] != 0 {
				data[i] = 0
				s.dirtyUniverses[u] = true
			}
		}
	}
	s.lastChangeTime = time.Now()
	s.enterHighRate()
}

// IsEnabled returns whether Art-Net output is enabled.
func (s *Service) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// GetCurrentRate returns the current transmission rate in Hz.
func (s *Service) GetCurrentRate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRate
}

// Stop stops the transmit loop, sends a final blackout frame and closes the socket.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false

	if s.conn != nil {
		for u := range s.universes {
			s.universes[u] = make([]byte, UniverseSize)
			s.sequence++
			_, _ = s.conn.Write(artnet.BuildDMXPacket(u, s.universes[u], s.sequence))
		}
		_ = s.conn.Close()
		s.conn = nil
	}
	log.Info("🎭 DMX Service stopped")
}
