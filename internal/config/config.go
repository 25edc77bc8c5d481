// Package config provides configuration management for the LacyLights control server.
package config

import (
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config holds all configuration values for the server.
type Config struct {
	// Server configuration
	Port     string
	Env      string
	LogLevel string

	// Database configuration
	DatabaseURL string

	// DMX configuration
	DMXUniverseCount    int
	DMXRefreshRate      int           // Hz (active)
	DMXIdleRate         int           // Hz (idle)
	DMXHighRateDuration time.Duration // Duration to stay in high rate after changes
	DMXVerifyWrites     bool          // Read back every control write

	// Art-Net configuration
	ArtNetEnabled   bool
	ArtNetPort      int
	ArtNetBroadcast string

	// Control surface
	ControlUniverse       int // 1-based universe driven by the dispatcher
	CapabilityMinFixtures int // Fixtures that must share a control before it is offered

	// Patch file
	PatchFile  string
	PatchWatch bool

	// Inputs
	MIDIInputPort   string // Port name, "*" for every port, empty to disable
	OSCListenAddr   string // Empty disables the OSC server
	OSCFeedbackHost string // Empty disables OSC feedback
	OSCFeedbackPort int

	// Learn
	LearnTimeout time.Duration
	LearnReset   time.Duration

	// Autopilot
	AutopilotTickHz int
	AutopilotCycle  time.Duration

	// CORS configuration
	CORSOrigin string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		// Server
		Port:     getEnv("PORT", "4000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", ""),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:./control.db"),

		// DMX
		DMXUniverseCount:    getEnvInt("DMX_UNIVERSE_COUNT", 1),
		DMXRefreshRate:      getEnvInt("DMX_REFRESH_RATE", 44),
		DMXIdleRate:         getEnvInt("DMX_IDLE_RATE", 1),
		DMXHighRateDuration: getEnvMillis("DMX_HIGH_RATE_DURATION", 2000),
		DMXVerifyWrites:     getEnvBool("DMX_VERIFY_WRITES", false),

		// Art-Net
		ArtNetEnabled:   getEnvBool("ARTNET_ENABLED", true),
		ArtNetPort:      getEnvInt("ARTNET_PORT", 6454),
		ArtNetBroadcast: getEnv("ARTNET_BROADCAST", "auto"), // IPv4, interface name or auto

		// Control surface
		ControlUniverse:       getEnvInt("CONTROL_UNIVERSE", 1),
		CapabilityMinFixtures: getEnvInt("CAPABILITY_MIN_FIXTURES", 2),

		// Patch
		PatchFile:  getEnv("PATCH_FILE", ""),
		PatchWatch: getEnvBool("PATCH_WATCH", true),

		// Inputs
		MIDIInputPort:   getEnv("MIDI_INPUT_PORT", ""),
		OSCListenAddr:   getEnv("OSC_LISTEN_ADDR", ":8000"),
		OSCFeedbackHost: getEnv("OSC_FEEDBACK_HOST", ""),
		OSCFeedbackPort: getEnvInt("OSC_FEEDBACK_PORT", 9000),

		// Learn
		LearnTimeout: getEnvMillis("LEARN_TIMEOUT_MS", 30000),
		LearnReset:   getEnvMillis("LEARN_RESET_MS", 3000),

		// Autopilot
		AutopilotTickHz: getEnvInt("AUTOPILOT_TICK_HZ", 30),
		AutopilotCycle:  getEnvMillis("AUTOPILOT_CYCLE_MS", 8000),

		// CORS
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Level returns the configured log level. Without LOG_LEVEL, development logs at
// debug and everything else at info.
func (c *Config) Level() log.Level {
	if c.LogLevel != "" {
		if lvl, err := log.ParseLevel(c.LogLevel); err == nil {
			return lvl
		}
	}
	if c.IsDevelopment() {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvMillis reads a millisecond count as a duration.
func getEnvMillis(key string, defaultMs int) time.Duration {
	return time.Duration(getEnvInt(key, defaultMs)) * time.Millisecond
}
