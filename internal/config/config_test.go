package config

import (
	"os"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			_ = os.Unsetenv(k)
			t.Cleanup(func() { _ = os.Setenv(k, v) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t,
		"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL",
		"DMX_UNIVERSE_COUNT", "DMX_REFRESH_RATE", "DMX_IDLE_RATE", "DMX_HIGH_RATE_DURATION", "DMX_VERIFY_WRITES",
		"ARTNET_ENABLED", "ARTNET_PORT", "ARTNET_BROADCAST",
		"CONTROL_UNIVERSE", "CAPABILITY_MIN_FIXTURES", "PATCH_FILE", "PATCH_WATCH",
		"MIDI_INPUT_PORT", "OSC_LISTEN_ADDR", "OSC_FEEDBACK_HOST", "OSC_FEEDBACK_PORT",
		"LEARN_TIMEOUT_MS", "LEARN_RESET_MS", "AUTOPILOT_TICK_HZ", "AUTOPILOT_CYCLE_MS", "CORS_ORIGIN",
	)

	cfg := Load()

	if cfg.Port != "4000" {
		t.Errorf("Expected default Port '4000', got '%s'", cfg.Port)
	}
	if cfg.DatabaseURL != "file:./control.db" {
		t.Errorf("Expected default DatabaseURL, got '%s'", cfg.DatabaseURL)
	}
	if cfg.ControlUniverse != 1 {
		t.Errorf("Expected ControlUniverse 1, got %d", cfg.ControlUniverse)
	}
	if cfg.CapabilityMinFixtures != 2 {
		t.Errorf("Expected CapabilityMinFixtures 2, got %d", cfg.CapabilityMinFixtures)
	}
	if cfg.LearnTimeout != 30*time.Second {
		t.Errorf("Expected LearnTimeout 30s, got %v", cfg.LearnTimeout)
	}
	if cfg.LearnReset != 3*time.Second {
		t.Errorf("Expected LearnReset 3s, got %v", cfg.LearnReset)
	}
	if cfg.AutopilotTickHz != 30 || cfg.AutopilotCycle != 8*time.Second {
		t.Errorf("Unexpected autopilot defaults: %d Hz, %v", cfg.AutopilotTickHz, cfg.AutopilotCycle)
	}
	if cfg.OSCListenAddr != ":8000" || cfg.OSCFeedbackHost != "" || cfg.OSCFeedbackPort != 9000 {
		t.Errorf("Unexpected OSC defaults: %s %s %d", cfg.OSCListenAddr, cfg.OSCFeedbackHost, cfg.OSCFeedbackPort)
	}
	if cfg.MIDIInputPort != "" || cfg.PatchFile != "" || !cfg.PatchWatch {
		t.Errorf("Unexpected input defaults: %+v", cfg)
	}
	if !cfg.ArtNetEnabled || cfg.ArtNetPort != 6454 || cfg.ArtNetBroadcast != "auto" || cfg.DMXVerifyWrites {
		t.Errorf("Unexpected DMX defaults: %+v", cfg)
	}
}

func TestLoad_CustomEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DATABASE_URL", "file:./prod.db")
	t.Setenv("DMX_UNIVERSE_COUNT", "4")
	t.Setenv("DMX_REFRESH_RATE", "30")
	t.Setenv("DMX_IDLE_RATE", "5")
	t.Setenv("DMX_HIGH_RATE_DURATION", "3000")
	t.Setenv("DMX_VERIFY_WRITES", "true")
	t.Setenv("ARTNET_ENABLED", "false")
	t.Setenv("ARTNET_PORT", "6455")
	t.Setenv("ARTNET_BROADCAST", "192.168.1.255")
	t.Setenv("CONTROL_UNIVERSE", "3")
	t.Setenv("CAPABILITY_MIN_FIXTURES", "1")
	t.Setenv("PATCH_FILE", "/etc/lacylights/patch.yaml")
	t.Setenv("PATCH_WATCH", "false")
	t.Setenv("MIDI_INPUT_PORT", "*")
	t.Setenv("OSC_LISTEN_ADDR", "")
	t.Setenv("OSC_FEEDBACK_HOST", "10.0.0.5")
	t.Setenv("OSC_FEEDBACK_PORT", "9001")
	t.Setenv("LEARN_TIMEOUT_MS", "5000")
	t.Setenv("LEARN_RESET_MS", "500")
	t.Setenv("AUTOPILOT_TICK_HZ", "60")
	t.Setenv("AUTOPILOT_CYCLE_MS", "4000")
	t.Setenv("CORS_ORIGIN", "http://example.com")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Expected Port to be '8080', got '%s'", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("Expected Env to be 'production', got '%s'", cfg.Env)
	}
	if cfg.DatabaseURL != "file:./prod.db" {
		t.Errorf("Expected DatabaseURL 'file:./prod.db', got '%s'", cfg.DatabaseURL)
	}
	if cfg.DMXUniverseCount != 4 || cfg.DMXRefreshRate != 30 || cfg.DMXIdleRate != 5 {
		t.Errorf("Unexpected DMX rates: %+v", cfg)
	}
	if cfg.DMXHighRateDuration != 3*time.Second {
		t.Errorf("Expected DMXHighRateDuration 3s, got %v", cfg.DMXHighRateDuration)
	}
	if !cfg.DMXVerifyWrites {
		t.Error("Expected DMXVerifyWrites to be true")
	}
	if cfg.ArtNetEnabled || cfg.ArtNetPort != 6455 || cfg.ArtNetBroadcast != "192.168.1.255" {
		t.Errorf("Unexpected Art-Net config: %+v", cfg)
	}
	if cfg.ControlUniverse != 3 || cfg.CapabilityMinFixtures != 1 {
		t.Errorf("Unexpected control config: %+v", cfg)
	}
	if cfg.PatchFile != "/etc/lacylights/patch.yaml" || cfg.PatchWatch {
		t.Errorf("Unexpected patch config: %+v", cfg)
	}
	if cfg.MIDIInputPort != "*" {
		t.Errorf("Expected MIDIInputPort '*', got '%s'", cfg.MIDIInputPort)
	}
	if cfg.OSCListenAddr != "" {
		t.Errorf("Expected empty OSCListenAddr to disable the server, got '%s'", cfg.OSCListenAddr)
	}
	if cfg.OSCFeedbackHost != "10.0.0.5" || cfg.OSCFeedbackPort != 9001 {
		t.Errorf("Unexpected OSC feedback config: %s:%d", cfg.OSCFeedbackHost, cfg.OSCFeedbackPort)
	}
	if cfg.LearnTimeout != 5*time.Second || cfg.LearnReset != 500*time.Millisecond {
		t.Errorf("Unexpected learn durations: %v %v", cfg.LearnTimeout, cfg.LearnReset)
	}
	if cfg.AutopilotTickHz != 60 || cfg.AutopilotCycle != 4*time.Second {
		t.Errorf("Unexpected autopilot config: %d %v", cfg.AutopilotTickHz, cfg.AutopilotCycle)
	}
	if cfg.CORSOrigin != "http://example.com" {
		t.Errorf("Expected CORSOrigin 'http://example.com', got '%s'", cfg.CORSOrigin)
	}
	if cfg.Level() != log.WarnLevel {
		t.Errorf("Expected warn level, got %v", cfg.Level())
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected log.Level
	}{
		{"explicit", Config{LogLevel: "error", Env: "development"}, log.ErrorLevel},
		{"development default", Config{Env: "development"}, log.DebugLevel},
		{"production default", Config{Env: "production"}, log.InfoLevel},
		{"invalid falls back", Config{LogLevel: "loud", Env: "production"}, log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Level(); got != tt.expected {
				t.Errorf("Level() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetEnvMillis(t *testing.T) {
	t.Setenv("TEST_MILLIS", "250")
	if got := getEnvMillis("TEST_MILLIS", 10); got != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", got)
	}
	if got := getEnvMillis("NON_EXISTING_MILLIS_12345_UNIQUE", 10); got != 10*time.Millisecond {
		t.Errorf("Expected default 10ms, got %v", got)
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		env      string
		expected bool
	}{
		{"development", true},
		{"production", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &Config{Env: tt.env}
			if got := cfg.IsDevelopment(); got != tt.expected {
				t.Errorf("IsDevelopment() = %v, want %v for env '%s'", got, tt.expected, tt.env)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	tests := []struct {
		env      string
		expected bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &Config{Env: tt.env}
			if got := cfg.IsProduction(); got != tt.expected {
				t.Errorf("IsProduction() = %v, want %v for env '%s'", got, tt.expected, tt.env)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	// Test with existing env var
	t.Setenv("TEST_GET_ENV", "custom_value")

	result := getEnv("TEST_GET_ENV", "default")
	if result != "custom_value" {
		t.Errorf("Expected 'custom_value', got '%s'", result)
	}

	// Test with non-existing env var (use a unique key that won't be set)
	result = getEnv("NON_EXISTING_VAR_12345_UNIQUE", "default_value")
	if result != "default_value" {
		t.Errorf("Expected 'default_value', got '%s'", result)
	}
}

func TestGetEnvInt(t *testing.T) {
	// Test with valid int
	t.Setenv("TEST_INT_VAR", "42")

	result := getEnvInt("TEST_INT_VAR", 10)
	if result != 42 {
		t.Errorf("Expected 42, got %d", result)
	}

	// Test with invalid int (should return default)
	t.Setenv("TEST_INVALID_INT", "not_a_number")

	result = getEnvInt("TEST_INVALID_INT", 10)
	if result != 10 {
		t.Errorf("Expected default 10 for invalid int, got %d", result)
	}

	// Test with non-existing env var
	result = getEnvInt("NON_EXISTING_INT_VAR_12345_UNIQUE", 100)
	if result != 100 {
		t.Errorf("Expected default 100, got %d", result)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		expected     bool
		setEnv       bool
	}{
		{"true_string", "true", false, true, true},
		{"false_string", "false", true, false, true},
		{"1_string", "1", false, true, true},
		{"0_string", "0", true, false, true},
		{"invalid_string_returns_default", "invalid", true, true, true},
		{"non_existing_returns_default_true", "", true, true, false},
		{"non_existing_returns_default_false", "", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Use a unique env key for each test
			envKey := "TEST_BOOL_VAR_" + tt.name + "_UNIQUE"
			if tt.setEnv {
				t.Setenv(envKey, tt.envValue)
			}

			result := getEnvBool(envKey, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("getEnvBool(%s, %v) = %v, want %v", envKey, tt.defaultValue, result, tt.expected)
			}
		})
	}
}

func TestGetEnvInt_ZeroValue(t *testing.T) {
	t.Setenv("TEST_ZERO_INT", "0")

	result := getEnvInt("TEST_ZERO_INT", 10)
	if result != 0 {
		t.Errorf("Expected 0, got %d", result)
	}
}

func TestGetEnvBool_VariousTrue(t *testing.T) {
	trueValues := []string{"true", "TRUE", "True", "1", "t", "T"}
	for _, val := range trueValues {
		t.Run(val, func(t *testing.T) {
			envKey := "TEST_BOOL_TRUE_" + val
			t.Setenv(envKey, val)
			result := getEnvBool(envKey, false)
			if !result {
				t.Errorf("getEnvBool with value '%s' should be true", val)
			}
		})
	}
}

func TestGetEnvBool_VariousFalse(t *testing.T) {
	falseValues := []string{"false", "FALSE", "False", "0", "f", "F"}
	for _, val := range falseValues {
		t.Run(val, func(t *testing.T) {
			envKey := "TEST_BOOL_FALSE_" + val
			t.Setenv(envKey, val)
			result := getEnvBool(envKey, true)
			if result {
				t.Errorf("getEnvBool with value '%s' should be false", val)
			}
		})
	}
}

func TestConfig_StructFields(t *testing.T) {
	cfg := &Config{
		Port:                  "4000",
		Env:                   "test",
		DatabaseURL:           "test.db",
		DMXUniverseCount:      1,
		DMXRefreshRate:        44,
		DMXIdleRate:           1,
		DMXHighRateDuration:   time.Second,
		ArtNetEnabled:         true,
		ArtNetPort:            6454,
		ArtNetBroadcast:       "255.255.255.255",
		ControlUniverse:       1,
		CapabilityMinFixtures: 2,
		CORSOrigin:            "http://localhost",
	}

	if cfg.Port != "4000" {
		t.Error("Port field access failed")
	}
	if cfg.ControlUniverse != 1 {
		t.Error("ControlUniverse field access failed")
	}
	if cfg.ArtNetEnabled != true {
		t.Error("ArtNetEnabled field access failed")
	}
}
