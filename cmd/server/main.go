// Package main is the entry point for the LacyLights control server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver

	"github.com/bbernstein/lacylights-control/internal/api"
	"github.com/bbernstein/lacylights-control/internal/config"
	"github.com/bbernstein/lacylights-control/internal/database"
	"github.com/bbernstein/lacylights-control/internal/database/repositories"
	"github.com/bbernstein/lacylights-control/internal/services/binding"
	"github.com/bbernstein/lacylights-control/internal/services/catalog"
	"github.com/bbernstein/lacylights-control/internal/services/control"
	"github.com/bbernstein/lacylights-control/internal/services/dmx"
	"github.com/bbernstein/lacylights-control/internal/services/input"
	"github.com/bbernstein/lacylights-control/internal/services/midiinput"
	"github.com/bbernstein/lacylights-control/internal/services/network"
	"github.com/bbernstein/lacylights-control/internal/services/oscinput"
	"github.com/bbernstein/lacylights-control/internal/services/patch"
	"github.com/bbernstein/lacylights-control/internal/services/pubsub"
	"github.com/bbernstein/lacylights-control/internal/services/router"
	"github.com/bbernstein/lacylights-control/internal/services/selection"
	"github.com/bbernstein/lacylights-control/internal/services/track"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var startedAt = time.Now()

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment variables")
	}

	cfg := config.Load()
	log.SetLevel(cfg.Level())

	printBanner(cfg)

	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 5,
		MaxOpenConn: 10,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	log.Info("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	if err := migrateLegacyMappings(db); err != nil {
		log.Warnf("⚠️ Legacy mapping import failed: %v", err)
	}
	log.Info("Database migrations complete")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fixtureRepo := repositories.NewFixtureRepository(db)
	bindingRepo := repositories.NewBindingRepository(db)
	settingRepo := repositories.NewSettingRepository(db)

	ps := pubsub.New()

	// Catalog
	store := catalog.NewStore()
	store.OnChange(func() {
		fixtures, groups := store.Snapshot()
		ps.PublishAll(pubsub.TopicCatalog, map[string]int{"fixtures": len(fixtures), "groups": len(groups)})
	})

	var importer *patch.Importer
	if cfg.PatchFile != "" {
		importer = patch.NewImporter(fixtureRepo, func() {
			if err := store.Reload(ctx, fixtureRepo); err != nil {
				log.Errorf("❌ Catalog reload failed: %v", err)
			}
		})
		if err := importer.Import(ctx, cfg.PatchFile); err != nil {
			log.Warnf("⚠️ Patch import failed: %v", err)
		}
	}
	if err := store.Reload(ctx, fixtureRepo); err != nil {
		log.Errorf("❌ Failed to load catalog: %v", err)
	}
	if importer != nil && cfg.PatchWatch {
		go func() {
			if err := importer.Watch(ctx, cfg.PatchFile, patch.DefaultDebounce); err != nil {
				log.Warnf("⚠️ Patch watcher stopped: %v", err)
			}
		}()
	}

	// DMX output
	cands, err := network.Candidates()
	if err != nil {
		log.Warnf("⚠️ %v", err)
	}
	broadcast, err := network.ResolveBroadcast(cfg.ArtNetBroadcast, cands)
	if err != nil {
		log.Warnf("⚠️ %v, using %s", err, network.GlobalBroadcast)
		broadcast = network.GlobalBroadcast
	}
	dmxService := dmx.NewService(dmx.Config{
		Enabled:          cfg.ArtNetEnabled,
		BroadcastAddr:    broadcast,
		Port:             cfg.ArtNetPort,
		UniverseCount:    cfg.DMXUniverseCount,
		RefreshRateHz:    cfg.DMXRefreshRate,
		IdleRateHz:       cfg.DMXIdleRate,
		HighRateDuration: cfg.DMXHighRateDuration,
	})
	if err := dmxService.Initialize(); err != nil {
		// DMX may be disabled or the broadcast address unavailable
		log.Warnf("⚠️ DMX service initialization failed: %v", err)
	}
	output := dmx.NewOutput(dmxService, cfg.ControlUniverse)

	// Selection and dispatch
	sel := selection.NewState(store, selection.Resolver{MinCapabilityFixtures: cfg.CapabilityMinFixtures})
	sel.SetChangeCallback(func(s selection.Selection) {
		ps.PublishAll(pubsub.TopicSelection, s)
	})

	dispatcher := control.NewDispatcher(output, sel, ps)
	dispatcher.SetVerifyWrites(cfg.DMXVerifyWrites)

	// Bindings and learn
	registry := binding.NewRegistry(bindingRepo, ps)
	if err := registry.Load(ctx); err != nil {
		log.Errorf("❌ Failed to load bindings: %v", err)
	}
	learner := binding.NewLearner(registry, ps, cfg.LearnTimeout, cfg.LearnReset)

	// Autopilot
	player := track.NewPlayer(dispatcher, cfg.AutopilotTickHz, cfg.AutopilotCycle)
	player.SetStore(settingRepo)
	player.SetPublisher(ps)
	if err := player.Restore(ctx); err != nil {
		log.Warnf("⚠️ Failed to restore autopilot config: %v", err)
	}

	// Input routing
	rt := router.New(learner, registry, dispatcher)
	rt.RegisterBuiltins(sel, player)

	apiServer := api.NewServer(api.Services{
		Catalog:       store,
		CatalogSource: fixtureRepo,
		Selection:     sel,
		Dispatcher:    dispatcher,
		Bindings:      registry,
		Learner:       learner,
		Router:        rt,
		Autopilot:     player,
		PubSub:        ps,
	}, api.Options{
		CORSOrigins: corsOrigins(cfg.CORSOrigin),
		Debug:       cfg.IsDevelopment(),
	})
	rt.OnManualPanTilt(apiServer.TakeManualControl)

	var oscServer *oscinput.Server
	if cfg.OSCListenAddr != "" {
		oscServer = oscinput.NewServer(cfg.OSCListenAddr, func(ev input.OSCEvent) {
			rt.HandleOSC(ev)
		})
		if err := oscServer.Start(); err != nil {
			log.Warnf("⚠️ OSC input unavailable: %v", err)
			oscServer = nil
		}
	}
	if cfg.OSCFeedbackHost != "" {
		fb := oscinput.NewFeedback(cfg.OSCFeedbackHost, cfg.OSCFeedbackPort)
		dispatcher.OnDispatch(fb.OnDispatch)
		log.Infof("📤 OSC feedback to %s:%d", cfg.OSCFeedbackHost, cfg.OSCFeedbackPort)
	}

	var midiListener *midiinput.Listener
	if cfg.MIDIInputPort != "" {
		defer midi.CloseDriver()
		midiListener = midiinput.NewListener(func(ev input.MIDIEvent) {
			rt.HandleMIDI(ev)
		})
		if err := midiListener.Open(cfg.MIDIInputPort); err != nil {
			log.Warnf("⚠️ MIDI input unavailable: %v (ports: %v)", err, midiinput.Ports())
		}
	}

	// HTTP
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.IsDevelopment() {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(apiServer.CORS().Handler)

	r.Get("/health", healthCheckHandler)
	apiServer.Routes(r)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Infof("🚀 Server listening on http://localhost:%s", cfg.Port)
		log.Infof("🔌 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Cleanup services in reverse order
	cancel()
	if midiListener != nil {
		midiListener.Close()
	}
	if oscServer != nil {
		oscServer.Stop()
	}
	player.Stop()
	learner.CancelLearn()
	dmxService.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Info("Server stopped")
}

// corsOrigins merges the configured origin with the local development origins.
func corsOrigins(configured string) []string {
	origins := []string{"http://localhost:3000", "http://localhost:4000"}
	for _, o := range strings.Split(configured, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		dup := false
		for _, existing := range origins {
			if existing == o {
				dup = true
				break
			}
		}
		if !dup {
			origins = append(origins, o)
		}
	}
	return origins
}

// healthCheckHandler returns the server health status.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := fmt.Sprintf(`{
  "status": "ok",
  "timestamp": "%s",
  "version": "%s",
  "uptime": "%s"
}`, time.Now().UTC().Format(time.RFC3339), Version, time.Since(startedAt).Truncate(time.Second))

	_, _ = w.Write([]byte(response))
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  LacyLights Control Server")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  Art-Net:     %v\n", cfg.ArtNetEnabled)
	fmt.Printf("  Universe:    %d\n", cfg.ControlUniverse)
	if cfg.PatchFile != "" {
		fmt.Printf("  Patch:       %s\n", cfg.PatchFile)
	}
	if cfg.OSCListenAddr != "" {
		fmt.Printf("  OSC in:      %s\n", cfg.OSCListenAddr)
	}
	if cfg.MIDIInputPort != "" {
		fmt.Printf("  MIDI in:     %s\n", cfg.MIDIInputPort)
	}
	fmt.Println("============================================")
}
