// Package api exposes the control engine over HTTP and WebSocket.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/bbernstein/lacylights-control/internal/services/binding"
	"github.com/bbernstein/lacylights-control/internal/services/catalog"
	"github.com/bbernstein/lacylights-control/internal/services/control"
	"github.com/bbernstein/lacylights-control/internal/services/pubsub"
	"github.com/bbernstein/lacylights-control/internal/services/router"
	"github.com/bbernstein/lacylights-control/internal/services/selection"
	"github.com/bbernstein/lacylights-control/internal/services/track"
)

// Services holds the engine components the API drives.
type Services struct {
	Catalog       *catalog.Store
	CatalogSource catalog.Source // optional, enables POST /api/catalog/reload
	Selection     *selection.State
	Dispatcher    *control.Dispatcher
	Bindings      *binding.Registry
	Learner       *binding.Learner
	Router        *router.Router
	Autopilot     *track.Player
	PubSub        *pubsub.PubSub
}

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins    []string
	Debug          bool
	RequestTimeout time.Duration
	PingInterval   time.Duration
}

// Server serves the REST and WebSocket API.
type Server struct {
	svc      Services
	opts     Options
	upgrader websocket.Upgrader
}

// NewServer creates a Server.
func NewServer(svc Services, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 10 * time.Second
	}
	return &Server{
		svc:  svc,
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for WebSocket
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))

		r.Get("/catalog", s.getCatalog)
		r.Post("/catalog/reload", s.reloadCatalog)

		r.Get("/selection", s.getSelection)
		r.Put("/selection", s.putSelection)
		r.Get("/capabilities", s.getCapabilities)
		r.Get("/affected", s.getAffected)

		r.Post("/control", s.postControl)
		r.Post("/xy", s.postXY)
		r.Get("/actions", s.getActions)
		r.Post("/actions/{id}", s.postAction)

		r.Get("/bindings", s.listBindings)
		r.Delete("/bindings", s.clearBindings)
		r.Get("/bindings/{controlID}", s.getBinding)
		r.Put("/bindings/{controlID}", s.putBinding)
		r.Delete("/bindings/{controlID}", s.deleteBinding)
		r.Put("/bindings/{controlID}/range", s.putBindingRange)
		r.Put("/bindings/{controlID}/osc", s.putBindingOSC)

		r.Get("/learn", s.getLearn)
		r.Post("/learn", s.startLearn)
		r.Delete("/learn", s.cancelLearn)

		r.Get("/autopilot", s.getAutopilot)
		r.Put("/autopilot/config", s.putAutopilotConfig)
		r.Post("/autopilot/start", s.startAutopilot)
		r.Post("/autopilot/stop", s.stopAutopilot)
		r.Post("/autopilot/apply", s.applyAutopilot)

		r.Post("/input/midi", s.postMIDI)
		r.Post("/input/osc", s.postOSC)
	})
}

// Handler returns a standalone router with the server's middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.CORS().Handler)
	s.Routes(r)
	return r
}

// CORS builds the CORS middleware.
func (s *Server) CORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		Debug:            s.opts.Debug,
	})
}

// TakeManualControl stops a running autopilot. It is the manual pan/tilt hook
// shared with the input router.
func (s *Server) TakeManualControl() {
	if s.svc.Autopilot != nil && s.svc.Autopilot.Enabled() {
		s.svc.Autopilot.Stop()
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
