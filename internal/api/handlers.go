package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/internal/services/binding"
	"github.com/bbernstein/lacylights-control/internal/services/channeltype"
	"github.com/bbernstein/lacylights-control/internal/services/control"
	"github.com/bbernstein/lacylights-control/internal/services/input"
	"github.com/bbernstein/lacylights-control/internal/services/selection"
	"github.com/bbernstein/lacylights-control/internal/services/track"
)

// Catalog

type catalogResponse struct {
	Fixtures []catalogFixture `json:"fixtures"`
	Groups   interface{}      `json:"groups"`
}

type catalogFixture struct {
	ID           string                      `json:"id"`
	Name         string                      `json:"name"`
	StartAddress int                         `json:"startAddress"`
	Channels     interface{}                 `json:"channels"`
	Controls     map[channeltype.Control]int `json:"controls"`
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	fixtures, groups := s.svc.Catalog.Snapshot()
	resp := catalogResponse{Fixtures: make([]catalogFixture, 0, len(fixtures)), Groups: groups}
	for _, f := range fixtures {
		resp.Fixtures = append(resp.Fixtures, catalogFixture{
			ID:           f.ID,
			Name:         f.Name,
			StartAddress: f.StartAddress,
			Channels:     f.Channels,
			Controls:     selection.ControlMap(f),
		})
	}
	if groups == nil {
		resp.Groups = []struct{}{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) reloadCatalog(w http.ResponseWriter, r *http.Request) {
	if s.svc.CatalogSource == nil {
		writeError(w, http.StatusNotImplemented, "catalog reload is not configured")
		return
	}
	if err := s.svc.Catalog.Reload(r.Context(), s.svc.CatalogSource); err != nil {
		log.Errorf("❌ Catalog reload failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.getCatalog(w, r)
}

// Selection

func (s *Server) getSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Selection.Get())
}

func (s *Server) putSelection(w http.ResponseWriter, r *http.Request) {
	var sel selection.Selection
	if err := decode(r, &sel); err != nil {
		writeError(w, http.StatusBadRequest, "invalid selection: "+err.Error())
		return
	}
	s.svc.Selection.Set(sel)
	writeJSON(w, http.StatusOK, s.svc.Selection.Get())
}

func (s *Server) getCapabilities(w http.ResponseWriter, r *http.Request) {
	caps := s.svc.Selection.Capabilities()
	if caps == nil {
		caps = []selection.Capability{}
	}
	writeJSON(w, http.StatusOK, caps)
}

func (s *Server) getAffected(w http.ResponseWriter, r *http.Request) {
	affected := s.svc.Selection.Affected()
	if affected == nil {
		affected = []selection.AffectedFixture{}
	}
	writeJSON(w, http.StatusOK, affected)
}

// Control

type controlResponse struct {
	Control string `json:"control"`
	Writes  int    `json:"writes"`
}

func (s *Server) postControl(w http.ResponseWriter, r *http.Request) {
	var in control.Intent
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid control: "+err.Error())
		return
	}
	writes := s.dispatchManual(in)
	writeJSON(w, http.StatusOK, controlResponse{Control: in.Control, Writes: writes})
}

// dispatchManual dispatches an operator intent. Manual pan/tilt takes over from the autopilot.
func (s *Server) dispatchManual(in control.Intent) int {
	if c, ok := channeltype.Normalize(in.Control); ok && channeltype.IsPanTilt(c) {
		s.TakeManualControl()
	}
	return s.svc.Dispatcher.DispatchIntent(in)
}

type xyResponse struct {
	Pan    int `json:"pan"`
	Tilt   int `json:"tilt"`
	Writes int `json:"writes"`
}

// postXY maps an XY pad position in percent to pan and tilt. Y grows downwards on the pad.
func (s *Server) postXY(w http.ResponseWriter, r *http.Request) {
	var pt track.Point
	if err := decode(r, &pt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid point: "+err.Error())
		return
	}
	s.TakeManualControl()

	pan, tilt := track.ToDMX(pt)
	writes := s.svc.Dispatcher.Dispatch(string(channeltype.Pan), float64(pan))
	writes += s.svc.Dispatcher.Dispatch(string(channeltype.Tilt), float64(tilt))
	writeJSON(w, http.StatusOK, xyResponse{Pan: int(pan), Tilt: int(tilt), Writes: writes})
}

func (s *Server) getActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Router.Actions())
}

func (s *Server) postAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.svc.Router.Trigger(id) {
		writeError(w, http.StatusNotFound, "unknown action: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"action": id})
}

// Bindings

func (s *Server) listBindings(w http.ResponseWriter, r *http.Request) {
	all := s.svc.Bindings.All()
	if all == nil {
		all = []binding.Binding{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) getBinding(w http.ResponseWriter, r *http.Request) {
	b, ok := s.svc.Bindings.Get(chi.URLParam(r, "controlID"))
	if !ok {
		writeError(w, http.StatusNotFound, "binding not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) putBinding(w http.ResponseWriter, r *http.Request) {
	b := binding.Binding{MaxValue: 255}
	if err := decode(r, &b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid binding: "+err.Error())
		return
	}
	b.ControlID = chi.URLParam(r, "controlID")
	if strings.TrimSpace(b.ControlID) == "" {
		writeError(w, http.StatusBadRequest, "control id is required")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Bindings.Set(b))
}

func (s *Server) deleteBinding(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Bindings.Remove(chi.URLParam(r, "controlID")) {
		writeError(w, http.StatusNotFound, "binding not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearBindings(w http.ResponseWriter, r *http.Request) {
	s.svc.Bindings.Clear()
	w.WriteHeader(http.StatusNoContent)
}

type rangeRequest struct {
	MinValue int `json:"minValue"`
	MaxValue int `json:"maxValue"`
}

func (s *Server) putBindingRange(w http.ResponseWriter, r *http.Request) {
	req := rangeRequest{MaxValue: 255}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid range: "+err.Error())
		return
	}
	b, ok := s.svc.Bindings.SetRange(chi.URLParam(r, "controlID"), req.MinValue, req.MaxValue)
	if !ok {
		writeError(w, http.StatusNotFound, "binding not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type oscRequest struct {
	Address string `json:"address"`
}

func (s *Server) putBindingOSC(w http.ResponseWriter, r *http.Request) {
	var req oscRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid OSC address: "+err.Error())
		return
	}
	if req.Address != "" && !strings.HasPrefix(req.Address, "/") {
		writeError(w, http.StatusBadRequest, "OSC address must start with /")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Bindings.SetOSCAddress(chi.URLParam(r, "controlID"), req.Address))
}

// Learn

type learnRequest struct {
	ControlID string `json:"controlId"`
}

func (s *Server) getLearn(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Learner.Status())
}

func (s *Server) startLearn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid learn request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.ControlID) == "" {
		writeError(w, http.StatusBadRequest, "controlId is required")
		return
	}
	writeJSON(w, http.StatusAccepted, s.svc.Learner.StartLearn(strings.TrimSpace(req.ControlID)))
}

func (s *Server) cancelLearn(w http.ResponseWriter, r *http.Request) {
	s.svc.Learner.CancelLearn()
	writeJSON(w, http.StatusOK, s.svc.Learner.Status())
}

// Autopilot

type startRequest struct {
	Config  *track.Config `json:"config"`
	CycleMs int64         `json:"cycleMs"`
}

func (s *Server) getAutopilot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Autopilot.State())
}

func (s *Server) putAutopilotConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.decodeTrack(w, r)
	if !ok {
		return
	}
	s.svc.Autopilot.SetConfig(cfg)
	writeJSON(w, http.StatusOK, s.svc.Autopilot.State())
}

func (s *Server) startAutopilot(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid autopilot request: "+err.Error())
		return
	}
	cfg := s.svc.Autopilot.State().Config
	if req.Config != nil {
		cfg = *req.Config
	}
	s.svc.Autopilot.Start(cfg, time.Duration(req.CycleMs)*time.Millisecond)
	writeJSON(w, http.StatusOK, s.svc.Autopilot.State())
}

func (s *Server) stopAutopilot(w http.ResponseWriter, r *http.Request) {
	s.svc.Autopilot.Stop()
	writeJSON(w, http.StatusOK, s.svc.Autopilot.State())
}

func (s *Server) applyAutopilot(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.decodeTrack(w, r)
	if !ok {
		return
	}
	pt := s.svc.Autopilot.Apply(cfg)
	pan, tilt := track.ToDMX(pt)
	writeJSON(w, http.StatusOK, map[string]interface{}{"point": pt, "pan": pan, "tilt": tilt})
}

// decodeTrack reads a track configuration on top of the current one.
func (s *Server) decodeTrack(w http.ResponseWriter, r *http.Request) (track.Config, bool) {
	cfg := s.svc.Autopilot.State().Config
	if err := decode(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid track config: "+err.Error())
		return track.Config{}, false
	}
	return cfg, true
}

// Input injection

func (s *Server) postMIDI(w http.ResponseWriter, r *http.Request) {
	var ev input.MIDIEvent
	if err := decode(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid MIDI event: "+err.Error())
		return
	}
	if !validMIDIType(ev.Type) {
		writeError(w, http.StatusBadRequest, "unknown MIDI event type: "+string(ev.Type))
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Router.HandleMIDI(ev))
}

func (s *Server) postOSC(w http.ResponseWriter, r *http.Request) {
	var ev input.OSCEvent
	if err := decode(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid OSC event: "+err.Error())
		return
	}
	if ev.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Router.HandleOSC(ev))
}

func validMIDIType(t input.MIDIType) bool {
	switch t {
	case input.ControlChange, input.NoteOn, input.NoteOff:
		return true
	}
	return false
}
