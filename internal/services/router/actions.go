package router

// Built-in action ids.
const (
	ActionFixtureNext     = "fixture_next"
	ActionFixturePrev     = "fixture_prev"
	ActionFixturePrevious = "fixture_previous"
	ActionGroupNext       = "group_next"
	ActionGroupPrev       = "group_prev"
	ActionGroupPrevious   = "group_previous"
	ActionAutopilotToggle = "autopilot_toggle"
)

// Navigator steps the selection through fixtures and groups.
type Navigator interface {
	NextFixture()
	PrevFixture()
	NextGroup()
	PrevGroup()
}

// Toggler switches the autopilot on and off.
type Toggler interface {
	Toggle() bool
}

// RegisterBuiltins registers the navigation and autopilot actions. Either argument may be nil.
func (r *Router) RegisterBuiltins(nav Navigator, autopilot Toggler) {
	if nav != nil {
		r.RegisterAction(ActionFixtureNext, nav.NextFixture)
		r.RegisterAction(ActionFixturePrev, nav.PrevFixture)
		r.RegisterAction(ActionFixturePrevious, nav.PrevFixture)
		r.RegisterAction(ActionGroupNext, nav.NextGroup)
		r.RegisterAction(ActionGroupPrev, nav.PrevGroup)
		r.RegisterAction(ActionGroupPrevious, nav.PrevGroup)
	}
	if autopilot != nil {
		r.RegisterAction(ActionAutopilotToggle, func() { autopilot.Toggle() })
	}
}

// Actions lists the registered action ids.
func (r *Router) Actions() []string {
	r.actionsMu.RLock()
	defer r.actionsMu.RUnlock()
	out := make([]string, 0, len(r.actions))
	for id := range r.actions {
		out = append(out, id)
	}
	return out
}

// Trigger fires a registered action directly, as from a UI button.
func (r *Router) Trigger(id string) bool {
	fn, ok := r.action(id)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fire(id, fn)
	return true
}
