package dmx

// Output exposes one universe of a Service as a flat 0-based address space.
type Output struct {
	service  *Service
	universe int
}

// NewOutput binds an Output to a 1-based universe of s.
func NewOutput(s *Service, universe int) *Output {
	return &Output{service: s, universe: universe}
}

// Universe returns the bound universe.
func (o *Output) Universe() int { return o.universe }

// SetDmxChannelValue writes value at the 0-based address.
func (o *Output) SetDmxChannelValue(address int, value byte) {
	o.service.SetChannelValue(o.universe, address+1, value)
}

// GetDmxChannelValue reads the value at the 0-based address.
func (o *Output) GetDmxChannelValue(address int) byte {
	return o.service.GetChannelValue(o.universe, address+1)
}
