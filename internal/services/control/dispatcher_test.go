package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/lacylights-control/internal/services/catalog"
	"github.com/bbernstein/lacylights-control/internal/services/channeltype"
	"github.com/bbernstein/lacylights-control/internal/services/pubsub"
	"github.com/bbernstein/lacylights-control/internal/services/selection"
)

type write struct {
	addr  int
	value byte
}

type fakeWriter struct {
	writes []write
	values map[int]byte
	stuck  bool
}

func newFakeWriter() *fakeWriter { return &fakeWriter{values: make(map[int]byte)} }

func (w *fakeWriter) SetDmxChannelValue(addr int, v byte) {
	w.writes = append(w.writes, write{addr, v})
	if !w.stuck {
		w.values[addr] = v
	}
}

func (w *fakeWriter) GetDmxChannelValue(addr int) byte { return w.values[addr] }

type staticSelector []selection.AffectedFixture

func (s staticSelector) Affected() []selection.AffectedFixture { return s }

func fixture(id string, start int, types ...string) catalog.Fixture {
	f := catalog.Fixture{ID: id, Name: id, StartAddress: start}
	for _, t := range types {
		f.Channels = append(f.Channels, catalog.Channel{Type: t})
	}
	return f
}

func affected(fixtures ...catalog.Fixture) staticSelector {
	var out staticSelector
	for _, f := range fixtures {
		out = append(out, selection.AffectedFixture{Fixture: f, Channels: selection.ControlMap(f)})
	}
	return out
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in   float64
		want byte
	}{
		{-10, 0},
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{127.5, 128},
		{254.4, 254},
		{254.5, 255},
		{300, 255},
		{math.Inf(1), 255},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clamp(tt.in), "Clamp(%v)", tt.in)
	}
}

func TestDispatch_ClampsPan(t *testing.T) {
	w := newFakeWriter()
	f1 := fixture("F1", 1, "dimmer", "pan", "tilt", "red", "green", "blue")
	d := NewDispatcher(w, affected(f1), nil)

	n := d.Dispatch("pan", 300)

	assert.Equal(t, 1, n)
	assert.Equal(t, []write{{addr: 1, value: 255}}, w.writes)
}

func TestDispatch_SkipsFixturesWithoutControl(t *testing.T) {
	w := newFakeWriter()
	d := NewDispatcher(w, affected(
		fixture("a", 1, "pan", "tilt"),
		fixture("b", 10, "dimmer"),
		fixture("c", 20, "Pan"),
	), nil)

	n := d.Dispatch("pan", 42)

	assert.Equal(t, 2, n)
	assert.Equal(t, []write{{0, 42}, {19, 42}}, w.writes, "catalog order, one write per fixture")
}

func TestDispatch_NormalizesControlID(t *testing.T) {
	w := newFakeWriter()
	d := NewDispatcher(w, affected(fixture("a", 1, "Intensity")), nil)

	assert.Equal(t, 1, d.Dispatch("master", 10))
	assert.Equal(t, 1, d.Dispatch("DIMMER", 11))
	assert.Equal(t, 0, d.Dispatch("nonsense", 12))
	assert.Len(t, w.writes, 2)
}

func TestDispatch_EmptySelectionIsNoOp(t *testing.T) {
	w := newFakeWriter()
	ps := pubsub.New()
	sub := ps.Subscribe(pubsub.TopicControlDispatched, "", 1)
	d := NewDispatcher(w, staticSelector(nil), ps)

	assert.Equal(t, 0, d.Dispatch("dimmer", 100))
	assert.Empty(t, w.writes)
	assert.Len(t, sub.Channel, 0)
}

func TestDispatch_WritesOnlyByteRange(t *testing.T) {
	w := newFakeWriter()
	d := NewDispatcher(w, affected(fixture("a", 1, "dimmer")), nil)

	for _, v := range []float64{-1e9, -0.5, 0, 1.49, 99.5, 255, 255.4, 1e9, math.NaN()} {
		d.Dispatch("dimmer", v)
	}
	assert.Equal(t, []byte{0, 0, 0, 1, 100, 255, 255, 255, 0}, values(w.writes))
}

func values(ws []write) []byte {
	out := make([]byte, len(ws))
	for i, w := range ws {
		out[i] = w.value
	}
	return out
}

func TestDispatch_PublishesAndNotifies(t *testing.T) {
	ps := pubsub.New()
	sub := ps.Subscribe(pubsub.TopicControlDispatched, "tilt", 4)
	d := NewDispatcher(newFakeWriter(), affected(fixture("a", 1, "pan", "tilt")), ps)

	var got []Result
	d.OnDispatch(func(r Result) { got = append(got, r) })

	d.Dispatch("pan", 1)
	d.Dispatch("tilt", 2.6)

	require.Len(t, got, 2)
	assert.Equal(t, Result{Control: channeltype.Tilt, Value: 3, Writes: 1}, got[1])

	require.Len(t, sub.Channel, 1, "filter by control id")
	ev := <-sub.Channel
	assert.Equal(t, got[1], ev.Data)
}

func TestDispatch_VerifyDoesNotChangeResult(t *testing.T) {
	w := newFakeWriter()
	w.stuck = true
	d := NewDispatcher(w, affected(fixture("a", 1, "dimmer")), nil)
	d.SetVerifyWrites(true)

	assert.Equal(t, 1, d.Dispatch("dimmer", 200))
}

func TestHasControl(t *testing.T) {
	d := NewDispatcher(newFakeWriter(), affected(fixture("a", 1, "red", "green")), nil)

	assert.True(t, d.HasControl("r"))
	assert.False(t, d.HasControl("pan"))
	assert.False(t, d.HasControl("???"))
}

func TestDispatchIntent(t *testing.T) {
	w := newFakeWriter()
	d := NewDispatcher(w, affected(fixture("a", 5, "strobe")), nil)

	assert.Equal(t, 1, d.DispatchIntent(Intent{Control: "strobe", Value: 17}))
	assert.Equal(t, []write{{4, 17}}, w.writes)
}
