package main

import (
	"bytes"
	"context"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/lacylights-control/internal/api"
	"github.com/bbernstein/lacylights-control/internal/services/binding"
	"github.com/bbernstein/lacylights-control/internal/services/input"
	"github.com/bbernstein/lacylights-control/internal/services/network"
	"github.com/bbernstein/lacylights-control/internal/services/router"
	"github.com/bbernstein/lacylights-control/pkg/artnet"
)

type countingDispatcher struct {
	mu    sync.Mutex
	calls map[string]float64
}

func (d *countingDispatcher) Dispatch(id string, v float64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[id] = v
	return 1
}

func testServer(t *testing.T) (*httptest.Server, *binding.Registry) {
	t.Helper()
	reg := binding.NewRegistry(nil, nil)
	rt := router.New(nil, reg, &countingDispatcher{calls: map[string]float64{}})
	srv := httptest.NewServer(api.NewServer(api.Services{Bindings: reg, Router: rt}, api.Options{}).Handler())
	t.Cleanup(srv.Close)
	return srv, reg
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNormalizeCmd(t *testing.T) {
	out, err := run(t, "normalize", "Red", "Pan Fine", "smoke machine")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "red")
	assert.Contains(t, lines[2], "finePan")
	assert.Contains(t, lines[3], `"smoke machine"`)
	assert.Contains(t, lines[3], "-")

	_, err = run(t, "normalize")
	assert.Error(t, err)
}

func TestNormalizeCmd_List(t *testing.T) {
	out, err := run(t, "normalize", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "CONTROL")
	assert.Contains(t, out, "intensity")
}

func TestTrackCmd(t *testing.T) {
	out, err := run(t, "track", "--shape", "circle", "--position", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "radius 25.00")
	assert.Contains(t, out, "x= 50.00 y= 25.00")
	assert.Contains(t, out, "pan=128 tilt=191")

	out, err = run(t, "track", "--shape", "square", "--steps", "4")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 5)

	_, err = run(t, "track", "--shape", "spiral")
	assert.Error(t, err)
}

func TestTrackCmd_CustomPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- {x: 10, y: 10}\n- {x: 90, y: 90}\n"), 0644))

	out, err := run(t, "track", "--shape", "custom", "--points", path)
	require.NoError(t, err)
	assert.Contains(t, out, "0.00%")

	_, err = run(t, "track", "--shape", "custom", "--points", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	r, err := parseRange("1-16")
	require.NoError(t, err)
	assert.Equal(t, channelRange{1, 16}, r)

	r, err = parseRange("7")
	require.NoError(t, err)
	assert.Equal(t, channelRange{7, 7}, r)

	for _, bad := range []string{"", "0-4", "10-2", "1-513", "a-b"} {
		_, err := parseRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseMIDIArgs(t *testing.T) {
	ev, err := parseMIDIArgs([]string{"cc", "7", "64"}, 1)
	require.NoError(t, err)
	assert.Equal(t, input.MIDIEvent{Type: input.ControlChange, Channel: 0, Controller: 7, Value: 64, Source: "lacyctl"}, ev)

	ev, err = parseMIDIArgs([]string{"noteon", "36", "127"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 9, ev.Channel)
	assert.Equal(t, 127, ev.Velocity)

	_, err = parseMIDIArgs([]string{"pitchbend", "1", "1"}, 1)
	assert.Error(t, err)
	_, err = parseMIDIArgs([]string{"cc", "128", "1"}, 1)
	assert.Error(t, err)
	_, err = parseMIDIArgs([]string{"cc", "1", "1"}, 17)
	assert.Error(t, err)
}

func TestBindingsImportListExport(t *testing.T) {
	srv, reg := testServer(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bindings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`bindings:
  - controlId: dimmer
    channel: 0
    controller: 7
    minValue: 0
    maxValue: 255
  - controlId: fixture_next
    channel: 9
    note: 36
    minValue: 0
    maxValue: 255
    oscAddress: /next
`), 0644))

	out, err := run(t, "--server", srv.URL, "bindings", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 bindings")
	assert.Len(t, reg.All(), 2)

	out, err = run(t, "--server", srv.URL, "bindings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ch1 CC7")
	assert.Contains(t, out, "ch10 note36")
	assert.Contains(t, out, "/next")

	exported := filepath.Join(dir, "export.yaml")
	_, err = run(t, "--server", srv.URL, "bindings", "export", exported)
	require.NoError(t, err)
	list, err := readBindingsFile(exported)
	require.NoError(t, err)
	assert.Equal(t, reg.All(), list)

	_, err = run(t, "--server", srv.URL, "bindings", "rm", "dimmer")
	require.NoError(t, err)
	_, ok := reg.Get("dimmer")
	assert.False(t, ok)

	_, err = run(t, "--server", srv.URL, "bindings", "rm", "dimmer")
	assert.ErrorContains(t, err, "binding not found")
}

func TestBindingsImport_Replace(t *testing.T) {
	srv, reg := testServer(t)
	reg.Set(binding.Binding{ControlID: "zoom", MaxValue: 255})

	path := filepath.Join(t.TempDir(), "b.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bindings:\n  - controlId: pan\n    maxValue: 255\n"), 0644))

	_, err := run(t, "--server", srv.URL, "bindings", "import", "--replace", path)
	require.NoError(t, err)

	_, ok := reg.Get("zoom")
	assert.False(t, ok)
	_, ok = reg.Get("pan")
	assert.True(t, ok)
}

func TestReadBindingsFile_MissingControlID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bindings:\n  - channel: 1\n"), 0644))

	_, err := readBindingsFile(path)
	assert.ErrorContains(t, err, "no controlId")
}

func TestSendCmd(t *testing.T) {
	srv, reg := testServer(t)
	controller := 7
	reg.Set(binding.Binding{ControlID: "dimmer", Controller: &controller, MaxValue: 255, OSCAddress: "/dimmer"})

	out, err := run(t, "--server", srv.URL, "send", "midi", "cc", "7", "64")
	require.NoError(t, err)
	assert.Contains(t, out, "dimmer=129")

	out, err = run(t, "--server", srv.URL, "send", "osc", "/dimmer", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "dimmer=255")

	out, err = run(t, "--server", srv.URL, "send", "osc", "/unbound")
	require.NoError(t, err)
	assert.Contains(t, out, "no binding")
}

func TestMonitor(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	done := make(chan monitorStats, 1)
	go func() {
		stats, _ := monitor(ctx, conn, &out, 1, channelRange{1, 4}, true)
		done <- stats
	}()

	sender, err := net.Dial("udp4", conn.LocalAddr().String())
	require.NoError(t, err)
	defer func() { _ = sender.Close() }()

	frame := []byte{255, 128, 0, 10}
	send := func(p []byte) {
		_, err := sender.Write(p)
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
	}
	send(artnet.BuildDMXPacket(1, frame, 1))
	send(artnet.BuildDMXPacket(1, frame, 2)) // unchanged, suppressed
	send(artnet.BuildDMXPacket(2, frame, 3)) // other universe
	send([]byte("not art-net"))

	cancel()
	var stats monitorStats
	select {
	case stats = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}

	assert.Equal(t, uint64(2), stats.packets)
	assert.Equal(t, uint64(2), stats.ignored)
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
	assert.Contains(t, out.String(), "1:255 2:128 3:0 4:10")
	assert.Contains(t, stats.String(), "2 packets")
}

func TestFormatChannels(t *testing.T) {
	assert.Equal(t, "5:1 6:2", formatChannels(5, []byte{1, 2}))
	assert.Equal(t, "", formatChannels(1, nil))
}

func TestPrintCandidates(t *testing.T) {
	cands := []network.Candidate{{Interface: "eth0", Kind: network.Ethernet, Address: "2.0.0.10", Broadcast: "2.255.255.255"}}

	cmd := newInterfacesCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, printCandidates(cmd, cands, "auto"))
	assert.Contains(t, out.String(), "eth0")
	assert.Contains(t, out.String(), "auto -> 2.255.255.255")

	assert.Error(t, printCandidates(cmd, cands, "wlan7"))
}
