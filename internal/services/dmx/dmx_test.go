package dmx

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	service := NewService(cfg)
	require.NotNil(t, service)
	assert.False(t, service.IsEnabled())
	assert.Equal(t, 4, service.UniverseCount())
	for i := 1; i <= 4; i++ {
		assert.Len(t, service.universes[i], UniverseSize)
	}
}

func TestNewService_ZeroConfigDefaults(t *testing.T) {
	service := NewService(Config{UniverseCount: 9})
	assert.Equal(t, MaxUniverses, service.UniverseCount())
	assert.Equal(t, 60, service.refreshRateHz)
	assert.Equal(t, 1, service.GetCurrentRate(), "starts at idle rate")

	service = NewService(Config{UniverseCount: 1})
	assert.Equal(t, 1, service.UniverseCount())
}

func TestSetChannelValue(t *testing.T) {
	service := NewService(Config{})

	service.SetChannelValue(1, 1, 128)
	service.SetChannelValue(1, 512, 255)
	assert.Equal(t, byte(128), service.GetChannelValue(1, 1))
	assert.Equal(t, byte(255), service.GetChannelValue(1, 512))

	// Out of range is ignored
	service.SetChannelValue(1, 0, 100)
	service.SetChannelValue(1, 513, 100)
	service.SetChannelValue(10, 1, 100)
	assert.Equal(t, byte(0), service.GetChannelValue(1, 0))
	assert.Equal(t, byte(0), service.GetChannelValue(10, 1))
}

func TestSetChannelValue_MarksDirtyOnlyOnChange(t *testing.T) {
	service := NewService(Config{})

	service.SetChannelValue(2, 5, 10)
	assert.True(t, service.dirtyUniverses[2])
	assert.True(t, service.isInHighRateMode)

	service.processTransmission()
	assert.Empty(t, service.dirtyUniverses)

	service.SetChannelValue(2, 5, 10)
	assert.Empty(t, service.dirtyUniverses, "unchanged value is not a change")
}

func TestAdaptiveRate(t *testing.T) {
	service := NewService(Config{RefreshRateHz: 50, IdleRateHz: 2, HighRateDuration: 10 * time.Millisecond})

	service.SetChannelValue(1, 1, 1)
	assert.Equal(t, 50, service.processTransmission())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, service.processTransmission())
}

func TestBlackout(t *testing.T) {
	service := NewService(Config{})
	service.SetChannelValue(1, 1, 200)
	service.SetChannelValue(3, 7, 100)

	service.Blackout()

	assert.Equal(t, byte(0), service.GetChannelValue(1, 1))
	assert.Equal(t, byte(0), service.GetChannelValue(3, 7))
	for _, v := range service.GetUniverse(1) {
		assert.Zero(t, v)
	}
}

func TestOutput_ZeroBasedAddressing(t *testing.T) {
	service := NewService(Config{})
	out := NewOutput(service, 2)

	out.SetDmxChannelValue(0, 11)
	out.SetDmxChannelValue(511, 22)

	assert.Equal(t, 2, out.Universe())
	assert.Equal(t, byte(11), service.GetChannelValue(2, 1))
	assert.Equal(t, byte(22), service.GetChannelValue(2, 512))
	assert.Equal(t, byte(11), out.GetDmxChannelValue(0))
	assert.Equal(t, byte(0), service.GetChannelValue(1, 1), "other universes untouched")

	out.SetDmxChannelValue(512, 1)
	assert.Equal(t, byte(0), out.GetDmxChannelValue(512))
}

func TestStop_Idempotent(t *testing.T) {
	service := NewService(Config{})
	require.NoError(t, service.Initialize())
	require.NoError(t, service.Initialize())
	service.Stop()
	service.Stop()
}

func TestArtNetBroadcast_UDPReceive(t *testing.T) {
	listener, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	service := NewService(Config{
		Enabled:          true,
		BroadcastAddr:    "127.0.0.1",
		Port:             listener.LocalAddr().(*net.UDPAddr).Port,
		UniverseCount:    1,
		RefreshRateHz:    100,
		IdleRateHz:       20,
		HighRateDuration: 5 * time.Second,
	})
	require.NoError(t, service.Initialize())
	defer service.Stop()

	out := NewOutput(service, 1)
	out.SetDmxChannelValue(0, 255)
	out.SetDmxChannelValue(9, 128)

	buffer := make([]byte, 1024)
	_ = listener.SetReadDeadline(time.Now().Add(3 * time.Second))
	n, _, err := listener.ReadFromUDP(buffer)
	require.NoError(t, err)
	packet := buffer[:n]

	require.Len(t, packet, 18+UniverseSize)
	assert.Equal(t, "Art-Net\x00", string(packet[0:8]))
	assert.Equal(t, uint16(0x5000), binary.LittleEndian.Uint16(packet[8:10]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(packet[14:16]), "universe 1 is 0 on the wire")
	assert.Equal(t, byte(255), packet[18])
	assert.Equal(t, byte(128), packet[27])
}
