// Package artnet builds and parses ArtDmx packets.
package artnet

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	// OpCodeDMX is the Art-Net operation code for DMX data.
	OpCodeDMX uint16 = 0x5000
	// ProtocolVersion is the Art-Net protocol version.
	ProtocolVersion uint16 = 14
	// DMXDataLength is the number of DMX channels per universe.
	DMXDataLength uint16 = 512
	// HeaderSize is the ArtDmx header length preceding channel data.
	HeaderSize = 18
	// PacketSize is the total size of an Art-Net DMX packet.
	PacketSize = HeaderSize + int(DMXDataLength)
	// DefaultPort is the standard Art-Net UDP port.
	DefaultPort = 6454
)

// ArtNetID is the Art-Net packet identifier.
var ArtNetID = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

var (
	ErrNotArtNet   = errors.New("artnet: missing Art-Net identifier")
	ErrNotDMX      = errors.New("artnet: not an ArtDmx packet")
	ErrShortPacket = errors.New("artnet: packet shorter than declared length")
)

// DMXPacket is a decoded ArtDmx packet.
type DMXPacket struct {
	Universe int // 1-based
	Sequence byte
	Channels []byte
}

// BuildDMXPacket creates an ArtDmx packet for a 1-based universe.
// Channels beyond 512 are dropped; fewer are zero padded.
func BuildDMXPacket(universe int, channels []byte, sequence byte) []byte {
	packet := make([]byte, PacketSize)

	copy(packet[0:8], ArtNetID)
	binary.LittleEndian.PutUint16(packet[8:10], OpCodeDMX)
	binary.BigEndian.PutUint16(packet[10:12], ProtocolVersion)
	packet[12] = sequence
	packet[13] = 0 // physical port
	binary.LittleEndian.PutUint16(packet[14:16], uint16(universe-1))
	binary.BigEndian.PutUint16(packet[16:18], DMXDataLength)

	n := len(channels)
	if n > int(DMXDataLength) {
		n = int(DMXDataLength)
	}
	copy(packet[HeaderSize:], channels[:n])
	return packet
}

// ParseDMXPacket decodes an ArtDmx packet. Other Art-Net opcodes return ErrNotDMX.
func ParseDMXPacket(data []byte) (DMXPacket, error) {
	if len(data) < HeaderSize || !bytes.Equal(data[0:8], ArtNetID) {
		return DMXPacket{}, ErrNotArtNet
	}
	if binary.LittleEndian.Uint16(data[8:10]) != OpCodeDMX {
		return DMXPacket{}, ErrNotDMX
	}
	length := int(binary.BigEndian.Uint16(data[16:18]))
	if length > int(DMXDataLength) {
		length = int(DMXDataLength)
	}
	if len(data) < HeaderSize+length {
		return DMXPacket{}, ErrShortPacket
	}

	channels := make([]byte, DMXDataLength)
	copy(channels, data[HeaderSize:HeaderSize+length])
	return DMXPacket{
		Universe: int(binary.LittleEndian.Uint16(data[14:16])) + 1,
		Sequence: data[12],
		Channels: channels,
	}, nil
}
