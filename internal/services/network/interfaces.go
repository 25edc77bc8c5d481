// Package network resolves the Art-Net broadcast address from the host's interfaces.
package network

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

// Kind classifies an interface for ordering. Wired links come first.
type Kind string

const (
	Ethernet Kind = "ethernet"
	WiFi     Kind = "wifi"
	Other    Kind = "other"
)

// GlobalBroadcast is the limited broadcast address used when nothing better is found.
const GlobalBroadcast = "255.255.255.255"

// Auto asks ResolveBroadcast to pick an interface.
const Auto = "auto"

// Candidate is one IPv4 interface address that can carry Art-Net broadcasts.
type Candidate struct {
	Interface string `json:"interface"`
	Address   string `json:"address"`
	Broadcast string `json:"broadcast"`
	Kind      Kind   `json:"kind"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s %s (%s) broadcast %s", c.Interface, c.Address, c.Kind, c.Broadcast)
}

// KindOf guesses the interface kind from its name.
func KindOf(name string) Kind {
	n := strings.ToLower(name)
	switch {
	case n == "en0":
		// en0 is the built-in Wi-Fi on most Macs
		return WiFi
	case strings.HasPrefix(n, "wl"), strings.Contains(n, "wifi"), strings.Contains(n, "wireless"):
		return WiFi
	case strings.HasPrefix(n, "eth"), strings.HasPrefix(n, "en"):
		return Ethernet
	}
	return Other
}

func rank(k Kind) int {
	switch k {
	case Ethernet:
		return 0
	case WiFi:
		return 1
	}
	return 2
}

// broadcastOf computes the directed broadcast address of an IPv4 network.
func broadcastOf(ip net.IP, mask net.IPMask) net.IP {
	ip4 := ip.To4()
	if ip4 == nil || mask == nil {
		return nil
	}
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}
	out := make(net.IP, net.IPv4len)
	for i := range out {
		out[i] = ip4[i] | ^mask[i]
	}
	return out
}

// addrLister is the part of net.Interface that Candidates needs.
type addrLister struct {
	name  string
	flags net.Flags
	addrs func() ([]net.Addr, error)
}

// Candidates lists up, non-loopback IPv4 interfaces with a usable broadcast address,
// wired first.
func Candidates() ([]Candidate, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}
	listers := make([]addrLister, 0, len(ifaces))
	for i := range ifaces {
		iface := ifaces[i]
		listers = append(listers, addrLister{name: iface.Name, flags: iface.Flags, addrs: iface.Addrs})
	}
	return candidates(listers), nil
}

func candidates(ifaces []addrLister) []Candidate {
	var out []Candidate
	for _, iface := range ifaces {
		if iface.flags&net.FlagUp == 0 || iface.flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			bcast := broadcastOf(ipNet.IP, ipNet.Mask)
			// point-to-point links have no broadcast
			if bcast == nil || bcast.Equal(ipNet.IP.To4()) {
				continue
			}
			out = append(out, Candidate{
				Interface: iface.name,
				Address:   ipNet.IP.To4().String(),
				Broadcast: bcast.String(),
				Kind:      KindOf(iface.name),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i].Kind) < rank(out[j].Kind) })
	return out
}

// ResolveBroadcast turns an ARTNET_BROADCAST value into an address.
// An IPv4 literal is returned as is, an interface name resolves to that interface's
// broadcast address, and "" or "auto" picks the first candidate or the global broadcast.
func ResolveBroadcast(value string, cands []Candidate) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, Auto) {
		if len(cands) > 0 {
			return cands[0].Broadcast, nil
		}
		return GlobalBroadcast, nil
	}
	if ip := net.ParseIP(value); ip != nil {
		if ip.To4() == nil {
			return "", fmt.Errorf("art-net needs an IPv4 address, got %s", value)
		}
		return ip.To4().String(), nil
	}
	for _, c := range cands {
		if c.Interface == value {
			return c.Broadcast, nil
		}
	}
	return "", fmt.Errorf("no IPv4 broadcast address on interface %q", value)
}
