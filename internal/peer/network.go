package peer

import (
	"net"
	"strings"
)

var cgnatBlock = &net.IPNet{IP: net.IPv4(100, 64, 0, 0).To4(), Mask: net.CIDRMask(10, 32)}

var tunnelNames = []string{"tun", "tap", "wg", "ppp", "warp"}

// behindTunnel reports whether an active interface looks like a VPN or sits
// in the carrier-grade NAT range. Direct connectivity rarely works there, so
// TURN is forced when it is configured.
func behindTunnel() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			addrs = nil
		}
		if tunnelInterface(iface.Name, addrs) {
			return true
		}
	}
	return false
}

func tunnelInterface(name string, addrs []net.Addr) bool {
	name = strings.ToLower(name)
	for _, marker := range tunnelNames {
		if strings.Contains(name, marker) {
			return true
		}
	}

	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip != nil && cgnatBlock.Contains(ip) {
			return true
		}
	}
	return false
}
