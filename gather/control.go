package gather

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/bridgefall/sockaddr/addr"
)

// ErrNoDestination is returned when a control message carries no packet
// destination (IP_PKTINFO/IPV6_PKTINFO was not enabled on the socket).
var ErrNoDestination = errors.New("control message has no destination address")

// FromControlMessage4 returns the local address an IPv4 packet arrived on.
func FromControlMessage4(cm *ipv4.ControlMessage, port uint16) (addr.Address, error) {
	if cm == nil || cm.Dst == nil {
		return nil, ErrNoDestination
	}
	ip := cm.Dst.To4()
	if ip == nil {
		return nil, fmt.Errorf("ipv4 control message: %w: %s", addr.ErrUnsupportedFamily, cm.Dst)
	}
	out := &addr.Inet4{Port: port}
	copy(out.IP[:], ip)
	return out, nil
}

// FromControlMessage6 returns the local address an IPv6 packet arrived on.
// Link-local destinations take the arrival interface as their scope.
func FromControlMessage6(cm *ipv6.ControlMessage, port uint16) (addr.Address, error) {
	if cm == nil || cm.Dst == nil {
		return nil, ErrNoDestination
	}
	ip := cm.Dst.To16()
	if ip == nil {
		return nil, fmt.Errorf("ipv6 control message: %w: %d-byte ip", addr.ErrUnsupportedFamily, len(cm.Dst))
	}
	out := &addr.Inet6{Port: port}
	copy(out.IP[:], ip)
	if netip.AddrFrom16(out.IP).IsLinkLocalUnicast() && cm.IfIndex > 0 {
		out.ScopeID = uint32(cm.IfIndex)
	}
	return out, nil
}

// ParseArrival parses raw out-of-band data read alongside a packet on a
// socket of the given family.
func ParseArrival(family addr.Family, oob []byte, port uint16) (addr.Address, error) {
	switch family {
	case addr.FamilyIPv4:
		var cm ipv4.ControlMessage
		if err := cm.Parse(oob); err != nil {
			return nil, fmt.Errorf("parse ipv4 control message: %w", err)
		}
		return FromControlMessage4(&cm, port)
	case addr.FamilyIPv6:
		var cm ipv6.ControlMessage
		if err := cm.Parse(oob); err != nil {
			return nil, fmt.Errorf("parse ipv6 control message: %w", err)
		}
		return FromControlMessage6(&cm, port)
	default:
		return nil, fmt.Errorf("parse control message: %w: %s", addr.ErrUnsupportedFamily, family)
	}
}

// ArrivalCandidate classifies the arrival address of a received packet. It
// is the per-packet counterpart to Gather for sockets bound to a wildcard.
func ArrivalCandidate(local net.Addr, oob []byte) (Candidate, error) {
	bound, err := addr.FromNetAddr(local)
	if err != nil {
		return Candidate{}, err
	}
	port := addr.Port(bound)
	// a 16-byte IPv4 wildcard is still an IPv4 socket
	v4, mapped := addr.TryUnmapV4(bound)
	if mapped {
		bound = v4
	}
	a, err := ParseArrival(bound.Family(), oob, port)
	if mapped && errors.Is(err, ErrNoDestination) {
		// inet6 socket bound to a mapped address reports IPV6_PKTINFO
		a, err = ParseArrival(addr.FamilyIPv6, oob, port)
	}
	if err != nil {
		return Candidate{}, err
	}
	if v4, ok := addr.TryUnmapV4(a); ok {
		a = v4
	}
	return newCandidate(a), nil
}

// EnableArrival turns on destination reporting for conn so that the
// out-of-band data read by ReadMsgUDP can be handed to ArrivalCandidate. It
// returns an oob buffer large enough for that data.
func EnableArrival(conn *net.UDPConn) ([]byte, error) {
	local, err := addr.FromNetAddr(conn.LocalAddr())
	if err != nil {
		return nil, err
	}
	if v4, ok := addr.TryUnmapV4(local); ok {
		local = v4
	}
	switch local.Family() {
	case addr.FamilyIPv4:
		flags := ipv4.FlagDst | ipv4.FlagInterface
		if err := ipv4.NewPacketConn(conn).SetControlMessage(flags, true); err != nil {
			return nil, fmt.Errorf("enable ipv4 pktinfo: %w", err)
		}
		return ipv4.NewControlMessage(flags), nil
	case addr.FamilyIPv6:
		flags := ipv6.FlagDst | ipv6.FlagInterface
		if err := ipv6.NewPacketConn(conn).SetControlMessage(flags, true); err != nil {
			return nil, fmt.Errorf("enable ipv6 pktinfo: %w", err)
		}
		return ipv6.NewControlMessage(flags), nil
	default:
		return nil, fmt.Errorf("enable arrival: %w: %s", addr.ErrUnsupportedFamily, local.Family())
	}
}
