package addr

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// FromAddrPort converts ap. A 4-byte address becomes *Inet4; an IPv6 address,
// including the v4-mapped form, becomes *Inet6. Numeric zones are carried
// as ScopeID, named zones are dropped. An invalid ap yields an unspec *Other.
func FromAddrPort(ap netip.AddrPort) Address {
	ip := ap.Addr()
	switch {
	case ip.Is4():
		return &Inet4{IP: ip.As4(), Port: ap.Port()}
	case ip.Is6():
		return &Inet6{IP: ip.As16(), Port: ap.Port(), ScopeID: parseZone(ip.Zone())}
	default:
		return &Other{Fam: FamilyUnspec}
	}
}

// FromNetAddr converts the address types handed out by package net. A
// 16-byte net.IP holding an IPv4 address stays IPv6 (v4-mapped); use
// TryUnmapV4 to normalize it. *net.UnixAddr converts to a unix *Other.
func FromNetAddr(a net.Addr) (Address, error) {
	switch v := a.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil address", ErrUnsupportedFamily)
	case *net.UDPAddr:
		if v == nil {
			return nil, fmt.Errorf("%w: nil address", ErrUnsupportedFamily)
		}
		return fromIP(v.IP, v.Port, v.Zone)
	case *net.TCPAddr:
		if v == nil {
			return nil, fmt.Errorf("%w: nil address", ErrUnsupportedFamily)
		}
		return fromIP(v.IP, v.Port, v.Zone)
	case *net.IPAddr:
		if v == nil {
			return nil, fmt.Errorf("%w: nil address", ErrUnsupportedFamily)
		}
		return fromIP(v.IP, 0, v.Zone)
	case *net.IPNet:
		if v == nil {
			return nil, fmt.Errorf("%w: nil address", ErrUnsupportedFamily)
		}
		return fromIP(v.IP, 0, "")
	case *net.UnixAddr:
		if v == nil {
			return &Other{Fam: FamilyUnix}, nil
		}
		return &Other{Fam: FamilyUnix, Data: []byte(v.Name)}, nil
	}
	ap, err := netip.ParseAddrPort(a.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s address %q", ErrUnsupportedFamily, a.Network(), a.String())
	}
	return FromAddrPort(ap), nil
}

func fromIP(raw net.IP, port int, zone string) (Address, error) {
	if port < 0 || port > 0xffff {
		return nil, fmt.Errorf("port %d out of range", port)
	}
	if len(raw) == 0 {
		// package net listens on the dual-stack wildcard for a nil IP
		return &Inet6{Port: uint16(port)}, nil
	}
	ip, ok := netip.AddrFromSlice(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %d-byte ip", ErrUnsupportedFamily, len(raw))
	}
	if zone != "" {
		ip = ip.WithZone(zone)
	}
	return FromAddrPort(netip.AddrPortFrom(ip, uint16(port))), nil
}

// AddrPort converts a back to a netip.AddrPort.
func AddrPort(a Address) (netip.AddrPort, bool) {
	switch v := a.(type) {
	case *Inet4:
		if v != nil {
			return netip.AddrPortFrom(netip.AddrFrom4(v.IP), v.Port), true
		}
	case *Inet6:
		if v != nil {
			return netip.AddrPortFrom(v.netipAddr(), v.Port), true
		}
	}
	return netip.AddrPort{}, false
}

// UDPAddr converts a to a *net.UDPAddr.
func UDPAddr(a Address) (*net.UDPAddr, bool) {
	ap, ok := AddrPort(a)
	if !ok {
		return nil, false
	}
	return net.UDPAddrFromAddrPort(ap), true
}

func parseZone(zone string) uint32 {
	if zone == "" {
		return 0
	}
	id, err := strconv.ParseUint(zone, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(id)
}
