package addr

import (
	"fmt"

	"github.com/bridgefall/sockaddr/commons/logger"
)

const (
	v4LoopbackOctet   = 127
	v4LinkLocalOctet0 = 169
	v4LinkLocalOctet1 = 254

	// v4MappedOffset is where the embedded IPv4 address starts in ::ffff:a.b.c.d.
	v4MappedOffset = 12
	// ifaceIDOffset is the first byte of the 64-bit interface identifier.
	ifaceIDOffset = 8
	// universalLocalBit is the modified EUI-64 u/l bit within the first
	// interface identifier byte. Set means a stable, globally-derived ID.
	universalLocalBit = 0x02
)

// LengthFor returns the canonical record size for a's family, or 0 if a
// cannot be processed.
func LengthFor(a Address) int {
	switch v := a.(type) {
	case *Inet4:
		if v != nil {
			return SizeofInet4
		}
	case *Inet6:
		if v != nil {
			return SizeofInet6
		}
	}
	warnUnsupported("length", familyOf(a))
	return 0
}

// Port returns a's port in host order, or 0 if a cannot be processed.
func Port(a Address) uint16 {
	switch v := a.(type) {
	case *Inet4:
		if v != nil {
			return v.Port
		}
	case *Inet6:
		if v != nil {
			return v.Port
		}
	}
	warnUnsupported("port", familyOf(a))
	return 0
}

// SetPort overwrites a's port. Nothing else in a changes. For an unsupported
// family a is left as is and the error wraps ErrUnsupportedFamily.
func SetPort(a Address, port uint16) error {
	switch v := a.(type) {
	case *Inet4:
		if v != nil {
			v.Port = port
			return nil
		}
	case *Inet6:
		if v != nil {
			v.Port = port
			return nil
		}
	}
	fam := familyOf(a)
	warnUnsupported("set port", fam)
	return fmt.Errorf("set port: %w: %s", ErrUnsupportedFamily, fam)
}

// IsLocal reports whether a is a loopback or link-local address, including
// loopback and link-local IPv4 addresses carried in v4-mapped IPv6 form.
func IsLocal(a Address) bool {
	switch v := a.(type) {
	case *Inet4:
		return v != nil && isLocal4(v.IP[:])
	case *Inet6:
		if v == nil {
			return false
		}
		if isLoopback6(&v.IP) || isLinkLocal6(&v.IP) {
			return true
		}
		if isV4Mapped6(&v.IP) {
			return isLocal4(v.IP[v4MappedOffset:])
		}
		return false
	default:
		return false
	}
}

// IsTemporaryIPv6 reports whether a is a global IPv6 address whose interface
// identifier has the universal/local bit clear, as privacy addresses do.
// Local addresses are never reported as temporary.
func IsTemporaryIPv6(a Address) bool {
	v, ok := a.(*Inet6)
	if !ok || v == nil {
		return false
	}
	if IsLocal(a) {
		return false
	}
	return v.IP[ifaceIDOffset]&universalLocalBit == 0
}

// TryUnmapV4 returns the IPv4 address embedded in a v4-mapped IPv6 address,
// with the same port. The input is not modified. It returns false for any
// other input, including addresses that are already IPv4.
func TryUnmapV4(a Address) (*Inet4, bool) {
	v, ok := a.(*Inet6)
	if !ok || v == nil || !isV4Mapped6(&v.IP) {
		return nil, false
	}
	out := &Inet4{Port: v.Port}
	copy(out.IP[:], v.IP[v4MappedOffset:])
	return out, true
}

func isLocal4(b []byte) bool {
	if b[0] == v4LoopbackOctet {
		return true
	}
	return b[0] == v4LinkLocalOctet0 && b[1] == v4LinkLocalOctet1
}

// isLoopback6 matches ::1 exactly.
func isLoopback6(ip *[16]byte) bool {
	for _, b := range ip[:15] {
		if b != 0 {
			return false
		}
	}
	return ip[15] == 1
}

// isLinkLocal6 matches fe80::/10.
func isLinkLocal6(ip *[16]byte) bool {
	return ip[0] == 0xfe && ip[1]&0xc0 == 0x80
}

// isV4Mapped6 matches ::ffff:0:0/96.
func isV4Mapped6(ip *[16]byte) bool {
	for _, b := range ip[:10] {
		if b != 0 {
			return false
		}
	}
	return ip[10] == 0xff && ip[11] == 0xff
}

type warnKey struct {
	op  string
	fam Family
}

var unsupportedWarner = logger.NewWarner[warnKey]()

func warnUnsupported(op string, fam Family) {
	unsupportedWarner.Warn(warnKey{op, fam}, "unknown address family", "op", op, "family", fam.String())
}
