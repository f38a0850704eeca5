//go:build unix

package addr

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FromSockaddr converts an address returned by the unix socket calls
// (Getsockname, Recvfrom, ...). Families other than inet and inet6 come back
// as *Other.
func FromSockaddr(sa unix.Sockaddr) Address {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		if v == nil {
			break
		}
		return &Inet4{IP: v.Addr, Port: uint16(v.Port)}
	case *unix.SockaddrInet6:
		if v == nil {
			break
		}
		return &Inet6{IP: v.Addr, Port: uint16(v.Port), ScopeID: v.ZoneId}
	case *unix.SockaddrUnix:
		if v == nil {
			return &Other{Fam: FamilyUnix}
		}
		return &Other{Fam: FamilyUnix, Data: []byte(v.Name)}
	}
	return &Other{Fam: FamilyUnspec}
}

// ToSockaddr converts a for use with the unix socket calls.
func ToSockaddr(a Address) (unix.Sockaddr, error) {
	switch v := a.(type) {
	case *Inet4:
		if v != nil {
			return &unix.SockaddrInet4{Port: int(v.Port), Addr: v.IP}, nil
		}
	case *Inet6:
		if v != nil {
			return &unix.SockaddrInet6{Port: int(v.Port), ZoneId: v.ScopeID, Addr: v.IP}, nil
		}
	}
	return nil, fmt.Errorf("to sockaddr: %w: %s", ErrUnsupportedFamily, familyOf(a))
}
