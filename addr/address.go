package addr

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
)

var (
	// ErrUnsupportedFamily is returned for any family other than IPv4 or IPv6.
	ErrUnsupportedFamily = errors.New("unsupported address family")
	// ErrShortRecord is returned when a record's length is below its family size.
	ErrShortRecord = errors.New("address record too short")
)

// Address is a socket address. The set of implementations is closed.
type Address interface {
	Family() Family
	String() string
	isAddress()
}

// Inet4 is an IPv4 socket address. Port is in host order.
type Inet4 struct {
	IP   [4]byte
	Port uint16
}

// Inet6 is an IPv6 socket address. Port is in host order.
type Inet6 struct {
	IP      [16]byte
	Port    uint16
	ScopeID uint32
}

// Other holds an address of a family this package does not process.
type Other struct {
	Fam  Family
	Data []byte
}

func (*Inet4) Family() Family { return FamilyIPv4 }
func (*Inet6) Family() Family { return FamilyIPv6 }

func (o *Other) Family() Family {
	if o == nil {
		return FamilyUnspec
	}
	return o.Fam
}

func (*Inet4) isAddress() {}
func (*Inet6) isAddress() {}
func (*Other) isAddress() {}

func (a *Inet4) String() string {
	if a == nil {
		return "<nil>"
	}
	return netip.AddrPortFrom(netip.AddrFrom4(a.IP), a.Port).String()
}

func (a *Inet6) String() string {
	if a == nil {
		return "<nil>"
	}
	return netip.AddrPortFrom(a.netipAddr(), a.Port).String()
}

func (o *Other) String() string {
	return "<" + o.Family().String() + ">"
}

func (a *Inet6) netipAddr() netip.Addr {
	ip := netip.AddrFrom16(a.IP)
	if a.ScopeID != 0 {
		ip = ip.WithZone(strconv.FormatUint(uint64(a.ScopeID), 10))
	}
	return ip
}

// familyOf tolerates a nil interface.
func familyOf(a Address) Family {
	if a == nil {
		return FamilyUnspec
	}
	return a.Family()
}

// Record pairs an address with the length the caller declared for it.
type Record struct {
	Addr Address
	Len  int
}

// NewRecord returns a record carrying the canonical length for a.
func NewRecord(a Address) Record {
	return Record{Addr: a, Len: LengthFor(a)}
}

// Validate checks that the record's family is supported and that Len covers
// the family's canonical size.
func (r Record) Validate() error {
	want := LengthFor(r.Addr)
	if want == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFamily, familyOf(r.Addr))
	}
	if r.Len < want {
		return fmt.Errorf("%w: %s record has %d bytes, need %d", ErrShortRecord, familyOf(r.Addr), r.Len, want)
	}
	return nil
}

// Unmap returns the IPv4 form of a v4-mapped IPv6 record.
func (r Record) Unmap() (Record, bool) {
	v4, ok := TryUnmapV4(r.Addr)
	if !ok {
		return Record{}, false
	}
	return Record{Addr: v4, Len: SizeofInet4}, true
}

func (r Record) String() string {
	if r.Addr == nil {
		return "<nil>"
	}
	return r.Addr.String()
}
