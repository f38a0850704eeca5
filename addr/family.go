package addr

import "strconv"

// Family is an address family tag.
type Family uint16

const (
	FamilyUnspec Family = iota
	FamilyUnix
	FamilyIPv4
	FamilyIPv6
)

// Canonical record sizes, matching sockaddr_in and sockaddr_in6.
const (
	SizeofInet4 = 16
	SizeofInet6 = 28
)

func (f Family) String() string {
	switch f {
	case FamilyUnspec:
		return "unspec"
	case FamilyUnix:
		return "unix"
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "family(" + strconv.Itoa(int(f)) + ")"
	}
}

// FamilyLength returns the canonical record size for f, or 0 if f is not a
// supported family.
func FamilyLength(f Family) int {
	switch f {
	case FamilyIPv4:
		return SizeofInet4
	case FamilyIPv6:
		return SizeofInet6
	default:
		warnUnsupported("length", f)
		return 0
	}
}
