//go:build linux

package gather

import (
	"encoding/binary"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/bridgefall/sockaddr/addr"
)

// cmsg builds one raw control message the way the kernel lays it out.
func cmsg(level, typ int32, data []byte) []byte {
	b := make([]byte, unix.CmsgSpace(len(data)))
	h := (*unix.Cmsghdr)(unsafe.Pointer(&b[0]))
	h.Level = level
	h.Type = typ
	h.SetLen(unix.CmsgLen(len(data)))
	copy(b[unix.CmsgLen(0):], data)
	return b
}

// pktinfo4 is struct in_pktinfo: ifindex, spec_dst, addr.
func pktinfo4(ifindex int32, dst string) []byte {
	data := make([]byte, 12)
	binary.NativeEndian.PutUint32(data[0:4], uint32(ifindex))
	ip := netip.MustParseAddr(dst).As4()
	copy(data[8:12], ip[:])
	return cmsg(unix.IPPROTO_IP, unix.IP_PKTINFO, data)
}

// pktinfo6 is struct in6_pktinfo: addr, ifindex.
func pktinfo6(ifindex int32, dst string) []byte {
	data := make([]byte, 20)
	ip := netip.MustParseAddr(dst).As16()
	copy(data[0:16], ip[:])
	binary.NativeEndian.PutUint32(data[16:20], uint32(ifindex))
	return cmsg(unix.IPPROTO_IPV6, unix.IPV6_PKTINFO, data)
}

func TestArrivalCandidateFromPktinfo(t *testing.T) {
	cases := []struct {
		name      string
		local     net.Addr
		oob       []byte
		want      string
		family    addr.Family
		scope     uint32
		localAddr bool
	}{
		{
			name:   "ipv4 socket 4-byte bound",
			local:  &net.UDPAddr{IP: net.IPv4zero.To4(), Port: 3478},
			oob:    pktinfo4(2, "192.0.2.44"),
			want:   "192.0.2.44:3478",
			family: addr.FamilyIPv4,
		},
		{
			name:   "ipv4 socket 16-byte bound",
			local:  &net.UDPAddr{IP: net.IPv4zero, Port: 3478},
			oob:    pktinfo4(2, "192.0.2.44"),
			want:   "192.0.2.44:3478",
			family: addr.FamilyIPv4,
		},
		{
			name:      "ipv4 loopback arrival",
			local:     &net.UDPAddr{IP: net.IPv4zero, Port: 53},
			oob:       pktinfo4(1, "127.0.0.1"),
			want:      "127.0.0.1:53",
			family:    addr.FamilyIPv4,
			localAddr: true,
		},
		{
			name:   "dual-stack socket mapped destination",
			local:  &net.UDPAddr{IP: net.IPv6unspecified, Port: 5000},
			oob:    pktinfo6(3, "::ffff:198.51.100.7"),
			want:   "198.51.100.7:5000",
			family: addr.FamilyIPv4,
		},
		{
			name:      "link-local destination takes ifindex scope",
			local:     &net.UDPAddr{IP: net.IPv6unspecified, Port: 5000},
			oob:       pktinfo6(4, "fe80::1"),
			want:      "[fe80::1%4]:5000",
			family:    addr.FamilyIPv6,
			scope:     4,
			localAddr: true,
		},
		{
			name:   "global ipv6 destination",
			local:  &net.UDPAddr{IP: net.IPv6unspecified, Port: 5000},
			oob:    pktinfo6(4, "2001:db8::200:ff:fe00:1"),
			want:   "[2001:db8::200:ff:fe00:1]:5000",
			family: addr.FamilyIPv6,
		},
		{
			name:   "inet6 socket bound to mapped address",
			local:  &net.UDPAddr{IP: net.ParseIP("::ffff:192.0.2.1"), Port: 7000},
			oob:    pktinfo6(2, "::ffff:192.0.2.1"),
			want:   "192.0.2.1:7000",
			family: addr.FamilyIPv4,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ArrivalCandidate(tc.local, tc.oob)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := c.Record.Addr.String(); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
			if c.Record.Addr.Family() != tc.family {
				t.Fatalf("family=%s want %s", c.Record.Addr.Family(), tc.family)
			}
			if c.Record.Len != addr.FamilyLength(tc.family) {
				t.Fatalf("len=%d", c.Record.Len)
			}
			if c.Local != tc.localAddr {
				t.Fatalf("local=%v want %v", c.Local, tc.localAddr)
			}
			if v6, ok := c.Record.Addr.(*addr.Inet6); ok && v6.ScopeID != tc.scope {
				t.Fatalf("scope=%d want %d", v6.ScopeID, tc.scope)
			}
		})
	}
}

func TestParseArrivalIgnoresOtherLevel(t *testing.T) {
	// IPV6_PKTINFO on an IPv4 socket carries no IPv4 destination
	_, err := ParseArrival(addr.FamilyIPv4, pktinfo6(1, "2001:db8::1"), 1)
	if !errors.Is(err, ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}
	a, err := ParseArrival(addr.FamilyIPv4, append(pktinfo6(1, "2001:db8::1"), pktinfo4(1, "192.0.2.9")...), 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.String() != "192.0.2.9:9" {
		t.Fatalf("got %s", a)
	}
}

func TestEnableArrivalLoopback(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		t.Skipf("udp4 listen unavailable: %v", err)
	}
	defer conn.Close()
	oob, err := EnableArrival(conn)
	if err != nil {
		t.Fatalf("enable arrival: %v", err)
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port

	client, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("deadline: %v", err)
	}
	buf := make([]byte, 64)
	_, oobn, _, _, err := conn.ReadMsgUDP(buf, oob)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	c, err := ArrivalCandidate(conn.LocalAddr(), oob[:oobn])
	if err != nil {
		t.Fatalf("arrival: %v", err)
	}
	want := netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), uint16(port)).String()
	if c.Record.Addr.String() != want || !c.Local {
		t.Fatalf("got %+v want %s local", c, want)
	}
}

func TestEnableArrivalSpecificBound(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("udp4 listen unavailable: %v", err)
	}
	defer conn.Close()
	if _, err := EnableArrival(conn); err != nil {
		t.Fatalf("specific bound address should still enable: %v", err)
	}
}
