//go:build unix

package main

import (
	"golang.org/x/sys/unix"

	"github.com/bridgefall/sockaddr/addr"
)

// kernelForm names the sockaddr a would be passed to the kernel as, and the
// address read back from it.
func kernelForm(a addr.Address) string {
	sa, err := addr.ToSockaddr(a)
	if err != nil {
		return ""
	}
	name := "sockaddr_in6"
	if _, ok := sa.(*unix.SockaddrInet4); ok {
		name = "sockaddr_in"
	}
	return name + " " + addr.FromSockaddr(sa).String()
}
