//go:build !unix

package main

import "github.com/bridgefall/sockaddr/addr"

func kernelForm(addr.Address) string { return "" }
