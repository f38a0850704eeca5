// Package gather turns the host's interface addresses into connectivity
// candidates for a bound UDP socket.
//
// Classification is delegated to package addr; this package adds the
// socket-level policy: the bound port is stamped on every candidate,
// v4-mapped addresses are folded to IPv4, the bound family limits what is
// offered, and loopback/link-local and temporary addresses are filtered
// according to Config.
package gather

import (
	"fmt"
	"log/slog"
	"net"
	"net/netip"

	"github.com/bridgefall/sockaddr/addr"
	"github.com/bridgefall/sockaddr/commons/metrics"
)

// Stat names reported by Gatherer.Stats.
const (
	StatGathered        = "gathered"
	StatSkippedLocal    = "skipped_local"
	StatSkippedTemp     = "skipped_temporary"
	StatSkippedExcluded = "skipped_excluded"
	StatSkippedFamily   = "skipped_family"
	StatUnsupported     = "unsupported"
	StatDuplicates      = "duplicates"
)

// Source lists the host's interface addresses.
type Source interface {
	Addrs() ([]net.Addr, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() ([]net.Addr, error)

// Addrs calls f.
func (f SourceFunc) Addrs() ([]net.Addr, error) { return f() }

// SystemSource reads addresses from the operating system.
var SystemSource Source = SourceFunc(net.InterfaceAddrs)

// Candidate is a gathered address with its classification.
type Candidate struct {
	Record    addr.Record
	Local     bool
	Temporary bool
}

func newCandidate(a addr.Address) Candidate {
	return Candidate{
		Record:    addr.NewRecord(a),
		Local:     addr.IsLocal(a),
		Temporary: addr.IsTemporaryIPv6(a),
	}
}

// Gatherer collects candidates from a Source.
type Gatherer struct {
	cfg   Config
	src   Source
	stats *metrics.Set
}

// New returns a Gatherer. A nil src reads from SystemSource.
func New(cfg Config, src Source) (*Gatherer, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if src == nil {
		src = SystemSource
	}
	return &Gatherer{
		cfg: cfg,
		src: src,
		stats: metrics.NewSet(
			StatGathered, StatSkippedLocal, StatSkippedTemp, StatSkippedExcluded,
			StatSkippedFamily, StatUnsupported, StatDuplicates,
		),
	}, nil
}

// Config returns the normalized configuration.
func (g *Gatherer) Config() Config {
	return g.cfg
}

// Stats returns the counters accumulated over all Gather calls.
func (g *Gatherer) Stats() map[string]int64 {
	return g.stats.Snapshot()
}

// StatNames returns the counter names in a stable order for display.
func (g *Gatherer) StatNames() []string {
	return g.stats.Names()
}

// Gather returns the candidates for a socket bound to bound. A socket bound
// to a specific address yields just that address. A wildcard-bound socket
// yields every acceptable interface address, stable addresses before
// temporary ones, each carrying the bound port.
func (g *Gatherer) Gather(bound net.Addr) ([]Candidate, error) {
	local, err := addr.FromNetAddr(bound)
	if err != nil {
		return nil, fmt.Errorf("gather: bound address: %w", err)
	}
	if addr.LengthFor(local) == 0 {
		g.stats.Counter(StatUnsupported).Inc()
		return nil, fmt.Errorf("gather: bound address: %w: %s", addr.ErrUnsupportedFamily, local.Family())
	}
	// package net reports IPv4 as 16-byte IPs; fold them back.
	if v4, ok := addr.TryUnmapV4(local); ok {
		local = v4
	}
	if !isUnspecified(local) {
		g.stats.Counter(StatGathered).Inc()
		return []Candidate{newCandidate(local)}, nil
	}

	ifaddrs, err := g.src.Addrs()
	if err != nil {
		return nil, fmt.Errorf("gather: interface addresses: %w", err)
	}

	port := addr.Port(local)
	boundFamily := local.Family()
	seen := make(map[netip.AddrPort]struct{}, len(ifaddrs))
	var stable, temporary []Candidate
	for _, ifaddr := range ifaddrs {
		a, err := addr.FromNetAddr(ifaddr)
		if err != nil || addr.LengthFor(a) == 0 {
			g.stats.Counter(StatUnsupported).Inc()
			slog.Debug("gather skip", "addr", ifaddr, "reason", "unsupported")
			continue
		}
		if err := addr.SetPort(a, port); err != nil {
			g.stats.Counter(StatUnsupported).Inc()
			continue
		}
		if v4, ok := addr.TryUnmapV4(a); ok {
			a = v4
		}
		if !g.familyAllowed(boundFamily, a.Family()) {
			g.stats.Counter(StatSkippedFamily).Inc()
			continue
		}
		ap, _ := addr.AddrPort(a)
		if ap.Addr().IsUnspecified() || ap.Addr().IsMulticast() {
			g.stats.Counter(StatSkippedFamily).Inc()
			continue
		}
		c := newCandidate(a)
		if c.Local && !g.cfg.IncludeLocal {
			g.stats.Counter(StatSkippedLocal).Inc()
			slog.Debug("gather skip", "addr", a, "reason", "local")
			continue
		}
		if c.Temporary && !g.cfg.IncludeTemporary {
			g.stats.Counter(StatSkippedTemp).Inc()
			slog.Debug("gather skip", "addr", a, "reason", "temporary")
			continue
		}
		if g.cfg.Exclude != nil && g.cfg.Exclude.Contains(ap.Addr().WithZone("").Unmap()) {
			g.stats.Counter(StatSkippedExcluded).Inc()
			continue
		}
		if _, dup := seen[ap]; dup {
			g.stats.Counter(StatDuplicates).Inc()
			continue
		}
		seen[ap] = struct{}{}
		if c.Temporary {
			temporary = append(temporary, c)
		} else {
			stable = append(stable, c)
		}
	}

	out := append(stable, temporary...)
	if len(out) > g.cfg.MaxCandidates {
		out = out[:g.cfg.MaxCandidates]
	}
	g.stats.Counter(StatGathered).Add(int64(len(out)))
	return out, nil
}

// familyAllowed reports whether a socket of the bound family can use a
// candidate of family fam. IPv6 sockets are assumed dual-stack unless
// V6Only is set.
func (g *Gatherer) familyAllowed(bound, fam addr.Family) bool {
	switch bound {
	case addr.FamilyIPv4:
		return fam == addr.FamilyIPv4
	case addr.FamilyIPv6:
		return fam == addr.FamilyIPv6 || (fam == addr.FamilyIPv4 && !g.cfg.V6Only)
	default:
		return false
	}
}

func isUnspecified(a addr.Address) bool {
	switch v := a.(type) {
	case *addr.Inet4:
		return v.IP == [4]byte{}
	case *addr.Inet6:
		return v.IP == [16]byte{}
	}
	return false
}
