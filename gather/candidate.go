package gather

import (
	"encoding/json"
	"fmt"
	"net/netip"

	"github.com/fxamacker/cbor/v2"

	"github.com/bridgefall/sockaddr/addr"
)

// Version is the CBOR candidate list format version.
const Version = 1

const (
	wireFamilyIPv4 = 4
	wireFamilyIPv6 = 6

	flagLocal     = 1 << 0
	flagTemporary = 1 << 1

	maxEncodedCandidates = 256
)

type wireCandidate struct {
	Family uint8  `cbor:"1,keyasint"`
	IP     []byte `cbor:"2,keyasint"`
	Port   uint16 `cbor:"3,keyasint"`
	Scope  uint32 `cbor:"4,keyasint,omitempty"`
	Flags  uint8  `cbor:"5,keyasint,omitempty"`
}

type wireList struct {
	Version    uint64          `cbor:"0,keyasint"`
	Candidates []wireCandidate `cbor:"1,keyasint"`
}

// EncodeCandidates converts candidates into deterministic CBOR bytes.
func EncodeCandidates(cands []Candidate) ([]byte, error) {
	if len(cands) > maxEncodedCandidates {
		return nil, fmt.Errorf("too many candidates: %d > %d", len(cands), maxEncodedCandidates)
	}
	list := wireList{Version: Version, Candidates: make([]wireCandidate, 0, len(cands))}
	for i, c := range cands {
		w, err := toWire(c)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		list.Candidates = append(list.Candidates, w)
	}
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return mode.Marshal(list)
}

// DecodeCandidates parses CBOR bytes produced by EncodeCandidates. The
// local and temporary flags are recomputed from the address; the encoded
// flags are only checked for consistency.
func DecodeCandidates(data []byte) ([]Candidate, error) {
	mode, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements:  maxEncodedCandidates,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		return nil, err
	}
	var list wireList
	if err := mode.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	if list.Version != Version {
		return nil, fmt.Errorf("unsupported cbor candidate version %d", list.Version)
	}
	out := make([]Candidate, 0, len(list.Candidates))
	for i, w := range list.Candidates {
		c, err := fromWire(w)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func toWire(c Candidate) (wireCandidate, error) {
	var w wireCandidate
	switch v := c.Record.Addr.(type) {
	case *addr.Inet4:
		if v == nil {
			break
		}
		w = wireCandidate{Family: wireFamilyIPv4, IP: append([]byte(nil), v.IP[:]...), Port: v.Port}
	case *addr.Inet6:
		if v == nil {
			break
		}
		w = wireCandidate{Family: wireFamilyIPv6, IP: append([]byte(nil), v.IP[:]...), Port: v.Port, Scope: v.ScopeID}
	}
	if w.Family == 0 {
		return wireCandidate{}, fmt.Errorf("%w: %s", addr.ErrUnsupportedFamily, familyName(c.Record.Addr))
	}
	if c.Local {
		w.Flags |= flagLocal
	}
	if c.Temporary {
		w.Flags |= flagTemporary
	}
	return w, nil
}

func fromWire(w wireCandidate) (Candidate, error) {
	var a addr.Address
	switch w.Family {
	case wireFamilyIPv4:
		if len(w.IP) != 4 {
			return Candidate{}, fmt.Errorf("ipv4 address has %d bytes", len(w.IP))
		}
		v := &addr.Inet4{Port: w.Port}
		copy(v.IP[:], w.IP)
		a = v
	case wireFamilyIPv6:
		if len(w.IP) != 16 {
			return Candidate{}, fmt.Errorf("ipv6 address has %d bytes", len(w.IP))
		}
		v := &addr.Inet6{Port: w.Port, ScopeID: w.Scope}
		copy(v.IP[:], w.IP)
		a = v
	default:
		return Candidate{}, fmt.Errorf("%w: wire family %d", addr.ErrUnsupportedFamily, w.Family)
	}
	c := newCandidate(a)
	if (w.Flags&flagLocal != 0) != c.Local || (w.Flags&flagTemporary != 0) != c.Temporary {
		return Candidate{}, fmt.Errorf("flags %#x do not match %s", w.Flags, a)
	}
	return c, nil
}

type jsonCandidate struct {
	Address   string `json:"address"`
	Family    string `json:"family,omitempty"`
	Length    int    `json:"length,omitempty"`
	Local     bool   `json:"local"`
	Temporary bool   `json:"temporary"`
}

// MarshalJSON writes the candidate as {"address": "ip:port", ...}.
func (c Candidate) MarshalJSON() ([]byte, error) {
	ap, ok := addr.AddrPort(c.Record.Addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", addr.ErrUnsupportedFamily, familyName(c.Record.Addr))
	}
	return json.Marshal(jsonCandidate{
		Address:   ap.String(),
		Family:    c.Record.Addr.Family().String(),
		Length:    c.Record.Len,
		Local:     c.Local,
		Temporary: c.Temporary,
	})
}

// UnmarshalJSON parses the address and reclassifies it; the local and
// temporary fields in the input are ignored.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var j jsonCandidate
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	ap, err := netip.ParseAddrPort(j.Address)
	if err != nil {
		return fmt.Errorf("candidate address: %w", err)
	}
	*c = newCandidate(addr.FromAddrPort(ap))
	return nil
}

func familyName(a addr.Address) string {
	if a == nil {
		return addr.FamilyUnspec.String()
	}
	return a.Family().String()
}
