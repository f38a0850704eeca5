package gather

import (
	"encoding/json"
	"errors"
	"net/netip"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/bridgefall/sockaddr/addr"
)

func candidateFor(t *testing.T, s string) Candidate {
	t.Helper()
	return newCandidate(addr.FromAddrPort(netip.MustParseAddrPort(s)))
}

func TestCandidatesCBOR(t *testing.T) {
	in := []Candidate{
		candidateFor(t, "192.0.2.10:5000"),
		candidateFor(t, "[fe80::1%4]:5000"),
		candidateFor(t, "[2001:db8::abcd]:5000"),
	}
	data, err := EncodeCandidates(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := EncodeCandidates(in)
	if err != nil || string(again) != string(data) {
		t.Fatalf("encoding is not deterministic")
	}

	out, err := DecodeCandidates(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d candidates", len(out))
	}
	for i := range in {
		if out[i].Record.String() != in[i].Record.String() || out[i].Record.Len != in[i].Record.Len {
			t.Fatalf("candidate %d: got %s/%d want %s/%d", i, out[i].Record, out[i].Record.Len, in[i].Record, in[i].Record.Len)
		}
		if out[i].Local != in[i].Local || out[i].Temporary != in[i].Temporary {
			t.Fatalf("candidate %d flags differ", i)
		}
	}
	if !out[1].Local || !out[2].Temporary {
		t.Fatalf("flags lost: %+v", out)
	}
}

func TestDecodeCandidatesRejects(t *testing.T) {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		t.Fatalf("enc mode: %v", err)
	}
	encode := func(v any) []byte {
		data, err := mode.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return data
	}

	cases := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"wrong version", encode(wireList{Version: 9}), nil},
		{"unix family", encode(wireList{Version: Version, Candidates: []wireCandidate{{Family: 1, IP: []byte("/x")}}}), addr.ErrUnsupportedFamily},
		{"short ipv6", encode(wireList{Version: Version, Candidates: []wireCandidate{{Family: wireFamilyIPv6, IP: make([]byte, 4)}}}), nil},
		{"lying flags", encode(wireList{Version: Version, Candidates: []wireCandidate{{Family: wireFamilyIPv4, IP: []byte{127, 0, 0, 1}}}}), nil},
		{"unknown key", encode(map[uint64]any{0: uint64(Version), 1: []any{}, 7: "x"}), nil},
		{"garbage", []byte{0xff, 0x00}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeCandidates(tc.data)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestEncodeCandidatesRejectsUnsupported(t *testing.T) {
	_, err := EncodeCandidates([]Candidate{{Record: addr.Record{Addr: &addr.Other{Fam: addr.FamilyUnix}}}})
	if !errors.Is(err, addr.ErrUnsupportedFamily) {
		t.Fatalf("expected unsupported family, got %v", err)
	}
}

func TestCandidateJSON(t *testing.T) {
	c := candidateFor(t, "[::1]:9")
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"address":"[::1]:9","family":"ipv6","length":28,"local":true,"temporary":false}`
	if string(data) != want {
		t.Fatalf("got %s", data)
	}

	var back Candidate
	if err := json.Unmarshal([]byte(`{"address":"[::ffff:10.1.2.3]:7","local":true}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Local || back.Record.Len != addr.SizeofInet6 {
		t.Fatalf("candidate not reclassified: %+v", back)
	}
	if err := json.Unmarshal([]byte(`{"address":"nope"}`), &back); err == nil {
		t.Fatalf("expected parse error")
	}
}
