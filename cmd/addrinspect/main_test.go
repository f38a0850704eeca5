package main

import (
	"testing"
)

func TestInspect(t *testing.T) {
	cases := []struct {
		in   string
		want report
	}{
		{
			in:   "169.254.3.4",
			want: report{Input: "169.254.3.4", Address: "169.254.3.4:0", Family: "ipv4", Length: 16, Local: true},
		},
		{
			in:   "[::ffff:127.0.0.1]:5000",
			want: report{Input: "[::ffff:127.0.0.1]:5000", Address: "[::ffff:127.0.0.1]:5000", Family: "ipv6", Length: 28, Port: 5000, Local: true, Unmapped: "127.0.0.1:5000"},
		},
		{
			in:   "2001:db8::1",
			want: report{Input: "2001:db8::1", Address: "[2001:db8::1]:0", Family: "ipv6", Length: 28, Temporary: true},
		},
		{
			in:   "[2001:db8::200:ff:fe00:1]:443",
			want: report{Input: "[2001:db8::200:ff:fe00:1]:443", Address: "[2001:db8::200:ff:fe00:1]:443", Family: "ipv6", Length: 28, Port: 443},
		},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := inspect(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got.Sockaddr = ""
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
	if _, err := inspect("example.com:80"); err == nil {
		t.Fatalf("expected error for hostname")
	}
}

func TestDecodeBase64(t *testing.T) {
	out, err := decodeBase64([]byte(" aGVs\nbG8=\n"))
	if err != nil || string(out) != "hello" {
		t.Fatalf("got %q %v", out, err)
	}
	if _, err := decodeBase64([]byte("  ")); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
