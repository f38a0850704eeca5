package gather

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileConfig(t *testing.T) {
	f := false
	cases := []struct {
		name    string
		cfg     FileConfig
		check   func(t *testing.T, c Config)
		wantErr bool
	}{
		{
			name: "defaults",
			cfg:  FileConfig{},
			check: func(t *testing.T, c Config) {
				if !c.IncludeTemporary || c.IncludeLocal || c.MaxCandidates != defaultMaxCandidates || c.WarnInterval != defaultWarnInterval {
					t.Fatalf("unexpected defaults %+v", c)
				}
			},
		},
		{
			name: "explicit false",
			cfg:  FileConfig{IncludeTemporary: &f},
			check: func(t *testing.T, c Config) {
				if c.IncludeTemporary {
					t.Fatalf("include_temporary should be false")
				}
			},
		},
		{
			name: "exclusions",
			cfg:  FileConfig{Exclude: []string{"10.0.0.0/8", "192.0.2.1-192.0.2.9", "2001:db8::1"}},
			check: func(t *testing.T, c Config) {
				for _, s := range []string{"10.200.0.1", "192.0.2.5", "2001:db8::1"} {
					if !c.Exclude.Contains(netip.MustParseAddr(s)) {
						t.Fatalf("%s should be excluded", s)
					}
				}
				for _, s := range []string{"192.0.2.10", "2001:db8::2"} {
					if c.Exclude.Contains(netip.MustParseAddr(s)) {
						t.Fatalf("%s should not be excluded", s)
					}
				}
			},
		},
		{name: "bad prefix", cfg: FileConfig{Exclude: []string{"10.0.0.0/33"}}, wantErr: true},
		{name: "reversed range", cfg: FileConfig{Exclude: []string{"10.0.0.9-10.0.0.1"}}, wantErr: true},
		{name: "zone", cfg: FileConfig{Exclude: []string{"fe80::1%eth0"}}, wantErr: true},
		{name: "negative max", cfg: FileConfig{MaxCandidates: -1}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := tc.cfg.ToConfig()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.check != nil {
				tc.check(t, c)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gather.json")
	data := `{
  "include_local": true,
  "include_temporary": false,
  "exclude": ["198.51.100.0/24"],
  "max_candidates": 8,
  "warn_interval": "1m",
  "log_level": "debug"
}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.IncludeLocal || c.IncludeTemporary || c.MaxCandidates != 8 || c.WarnInterval != time.Minute || c.LogLevel != "debug" {
		t.Fatalf("unexpected config %+v", c)
	}
	if !c.Exclude.Contains(netip.MustParseAddr("198.51.100.1")) {
		t.Fatalf("exclusion not loaded")
	}

	if err := os.WriteFile(path, []byte(`{"include_locals": true}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected unknown field error")
	}
}
