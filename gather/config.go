package gather

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"go4.org/netipx"

	"github.com/bridgefall/sockaddr/commons/config"
)

const (
	invalidConfigPrefix  = "invalid config"
	defaultMaxCandidates = 32
	defaultWarnInterval  = 10 * time.Second
)

// FileConfig defines the JSON config for candidate gathering.
type FileConfig struct {
	IncludeLocal     bool            `json:"include_local"`
	IncludeTemporary *bool           `json:"include_temporary"`
	V6Only           bool            `json:"v6_only"`
	Exclude          []string        `json:"exclude"`
	MaxCandidates    int             `json:"max_candidates"`
	WarnInterval     config.Duration `json:"warn_interval"`
	LogLevel         string          `json:"log_level"`
}

// Config controls which interface addresses become candidates.
type Config struct {
	IncludeLocal     bool
	IncludeTemporary bool
	V6Only           bool
	// Exclude drops candidates inside any of its ranges. Nil excludes nothing.
	Exclude       *netipx.IPSet
	MaxCandidates int
	WarnInterval  time.Duration
	LogLevel      string
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return Config{
		IncludeTemporary: true,
		MaxCandidates:    defaultMaxCandidates,
		WarnInterval:     defaultWarnInterval,
	}
}

// ToConfig converts the file config into a Config.
func (c FileConfig) ToConfig() (Config, error) {
	cfg := Config{
		IncludeLocal:     c.IncludeLocal,
		IncludeTemporary: resolveBool(c.IncludeTemporary, true),
		V6Only:           c.V6Only,
		MaxCandidates:    c.MaxCandidates,
		WarnInterval:     c.WarnInterval.Duration,
		LogLevel:         c.LogLevel,
	}
	if len(c.Exclude) > 0 {
		set, err := ParseExclusions(c.Exclude)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", invalidConfigPrefix, err)
		}
		cfg.Exclude = set
	}
	return normalizeConfig(cfg)
}

// LoadConfig reads and validates a JSON config file.
func LoadConfig(path string) (Config, error) {
	var fileCfg FileConfig
	if err := config.LoadJSONFile(path, &fileCfg); err != nil {
		return Config{}, err
	}
	return fileCfg.ToConfig()
}

func normalizeConfig(cfg Config) (Config, error) {
	if cfg.MaxCandidates < 0 {
		return Config{}, fmt.Errorf("%s: max_candidates must be >= 0", invalidConfigPrefix)
	}
	if cfg.MaxCandidates == 0 {
		cfg.MaxCandidates = defaultMaxCandidates
	}
	if cfg.WarnInterval <= 0 {
		cfg.WarnInterval = defaultWarnInterval
	}
	return cfg, nil
}

func resolveBool(val *bool, fallback bool) bool {
	if val == nil {
		return fallback
	}
	return *val
}

// ParseExclusions builds a set from entries that are single addresses
// ("192.0.2.1"), prefixes ("2001:db8::/32") or inclusive ranges
// ("10.0.0.1-10.0.0.9").
func ParseExclusions(entries []string) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for _, entry := range entries {
		r, err := parseRange(entry)
		if err != nil {
			return nil, err
		}
		b.AddRange(r)
	}
	return b.IPSet()
}

func parseRange(s string) (netipx.IPRange, error) {
	s = strings.TrimSpace(s)
	// netipx drops zones, so a zoned entry would silently match every link.
	if strings.Contains(s, "%") {
		return netipx.IPRange{}, fmt.Errorf("exclude %q: zones are not supported", s)
	}
	if from, to, ok := strings.Cut(s, "-"); ok {
		start, err := netip.ParseAddr(strings.TrimSpace(from))
		if err != nil {
			return netipx.IPRange{}, fmt.Errorf("exclude %q: %w", s, err)
		}
		end, err := netip.ParseAddr(strings.TrimSpace(to))
		if err != nil {
			return netipx.IPRange{}, fmt.Errorf("exclude %q: %w", s, err)
		}
		r := netipx.IPRangeFrom(start, end)
		if !r.IsValid() {
			return netipx.IPRange{}, fmt.Errorf("exclude %q: invalid range", s)
		}
		return r, nil
	}
	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return netipx.IPRange{}, fmt.Errorf("exclude %q: %w", s, err)
		}
		return netipx.RangeOfPrefix(prefix.Masked()), nil
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netipx.IPRange{}, fmt.Errorf("exclude %q: %w", s, err)
	}
	return netipx.IPRangeFrom(ip, ip), nil
}
