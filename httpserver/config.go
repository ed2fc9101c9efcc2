package httpserver

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTokenTTL is the lifetime of a signed resolution when the
// configuration does not set token_ttl.
const DefaultTokenTTL = 60 * time.Second

// Per-client resolve limits used when rate_limit leaves them unset.
const (
	DefaultRequestsPerMinute = 60
	DefaultBurst             = 10
)

var (
	ErrDuplicateDomain = errors.New("duplicate domain in configuration")
	ErrMissingBaseURL  = errors.New("base_url is required")
	ErrInvalidEntry    = errors.New("invalid configuration entry")
)

// Config is the YAML document served by the reference resolver.
//
//	base_url: https://pay.example.com
//	token_ttl: 60s
//	rate_limit:
//	  requests_per_minute: 60
//	  burst: 10
//	domains:
//	  - domain: example.com
//	    aliases:
//	      - alias: alice
//	        ticker: eth
//	        address: "0xabc"
//	        tags:
//	          - tag: tips
//	            ticker: eth
//	            address: "0xdef"
type Config struct {
	BaseURL   string          `yaml:"base_url"`
	TokenTTL  time.Duration   `yaml:"token_ttl"`
	RateLimit RateLimitConfig `yaml:"rate_limit,omitempty"`
	Domains   []DomainConfig  `yaml:"domains"`
}

// RateLimitConfig bounds resolve requests per client IP.
type RateLimitConfig struct {
	// Enabled defaults to true when omitted.
	Enabled           *bool `yaml:"enabled,omitempty"`
	RequestsPerMinute int   `yaml:"requests_per_minute,omitempty"`
	Burst             int   `yaml:"burst,omitempty"`
}

// IsEnabled reports whether resolve requests are rate limited.
func (r RateLimitConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

type DomainConfig struct {
	Domain  string        `yaml:"domain"`
	Aliases []AliasConfig `yaml:"aliases"`
}

type AliasConfig struct {
	Alias   string      `yaml:"alias"`
	Ticker  string      `yaml:"ticker"`
	Address string      `yaml:"address"`
	Tags    []TagConfig `yaml:"tags,omitempty"`
}

type TagConfig struct {
	Tag     string `yaml:"tag"`
	Ticker  string `yaml:"ticker"`
	Address string `yaml:"address"`
}

// LoadConfig reads and validates the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration, lower-cases domains, aliases,
// tags and tickers, and applies defaults.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("%w: rate_limit values must not be negative", ErrInvalidEntry)
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = DefaultBurst
	}

	seen := make(map[string]struct{}, len(c.Domains))
	for i := range c.Domains {
		d := &c.Domains[i]
		d.Domain = lower(d.Domain)
		if d.Domain == "" {
			return fmt.Errorf("%w: domains[%d] has no domain", ErrInvalidEntry, i)
		}
		if _, ok := seen[d.Domain]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateDomain, d.Domain)
		}
		seen[d.Domain] = struct{}{}

		for j := range d.Aliases {
			a := &d.Aliases[j]
			a.Alias, a.Ticker = lower(a.Alias), lower(a.Ticker)
			if a.Alias == "" || a.Ticker == "" || a.Address == "" {
				return fmt.Errorf("%w: %s aliases[%d] needs alias, ticker and address", ErrInvalidEntry, d.Domain, j)
			}
			for k := range a.Tags {
				tag := &a.Tags[k]
				tag.Tag, tag.Ticker = lower(tag.Tag), lower(tag.Ticker)
				if tag.Tag == "" || tag.Address == "" {
					return fmt.Errorf("%w: %s alias %s tags[%d] needs tag and address", ErrInvalidEntry, d.Domain, a.Alias, k)
				}
				if tag.Ticker == "" {
					tag.Ticker = a.Ticker
				}
			}
		}
	}
	return nil
}

// FindDomain returns the domain entry matching host. A port on host is ignored.
func (c *Config) FindDomain(host string) (*DomainConfig, bool) {
	host = lower(stripPort(host))
	for i := range c.Domains {
		if c.Domains[i].Domain == host {
			return &c.Domains[i], true
		}
	}
	return nil, false
}

// Lookup returns the address for name, optional tag and ticker. A matching
// tag wins; otherwise the root entry is used when its ticker matches.
func (d *DomainConfig) Lookup(name, tag, ticker string) (string, bool) {
	for _, a := range d.Aliases {
		if a.Alias != name {
			continue
		}
		if tag != "" {
			for _, t := range a.Tags {
				if t.Tag == tag && t.Ticker == ticker {
					return t.Address, true
				}
			}
		}
		if a.Ticker == ticker {
			return a.Address, true
		}
	}
	return "", false
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
