package keypin

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/ruteri/cryptalias/cryptoutils"
	"github.com/ruteri/cryptalias/interfaces"
)

// DefaultServer is used when a TXTPinner has no server configured.
const DefaultServer = "127.0.0.53:53"

// Timeout for DNS requests
const reqTimeout = 5 * time.Second

// TXTPinner implements interfaces.KeyPinner using DNS TXT records published
// at _cryptalias.<domain>.
type TXTPinner struct {
	// Server is the host:port of the DNS resolver to query.
	Server string

	// Client performs the exchange. A UDP client with a 5 second timeout is used when nil.
	Client *dns.Client

	Log *slog.Logger
}

// NewTXTPinner creates a pinner querying the given DNS server.
func NewTXTPinner(server string, log *slog.Logger) *TXTPinner {
	if server == "" {
		server = DefaultServer
	}
	return &TXTPinner{
		Server: server,
		Client: &dns.Client{Timeout: reqTimeout},
		Log:    log,
	}
}

// RecordName returns the TXT record name holding the key pin for a domain.
func RecordName(domain string) string {
	return interfaces.KeyPinRecordPrefix + hostOnly(domain)
}

// TXTValue renders the TXT record value that pins pub.
func TXTValue(pub []byte) string {
	return "pubkey=" + base64.StdEncoding.EncodeToString(pub)
}

// ShouldCheck reports whether a domain can carry a DNS pin at all. IP
// literals and localhost names cannot.
func ShouldCheck(domain string) bool {
	host := strings.ToLower(strings.TrimSpace(hostOnly(domain)))
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil {
		return false
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}
	return true
}

func hostOnly(domain string) string {
	if host, _, err := net.SplitHostPort(domain); err == nil {
		return host
	}
	return strings.Trim(domain, "[]")
}

// CheckPin verifies that the key discovered for domain is published in DNS.
func (p *TXTPinner) CheckPin(ctx context.Context, domain string, key *interfaces.PublicKeyMaterial) error {
	if !ShouldCheck(domain) {
		p.logger().Debug("skipping key pin for local domain", "domain", domain)
		return nil
	}

	pub, err := cryptoutils.PublicKeyFromJWK(key)
	if err != nil {
		return err
	}

	name := RecordName(domain)
	records, err := p.LookupTXT(ctx, name)
	if err != nil {
		return interfaces.WrapError(interfaces.KindKeyPinFailed, "key pin lookup failed", err).WithValue(name)
	}

	for _, record := range records {
		for _, pinned := range DecodePinnedKeys(record) {
			if bytes.Equal(pinned, pub) {
				p.logger().Debug("key pin matched", "domain", domain, "record", name)
				return nil
			}
		}
	}

	return interfaces.NewError(interfaces.KindKeyPinMismatch, "discovered key is not pinned in DNS").
		WithValue(strings.Join(records, ", ")).
		WithExpected(TXTValue(pub))
}

// LookupTXT returns the TXT records for name. A name that does not exist
// yields no records and no error.
func (p *TXTPinner) LookupTXT(ctx context.Context, name string) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	m.RecursionDesired = true

	in, err := p.exchange(ctx, m, p.client())
	if err != nil {
		return nil, err
	}
	if in.Truncated {
		tcp := *p.client()
		tcp.Net = "tcp"
		if in, err = p.exchange(ctx, m, &tcp); err != nil {
			return nil, err
		}
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("dns server returned %s", dns.RcodeToString[in.Rcode])
	}

	var records []string
	for _, answer := range in.Answer {
		if txt, ok := answer.(*dns.TXT); ok {
			records = append(records, strings.Join(txt.Txt, ""))
		}
	}
	return records, nil
}

func (p *TXTPinner) exchange(ctx context.Context, m *dns.Msg, c *dns.Client) (*dns.Msg, error) {
	server := p.Server
	if server == "" {
		server = DefaultServer
	}
	in, rtt, err := c.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, err
	}
	p.logger().Debug("dns exchange", "server", server, "name", m.Question[0].Name, "rtt", rtt)
	return in, nil
}

func (p *TXTPinner) client() *dns.Client {
	if p.Client != nil {
		return p.Client
	}
	return &dns.Client{Timeout: reqTimeout}
}

func (p *TXTPinner) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// DecodePinnedKeys extracts the keys from a TXT record value. Providers may
// return several comma-separated values in one record, with or without a
// "pubkey=" prefix, in any base64 alphabet.
func DecodePinnedKeys(record string) [][]byte {
	var keys [][]byte
	for _, part := range strings.Split(record, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "pubkey=")
		if key, ok := decodeBase64Key(part); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func decodeBase64Key(s string) ([]byte, bool) {
	if s == "" {
		return nil, false
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if key, err := enc.DecodeString(s); err == nil {
			return key, true
		}
	}
	return nil, false
}
