package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/cryptalias/interfaces"
)

// DiscoveryClient implements interfaces.ConfigFetcher by fetching a domain's
// well-known cryptalias configuration over HTTPS.
type DiscoveryClient struct {
	// HTTPClient performs the request. http.DefaultClient is used when nil.
	HTTPClient *http.Client

	Log *slog.Logger
}

// NewDiscoveryClient creates a discovery client with its own HTTP client.
//
// Parameters:
//   - log: Logger for request diagnostics (slog.Default() when nil)
//   - timeout: Request timeout duration (optional, default 30 seconds)
func NewDiscoveryClient(log *slog.Logger, timeout ...time.Duration) *DiscoveryClient {
	return &DiscoveryClient{
		HTTPClient: newHTTPClient(timeout),
		Log:        log,
	}
}

// ConfigURL returns the well-known configuration URL for a domain.
func ConfigURL(domain string) string {
	return fmt.Sprintf("https://%s%s", domain, interfaces.WellKnownConfigurationPath)
}

// FetchConfig retrieves the configuration of domain and extracts the resolver
// endpoint and signing key. A single attempt is made.
func (c *DiscoveryClient) FetchConfig(ctx context.Context, domain string) (*interfaces.DiscoveryConfig, error) {
	configURL := ConfigURL(domain)

	// The domain comes from user input; it must not smuggle in a path,
	// credentials, or a different host.
	parsed, err := url.Parse(configURL)
	if err != nil || parsed.Host != domain || parsed.User != nil || parsed.Path != interfaces.WellKnownConfigurationPath {
		return nil, interfaces.NewError(interfaces.KindDiscoveryFailed, "invalid domain").WithValue(domain)
	}

	c.logger().Debug("fetching well-known configuration", "domain", domain, "url", configURL)

	body, err := get(ctx, c.HTTPClient, configURL, interfaces.ContentTypeJSON)
	if err != nil {
		return nil, interfaces.WrapError(interfaces.KindDiscoveryFailed, "could not fetch well-known configuration", err).WithValue(configURL)
	}

	var wellKnown interfaces.WellKnownConfiguration
	if err := json.Unmarshal(body, &wellKnown); err != nil {
		return nil, interfaces.WrapError(interfaces.KindDiscoveryFailed, "could not parse well-known configuration", err).WithValue(configURL)
	}

	endpoint := strings.TrimRight(wellKnown.Resolver.ResolverEndpoint, "/")
	if endpoint == "" {
		return nil, interfaces.NewError(interfaces.KindMissingResolverEndpoint, "missing resolver_endpoint in configuration").WithValue(configURL)
	}
	if wellKnown.Key == nil || wellKnown.Key.X == "" {
		return nil, interfaces.NewError(interfaces.KindMissingKey, "missing key in configuration").WithValue(configURL)
	}

	return &interfaces.DiscoveryConfig{
		ResolverEndpoint: endpoint,
		Key:              wellKnown.Key,
		Domain:           wellKnown.Domain,
		Version:          wellKnown.Version,
	}, nil
}

func (c *DiscoveryClient) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}
