package clients

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/cryptalias/alias"
	"github.com/ruteri/cryptalias/interfaces"
)

// ResolutionClient implements interfaces.TokenFetcher against a resolver
// endpoint discovered from a well-known configuration.
type ResolutionClient struct {
	// HTTPClient performs the request. http.DefaultClient is used when nil.
	HTTPClient *http.Client

	Log *slog.Logger
}

// NewResolutionClient creates a resolution client with its own HTTP client.
//
// Parameters:
//   - log: Logger for request diagnostics (slog.Default() when nil)
//   - timeout: Request timeout duration (optional, default 30 seconds)
func NewResolutionClient(log *slog.Logger, timeout ...time.Duration) *ResolutionClient {
	return &ResolutionClient{
		HTTPClient: newHTTPClient(timeout),
		Log:        log,
	}
}

// ResolveURL builds the resolution URL. The ticker is normalized and both
// path segments are percent-encoded; the alias keeps its full raw form.
func ResolveURL(resolverEndpoint, ticker, rawAlias string) string {
	return strings.TrimRight(resolverEndpoint, "/") +
		interfaces.ResolvePathPrefix + "/" +
		url.PathEscape(alias.NormalizeTicker(ticker)) + "/" +
		url.PathEscape(rawAlias)
}

// ResolveToken requests a signed resolution token and returns its text unmodified.
func (c *ResolutionClient) ResolveToken(ctx context.Context, resolverEndpoint, ticker, rawAlias string) (string, error) {
	resolveURL := ResolveURL(resolverEndpoint, ticker, rawAlias)
	c.logger().Debug("requesting resolution token", "url", resolveURL)

	body, err := get(ctx, c.HTTPClient, resolveURL, interfaces.ContentTypeJOSE)
	if err != nil {
		return "", interfaces.WrapError(interfaces.KindResolutionFailed, "could not resolve alias", err).WithValue(resolveURL)
	}
	return string(body), nil
}

func (c *ResolutionClient) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}
