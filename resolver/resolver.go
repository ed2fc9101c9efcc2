package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/ruteri/cryptalias/alias"
	"github.com/ruteri/cryptalias/api/clients"
	"github.com/ruteri/cryptalias/cryptoutils"
	"github.com/ruteri/cryptalias/interfaces"
)

// Resolver turns aliases into verified wallet addresses.
//
// A Resolver holds no mutable state and may be shared between goroutines as
// long as its collaborators can.
type Resolver struct {
	discovery  interfaces.ConfigFetcher
	resolution interfaces.TokenFetcher
	pinner     interfaces.KeyPinner
	now        func() time.Time
	log        *slog.Logger
}

// NewResolver creates a resolver from its two network collaborators.
func NewResolver(discovery interfaces.ConfigFetcher, resolution interfaces.TokenFetcher, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		discovery:  discovery,
		resolution: resolution,
		now:        time.Now,
		log:        log,
	}
}

// NewDefaultResolver creates a resolver using the HTTP discovery and
// resolution clients.
//
// Parameters:
//   - log: Logger (slog.Default() when nil)
//   - timeout: Per-request timeout (optional, default 30 seconds)
func NewDefaultResolver(log *slog.Logger, timeout ...time.Duration) *Resolver {
	return NewResolver(clients.NewDiscoveryClient(log, timeout...), clients.NewResolutionClient(log, timeout...), log)
}

// WithKeyPinner returns a copy of the resolver that checks the discovered
// key with pinner before asking the resolver endpoint.
func (r *Resolver) WithKeyPinner(pinner interfaces.KeyPinner) *Resolver {
	out := *r
	out.pinner = pinner
	return &out
}

// WithClock returns a copy of the resolver that reads the current time from now.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	out := *r
	out.now = now
	return &out
}

// ResolveAddress resolves an alias with a default resolver.
func ResolveAddress(ctx context.Context, ticker, rawAlias string) (string, error) {
	return NewDefaultResolver(nil).Resolve(ctx, ticker, rawAlias)
}

// Resolve returns the verified, unexpired address for ticker and alias.
func (r *Resolver) Resolve(ctx context.Context, ticker, rawAlias string) (string, error) {
	res, err := r.ResolveRecord(ctx, ticker, rawAlias)
	if err != nil {
		return "", err
	}
	return res.Address, nil
}

// ResolveRecord runs the full resolution and returns the verified record.
//
// Stages run strictly in order and the first failure is returned unchanged:
// argument and format checks, discovery, the optional key pin, the resolution
// request, signature verification, and expiry.
func (r *Resolver) ResolveRecord(ctx context.Context, ticker, rawAlias string) (*interfaces.Resolution, error) {
	log := r.log.With("alias", rawAlias, "ticker", ticker)

	normalized, err := alias.CheckArguments(ticker, rawAlias)
	if err != nil {
		return nil, r.fail(log, err)
	}
	parsed, err := alias.Parse(rawAlias)
	if err != nil {
		return nil, r.fail(log, err)
	}
	if err := alias.CheckTicker(normalized, parsed); err != nil {
		return nil, r.fail(log, err)
	}

	log.Debug("discovering resolver", "domain", parsed.Domain)
	cfg, err := r.discovery.FetchConfig(ctx, parsed.Domain)
	if err != nil {
		return nil, r.fail(log, err)
	}
	if cfg == nil || cfg.ResolverEndpoint == "" {
		return nil, r.fail(log, interfaces.NewError(interfaces.KindMissingResolverEndpoint, "missing resolver_endpoint in configuration").WithValue(parsed.Domain))
	}
	if cfg.Key == nil {
		return nil, r.fail(log, interfaces.NewError(interfaces.KindMissingKey, "missing key in configuration").WithValue(parsed.Domain))
	}

	if r.pinner != nil {
		if err := r.pinner.CheckPin(ctx, parsed.Domain, cfg.Key); err != nil {
			return nil, r.fail(log, err)
		}
	}

	log.Debug("requesting resolution", "endpoint", cfg.ResolverEndpoint)
	token, err := r.resolution.ResolveToken(ctx, cfg.ResolverEndpoint, normalized, rawAlias)
	if err != nil {
		return nil, r.fail(log, err)
	}

	payload, err := cryptoutils.VerifyToken(token, cfg.Key)
	if err != nil {
		return nil, r.fail(log, err)
	}
	expires, err := cryptoutils.EnforceExpiry(payload, r.now())
	if err != nil {
		return nil, r.fail(log, err)
	}
	if payload.Ticker != "" && alias.NormalizeTicker(payload.Ticker) != normalized {
		return nil, r.fail(log, interfaces.NewError(interfaces.KindTickerMismatch, "signed payload is for another ticker").
			WithValue(payload.Ticker).
			WithExpected(normalized))
	}

	log.Debug("alias resolved", "address", payload.Address, "expires", expires)
	return &interfaces.Resolution{
		Ticker:  normalized,
		Alias:   rawAlias,
		Domain:  parsed.Domain,
		Address: payload.Address,
		Expires: expires,
	}, nil
}

func (r *Resolver) fail(log *slog.Logger, err error) error {
	log.Warn("alias resolution failed", "kind", interfaces.KindOf(err), "err", err)
	return err
}
