package interfaces

import (
	"context"
	"time"
)

// Protocol constants shared by clients and the reference server.
const (
	// WellKnownConfigurationPath is served under the HTTPS origin of every alias domain.
	WellKnownConfigurationPath = "/.well-known/cryptalias/configuration"
	// WellKnownStatusPath reports a served domain's DNS key pin state.
	WellKnownStatusPath = "/.well-known/cryptalias/status"

	// ResolvePathPrefix is appended to the resolver endpoint, followed by /{ticker}/{alias}.
	ResolvePathPrefix = "/_cryptalias/resolve"

	// KeyPinRecordPrefix is prepended to the domain for DNS TXT key pin lookups.
	KeyPinRecordPrefix = "_cryptalias."

	ContentTypeJSON = "application/json"
	ContentTypeJOSE = "application/jose"

	KeyTypeOKP   = "OKP"
	CurveEd25519 = "Ed25519"

	// ProtocolVersion is the version advertised in configuration and payloads.
	ProtocolVersion uint = 1
)

// ParsedAlias is the result of splitting an alias string.
// TickerPrefix is empty when the alias carries no "ticker:" prefix.
type ParsedAlias struct {
	TickerPrefix string
	Domain       string

	// Local is everything left of the final "$" without the ticker prefix.
	Local string
	// Name and Tag split Local on the first "+". Tag is empty if none.
	Name string
	Tag  string
}

// PublicKeyMaterial is the JWK form of the domain's signing key.
type PublicKeyMaterial struct {
	KeyType string `json:"kty" yaml:"kty"`
	Curve   string `json:"crv" yaml:"crv"`
	X       string `json:"x" yaml:"x"`
	KeyID   string `json:"kid,omitempty" yaml:"kid,omitempty"`
}

// AliasResolver is the resolver section of the well-known configuration.
type AliasResolver struct {
	ResolverEndpoint string `json:"resolver_endpoint"`
}

// ResolverMode describes how a domain answers resolution queries.
type ResolverMode string

// ResolverModeDelegated is the only mode: resolution is delegated to the
// advertised resolver endpoint.
const ResolverModeDelegated ResolverMode = "delegated"

// WellKnownConfiguration is the document published at WellKnownConfigurationPath.
type WellKnownConfiguration struct {
	Version      uint               `json:"version,omitempty"`
	Domain       string             `json:"domain,omitempty"`
	ResolverMode ResolverMode       `json:"resolver_mode,omitempty"`
	Resolver     AliasResolver      `json:"resolver"`
	Key          *PublicKeyMaterial `json:"key,omitempty"`
}

// DiscoveryConfig is what a client extracts from the well-known configuration.
// It is fetched once per resolution and never cached.
type DiscoveryConfig struct {
	// ResolverEndpoint has trailing slashes removed and is never empty.
	ResolverEndpoint string
	// Key is never nil in a DiscoveryConfig returned by a ConfigFetcher.
	Key *PublicKeyMaterial

	Domain  string
	Version uint
}

// ResolvedPayload is the signed body of a resolution token.
type ResolvedPayload struct {
	Address string `json:"address"`
	Expires string `json:"expires,omitempty"`

	Ticker  string `json:"ticker,omitempty"`
	Version uint   `json:"version,omitempty"`
	Nonce   string `json:"nonce,omitempty"`
}

// Resolution is a verified, unexpired resolution result.
type Resolution struct {
	Ticker  string    `json:"ticker"`
	Alias   string    `json:"alias"`
	Domain  string    `json:"domain"`
	Address string    `json:"address"`
	Expires time.Time `json:"expires"`
}

// ConfigFetcher retrieves the well-known configuration of a domain.
type ConfigFetcher interface {
	FetchConfig(ctx context.Context, domain string) (*DiscoveryConfig, error)
}

// TokenFetcher obtains a signed resolution token from a resolver endpoint.
// The alias is passed in its raw "[ticker:]alias[+tag]$domain" form.
type TokenFetcher interface {
	ResolveToken(ctx context.Context, resolverEndpoint, ticker, alias string) (string, error)
}

// KeyPinner checks the discovered key against an out-of-band publication of it.
type KeyPinner interface {
	CheckPin(ctx context.Context, domain string, key *PublicKeyMaterial) error
}
