/*
Package httpserver implements a reference cryptalias resolver.

The server publishes a well-known configuration for every domain it is
configured with and answers resolution requests with a compact JWS signed by
the domain's Ed25519 key. Keys come from a KeyProvider, normally kms.SimpleKMS.

# Endpoints

  - GET /.well-known/cryptalias/configuration - Discovery document, selected by Host
  - GET /.well-known/cryptalias/status - DNS TXT key pin state of the Host's domain
  - GET /_cryptalias/resolve/{ticker}/{alias} - Signed resolution (application/jose), rate limited per client IP
  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready

# Lookup

Aliases are validated with alias.ParseStrict. An entry whose tag and ticker
both match wins; otherwise the root alias is used if its ticker matches.
Unknown domains and aliases return 404, malformed requests 400.

# Configuration

The YAML layout is documented on Config. Domains, aliases, tags and tickers
are compared lower-cased; a domain may appear only once. rate_limit sets the
per-client token bucket for the resolve route and answers 429 once it is
empty; it defaults to 60 requests per minute with a burst of 10.
*/
package httpserver
