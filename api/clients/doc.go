/*
Package clients provides the HTTP clients for the two network hops of
cryptalias resolution.

# Client Types

1. DiscoveryClient - fetches https://{domain}/.well-known/cryptalias/configuration
2. ResolutionClient - fetches {resolver_endpoint}/_cryptalias/resolve/{ticker}/{alias}
3. MockConfigFetcher, MockTokenFetcher, MockKeyPinner - testify mocks of the
   corresponding interfaces

# Failure Model

Each client performs exactly one request per call. Transport errors, non-2xx
statuses, and undecodable bodies are reported as *interfaces.Error with kind
DiscoveryFailed or ResolutionFailed; retries are left to the caller's
http.Client transport.

Discovery additionally reports MissingResolverEndpoint and MissingKey when the
configuration parses but lacks what resolution needs. Neither client
interprets the signed token: that is cryptoutils' job.
*/
package clients
