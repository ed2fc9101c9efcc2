/*
Package resolver resolves cryptalias aliases to wallet addresses.

A resolution runs these stages in order and stops at the first failure:

 1. Argument checks and alias parsing (no network I/O)
 2. Ticker prefix check against the requested ticker (no network I/O)
 3. Discovery of https://<domain>/.well-known/cryptalias/configuration
 4. Optional DNS TXT key pin check (see package keypin)
 5. GET <resolver_endpoint>/_cryptalias/resolve/<ticker>/<alias>
 6. Strict Ed25519 verification of the returned compact JWS
 7. Expiry enforcement

Every failure is an *interfaces.Error; use interfaces.IsKind or errors.Is
with a kind-only target to branch on it.
*/
package resolver
