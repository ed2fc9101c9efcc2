// Package interfaces defines core interfaces and types for cryptalias
// resolution, separating interface definitions from implementations.
//
// # Resolution Interfaces
//
// ConfigFetcher: Retrieves a domain's well-known configuration and extracts the
// resolver endpoint and the Ed25519 key the domain signs with.
//
// TokenFetcher: Asks a resolver endpoint for a signed resolution token for a
// ticker and alias.
//
// KeyPinner: Optionally confirms the discovered key against an out-of-band
// publication (DNS TXT records under _cryptalias.<domain>).
//
// # Data Types
//
// - ParsedAlias: ticker prefix and domain split from "[ticker:]alias[+tag]$domain"
// - DiscoveryConfig: resolver endpoint and key from the well-known configuration
// - PublicKeyMaterial: JWK with kty "OKP", crv "Ed25519" and base64url x
// - ResolvedPayload: address and RFC3339 expiry carried in the signed token
// - Resolution: the verified result handed to callers
//
// # Errors
//
// Every stage reports failures as *Error tagged with an ErrorKind. Use IsKind
// or KindOf instead of matching message text.
package interfaces
