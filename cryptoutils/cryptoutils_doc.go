// Package cryptoutils verifies the signed records returned by cryptalias resolvers.
//
// # Token Verification
//
// Resolvers answer with a compact JWS: three base64url segments without
// padding, "header.payload.signature". VerifyToken checks the Ed25519
// signature over the encoded "header.payload" bytes with the key published in
// the domain's well-known configuration, and only decodes the payload once the
// signature holds. DecodeTokenUnverified exists for diagnostics and must never
// feed a trust decision.
//
// # Key Material
//
// Keys travel as JWK key material (kty "OKP", crv "Ed25519", x). PublicKeyFromJWK
// rejects other key types, bad encodings, wrong lengths, and weak points.
//
// # Expiry
//
// EnforceExpiry requires an RFC3339 "expires" claim strictly after the
// reference time.
package cryptoutils
