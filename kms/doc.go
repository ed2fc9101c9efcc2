// Package kms provides signing keys for the reference cryptalias resolver.
//
// # SimpleKMS
//
// A basic implementation that derives one Ed25519 key per domain from a
// master key with HKDF-SHA256. Derivation is deterministic, so the keys
// published in well-known configurations and DNS TXT pins stay stable across
// service restarts. Derived keys are memoized; SimpleKMS is safe for
// concurrent use.
//
// # ShamirKMS
//
// Wraps SimpleKMS so the master key never has to exist outside the running
// process. SplitMasterKey cuts the key into Shamir shares (hashicorp/vault's
// implementation); a ShamirKMS created with NewShamirKMSRecovery stays locked
// until threshold distinct shares are submitted, then behaves like the
// SimpleKMS for the reconstructed key.
package kms
