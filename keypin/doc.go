// Package keypin anchors a domain's cryptalias signing key in DNS.
//
// A domain publishes its Ed25519 key as a TXT record at _cryptalias.<domain>
// with the value "pubkey=<base64 key>". TXTPinner queries that record with a
// DNS client and fails resolution when the key served by the well-known
// configuration is not among the published ones, so that a compromised web
// origin alone cannot substitute its own key.
package keypin
