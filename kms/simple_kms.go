package kms

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ruteri/cryptalias/cryptoutils"
	"github.com/ruteri/cryptalias/interfaces"
	"github.com/ruteri/cryptalias/keypin"
	"golang.org/x/crypto/hkdf"
)

// ErrMasterKeyTooShort is returned for master keys under 32 bytes.
var ErrMasterKeyTooShort = errors.New("master key must be at least 32 bytes")

const derivationInfoPrefix = "cryptalias/domain-signing-key/v1|"

// SimpleKMS provides deterministic per-domain signing keys.
// It derives keys from a master key, so restarts keep publishing the same keys.
type SimpleKMS struct {
	masterKey []byte

	mu   sync.RWMutex
	keys map[string]ed25519.PrivateKey
}

// NewSimpleKMS creates a new instance with the provided master key.
// The master key must be at least 32 bytes long.
func NewSimpleKMS(masterKey []byte) (*SimpleKMS, error) {
	if len(masterKey) < 32 {
		return nil, ErrMasterKeyTooShort
	}

	k := &SimpleKMS{
		masterKey: make([]byte, len(masterKey)),
		keys:      make(map[string]ed25519.PrivateKey),
	}
	copy(k.masterKey, masterKey)
	return k, nil
}

// SigningKey returns the Ed25519 private key of a domain. Domains are
// case-insensitive.
func (k *SimpleKMS) SigningKey(domain string) (ed25519.PrivateKey, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, errors.New("domain is required")
	}

	k.mu.RLock()
	key, ok := k.keys[domain]
	k.mu.RUnlock()
	if ok {
		return key, nil
	}

	seed := make([]byte, ed25519.SeedSize)
	kdf := hkdf.New(sha256.New, k.masterKey, nil, []byte(derivationInfoPrefix+domain))
	if _, err := io.ReadFull(kdf, seed); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	key = ed25519.NewKeyFromSeed(seed)

	k.mu.Lock()
	k.keys[domain] = key
	k.mu.Unlock()

	return key, nil
}

// PublicKey returns the Ed25519 public key of a domain.
func (k *SimpleKMS) PublicKey(domain string) (ed25519.PublicKey, error) {
	priv, err := k.SigningKey(domain)
	if err != nil {
		return nil, err
	}
	return priv.Public().(ed25519.PublicKey), nil
}

// PublicKeyMaterial returns the domain's public key as a JWK identified by the domain.
func (k *SimpleKMS) PublicKeyMaterial(domain string) (*interfaces.PublicKeyMaterial, error) {
	pub, err := k.PublicKey(domain)
	if err != nil {
		return nil, err
	}
	return cryptoutils.NewPublicKeyMaterial(pub, strings.ToLower(strings.TrimSpace(domain))), nil
}

// DNSTXTValue returns the TXT record value that pins the domain's key.
func (k *SimpleKMS) DNSTXTValue(domain string) (string, error) {
	pub, err := k.PublicKey(domain)
	if err != nil {
		return "", err
	}
	return keypin.TXTValue(pub), nil
}
