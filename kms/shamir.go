package kms

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/cryptalias/interfaces"
)

var (
	ErrKMSLocked       = errors.New("KMS is locked - need more shares to unlock")
	ErrAlreadyUnlocked = errors.New("KMS is already unlocked")
	ErrInvalidShare    = errors.New("invalid master key share")
)

// SplitMasterKey splits a master key into parts shares, any threshold of
// which reconstruct it. The master key is never written anywhere by this
// package; operators hand the shares out instead.
func SplitMasterKey(masterKey []byte, parts, threshold int) ([][]byte, error) {
	if len(masterKey) < 32 {
		return nil, ErrMasterKeyTooShort
	}
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if parts < threshold {
		return nil, errors.New("total shares must be at least equal to threshold")
	}

	shares, err := shamir.Split(masterKey, parts, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split master key: %w", err)
	}
	return shares, nil
}

// ShamirKMS is a SimpleKMS whose master key is reconstructed from Shamir
// shares. It stays locked, refusing to hand out keys, until threshold
// distinct shares have been submitted.
type ShamirKMS struct {
	mu             sync.RWMutex
	simple         *SimpleKMS
	threshold      int
	receivedShares map[byte][]byte // keyed by the share's x coordinate
}

// NewShamirKMSRecovery creates a locked ShamirKMS.
func NewShamirKMSRecovery(threshold int) (*ShamirKMS, error) {
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	return &ShamirKMS{
		threshold:      threshold,
		receivedShares: make(map[byte][]byte),
	}, nil
}

// SubmitShare records a share and unlocks the KMS once enough distinct shares
// are present. Resubmitting a share is a no-op.
func (k *ShamirKMS) SubmitShare(share []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.simple != nil {
		return ErrAlreadyUnlocked
	}
	// A share is at least one secret byte followed by its x coordinate.
	if len(share) < 2 {
		return ErrInvalidShare
	}
	k.receivedShares[share[len(share)-1]] = append([]byte(nil), share...)

	return k.tryReconstruct()
}

func (k *ShamirKMS) tryReconstruct() error {
	if len(k.receivedShares) < k.threshold {
		return nil
	}

	shares := make([][]byte, 0, len(k.receivedShares))
	for _, share := range k.receivedShares {
		shares = append(shares, share)
	}

	masterKey, err := shamir.Combine(shares)
	if err != nil {
		return fmt.Errorf("failed to reconstruct master key: %w", err)
	}
	defer wipeBytes(masterKey)

	simple, err := NewSimpleKMS(masterKey)
	if err != nil {
		return err
	}
	k.simple = simple

	for i := range k.receivedShares {
		wipeBytes(k.receivedShares[i])
	}
	k.receivedShares = make(map[byte][]byte)
	return nil
}

func (k *ShamirKMS) IsUnlocked() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.simple != nil
}

func (k *ShamirKMS) unlocked() (*SimpleKMS, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.simple == nil {
		return nil, ErrKMSLocked
	}
	return k.simple, nil
}

// SigningKey delegates to the reconstructed SimpleKMS.
func (k *ShamirKMS) SigningKey(domain string) (ed25519.PrivateKey, error) {
	simple, err := k.unlocked()
	if err != nil {
		return nil, err
	}
	return simple.SigningKey(domain)
}

// PublicKeyMaterial delegates to the reconstructed SimpleKMS.
func (k *ShamirKMS) PublicKeyMaterial(domain string) (*interfaces.PublicKeyMaterial, error) {
	simple, err := k.unlocked()
	if err != nil {
		return nil, err
	}
	return simple.PublicKeyMaterial(domain)
}

// DNSTXTValue delegates to the reconstructed SimpleKMS.
func (k *ShamirKMS) DNSTXTValue(domain string) (string, error) {
	simple, err := k.unlocked()
	if err != nil {
		return "", err
	}
	return simple.DNSTXTValue(domain)
}

func wipeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
