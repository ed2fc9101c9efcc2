package cryptoutils

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/ruteri/cryptalias/interfaces"
)

// PublicKeyFromJWK converts JWK key material into an Ed25519 public key.
//
// The key must be kty "OKP" with crv "Ed25519", and x must be the unpadded
// base64url encoding of a canonical, non-small-order curve point.
func PublicKeyFromJWK(key *interfaces.PublicKeyMaterial) (ed25519.PublicKey, error) {
	if key == nil {
		return nil, interfaces.NewError(interfaces.KindInvalidKey, "no key material")
	}
	if key.KeyType != interfaces.KeyTypeOKP || key.Curve != interfaces.CurveEd25519 {
		return nil, interfaces.NewError(interfaces.KindInvalidKey, "unsupported key type").
			WithValue(key.KeyType + "/" + key.Curve).
			WithExpected(interfaces.KeyTypeOKP + "/" + interfaces.CurveEd25519)
	}

	pub, err := base64.RawURLEncoding.DecodeString(key.X)
	if err != nil {
		return nil, interfaces.WrapError(interfaces.KindInvalidKey, "invalid key encoding", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, interfaces.NewError(interfaces.KindInvalidKey, fmt.Sprintf("invalid public key length %d", len(pub))).
			WithExpected(fmt.Sprint(ed25519.PublicKeySize))
	}
	if err := checkStrictPoint(pub); err != nil {
		return nil, interfaces.WrapError(interfaces.KindInvalidKey, "weak public key", err)
	}

	return ed25519.PublicKey(pub), nil
}

// NewPublicKeyMaterial encodes an Ed25519 public key as JWK key material.
func NewPublicKeyMaterial(pub ed25519.PublicKey, keyID string) *interfaces.PublicKeyMaterial {
	return &interfaces.PublicKeyMaterial{
		KeyType: interfaces.KeyTypeOKP,
		Curve:   interfaces.CurveEd25519,
		X:       base64.RawURLEncoding.EncodeToString(pub),
		KeyID:   keyID,
	}
}

// checkStrictPoint rejects non-canonical encodings and points of small order.
func checkStrictPoint(b []byte) error {
	p, err := new(edwards25519.Point).SetBytes(b)
	if err != nil {
		return err
	}
	// SetBytes accepts some non-canonical encodings of y.
	if string(p.Bytes()) != string(b) {
		return fmt.Errorf("non-canonical point encoding")
	}
	if new(edwards25519.Point).MultByCofactor(p).Equal(edwards25519.NewIdentityPoint()) == 1 {
		return fmt.Errorf("point of small order")
	}
	return nil
}
