package cryptoutils

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ruteri/cryptalias/interfaces"
)

// TokenHeader is the protected header of resolution tokens.
type TokenHeader struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ,omitempty"`
	KeyID     string `json:"kid,omitempty"`
}

// AlgorithmEdDSA is the only signature algorithm tokens may use.
const AlgorithmEdDSA = "EdDSA"

func splitToken(token string) ([]string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, interfaces.NewError(interfaces.KindMalformedToken, fmt.Sprintf("token has %d segments", len(parts))).
			WithExpected("header.payload.signature")
	}
	for i, part := range parts {
		if part == "" {
			return nil, interfaces.NewError(interfaces.KindMalformedToken, fmt.Sprintf("token segment %d is empty", i))
		}
	}
	return parts, nil
}

// VerifyToken verifies a compact JWS against the discovered key and only then
// decodes its payload.
//
// The signature covers the encoded "header.payload" bytes. Verification is
// strict: the key and the signature's R must be canonical points outside the
// small-order subgroup, and S must be reduced.
func VerifyToken(token string, key *interfaces.PublicKeyMaterial) (*interfaces.ResolvedPayload, error) {
	parts, err := splitToken(token)
	if err != nil {
		return nil, err
	}
	signingInput := []byte(parts[0] + "." + parts[1])

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, interfaces.WrapError(interfaces.KindMalformedToken, "invalid signature encoding", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, interfaces.NewError(interfaces.KindMalformedToken, fmt.Sprintf("invalid signature length %d", len(sig))).
			WithExpected(fmt.Sprint(ed25519.SignatureSize))
	}

	pub, err := PublicKeyFromJWK(key)
	if err != nil {
		return nil, err
	}

	if err := checkStrictPoint(sig[:32]); err != nil {
		return nil, interfaces.WrapError(interfaces.KindInvalidSignature, "signature verification failed", err)
	}
	// ed25519.Verify rejects S >= L.
	if !ed25519.Verify(pub, signingInput, sig) {
		return nil, interfaces.NewError(interfaces.KindInvalidSignature, "signature verification failed")
	}

	return decodePayload(parts[1])
}

// DecodeTokenUnverified decodes the payload of a token without checking its
// signature. It is meant for diagnostics only: nothing it returns is trusted.
func DecodeTokenUnverified(token string) (*interfaces.ResolvedPayload, error) {
	parts, err := splitToken(token)
	if err != nil {
		return nil, err
	}
	return decodePayload(parts[1])
}

// DecodeTokenHeader decodes the protected header without checking the signature.
func DecodeTokenHeader(token string) (*TokenHeader, error) {
	parts, err := splitToken(token)
	if err != nil {
		return nil, err
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, interfaces.WrapError(interfaces.KindMalformedToken, "invalid header encoding", err)
	}
	var header TokenHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, interfaces.WrapError(interfaces.KindMalformedToken, "invalid header JSON", err)
	}
	return &header, nil
}

func decodePayload(segment string) (*interfaces.ResolvedPayload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, interfaces.WrapError(interfaces.KindMalformedPayload, "invalid payload encoding", err)
	}
	var payload interfaces.ResolvedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, interfaces.WrapError(interfaces.KindMalformedPayload, "invalid payload JSON", err)
	}
	if payload.Address == "" {
		return nil, interfaces.NewError(interfaces.KindMalformedPayload, "missing address in token payload")
	}

	// An empty string is indistinguishable from an absent field once decoded.
	var present struct {
		Expires *string `json:"expires"`
	}
	if err := json.Unmarshal(raw, &present); err == nil && present.Expires != nil && strings.TrimSpace(*present.Expires) == "" {
		return nil, interfaces.NewError(interfaces.KindMalformedPayload, "blank expires in token payload").
			WithExpected("RFC3339 timestamp")
	}
	return &payload, nil
}

// SignToken produces a compact EdDSA JWS over the JSON encoding of payload.
func SignToken(priv ed25519.PrivateKey, keyID string, payload any) (string, error) {
	header, err := json.Marshal(TokenHeader{Algorithm: AlgorithmEdDSA, Type: "JWT", KeyID: keyID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token header: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token payload: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(header) + "." + base64.RawURLEncoding.EncodeToString(body)
	sig := ed25519.Sign(priv, []byte(signingInput))
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}
