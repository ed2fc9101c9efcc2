package cryptoutils

import (
	"time"

	"github.com/ruteri/cryptalias/interfaces"
)

// EnforceExpiry checks that a verified payload is still valid at now and
// returns the parsed expiry. An expiry equal to now counts as expired. Only an
// absent expiry is MissingExpiry; anything present but unparseable, blank
// included, is MalformedPayload.
func EnforceExpiry(payload *interfaces.ResolvedPayload, now time.Time) (time.Time, error) {
	if payload == nil || payload.Expires == "" {
		return time.Time{}, interfaces.NewError(interfaces.KindMissingExpiry, "missing expires in token payload")
	}

	expires, err := time.Parse(time.RFC3339, payload.Expires)
	if err != nil {
		return time.Time{}, interfaces.WrapError(interfaces.KindMalformedPayload, "invalid expires in token payload", err).
			WithValue(payload.Expires).
			WithExpected("RFC3339 timestamp")
	}

	if !expires.After(now) {
		return time.Time{}, interfaces.NewError(interfaces.KindExpired, "resolved address has expired").
			WithValue(payload.Expires)
	}
	return expires, nil
}
