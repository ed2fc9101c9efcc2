package resolver

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ruteri/cryptalias/api/clients"
	"github.com/ruteri/cryptalias/cryptoutils"
	"github.com/ruteri/cryptalias/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testEndpoint = "https://resolver.example.com"

var testNow = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testKeys(seed byte) (ed25519.PrivateKey, *interfaces.PublicKeyMaterial) {
	priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	return priv, cryptoutils.NewPublicKeyMaterial(priv.Public().(ed25519.PublicKey), "example.com")
}

func signPayload(t *testing.T, priv ed25519.PrivateKey, payload interfaces.ResolvedPayload) string {
	t.Helper()
	token, err := cryptoutils.SignToken(priv, "example.com", payload)
	require.NoError(t, err)
	return token
}

type fixture struct {
	discovery  *clients.MockConfigFetcher
	resolution *clients.MockTokenFetcher
	resolver   *Resolver
	priv       ed25519.PrivateKey
	key        *interfaces.PublicKeyMaterial
}

func newFixture() *fixture {
	priv, key := testKeys(1)
	f := &fixture{
		discovery:  new(clients.MockConfigFetcher),
		resolution: new(clients.MockTokenFetcher),
		priv:       priv,
		key:        key,
	}
	f.resolver = NewResolver(f.discovery, f.resolution, newTestLogger()).
		WithClock(func() time.Time { return testNow })
	return f
}

func (f *fixture) expectDiscovery() {
	f.discovery.On("FetchConfig", mock.Anything, "example.com").Return(&interfaces.DiscoveryConfig{
		ResolverEndpoint: testEndpoint,
		Key:              f.key,
		Domain:           "example.com",
		Version:          1,
	}, nil)
}

func (f *fixture) expectToken(ticker, rawAlias, token string) {
	f.resolution.On("ResolveToken", mock.Anything, testEndpoint, ticker, rawAlias).Return(token, nil)
}

func (f *fixture) assertNoNetwork(t *testing.T) {
	t.Helper()
	f.discovery.AssertNotCalled(t, "FetchConfig", mock.Anything, mock.Anything)
	f.resolution.AssertNotCalled(t, "ResolveToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_Success(t *testing.T) {
	f := newFixture()
	f.expectDiscovery()
	f.expectToken("eth", "ETH:alice+tips$example.com", signPayload(t, f.priv, interfaces.ResolvedPayload{
		Address: "0xabc",
		Expires: testNow.Add(time.Minute).Format(time.RFC3339),
		Ticker:  "eth",
		Version: 1,
	}))

	res, err := f.resolver.ResolveRecord(context.Background(), " ETH ", "ETH:alice+tips$example.com")
	require.NoError(t, err)
	assert.Equal(t, "eth", res.Ticker)
	assert.Equal(t, "ETH:alice+tips$example.com", res.Alias)
	assert.Equal(t, "example.com", res.Domain)
	assert.Equal(t, "0xabc", res.Address)
	assert.True(t, testNow.Add(time.Minute).Equal(res.Expires), "expires %s", res.Expires)

	address, err := f.resolver.Resolve(context.Background(), "eth", "ETH:alice+tips$example.com")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", address)

	f.discovery.AssertExpectations(t)
	f.resolution.AssertExpectations(t)
}

func TestResolve_PlainAlias(t *testing.T) {
	f := newFixture()
	f.expectDiscovery()
	f.expectToken("eth", "alice$example.com", signPayload(t, f.priv, interfaces.ResolvedPayload{
		Address: "0xABC0000000000000000000000000000000000001",
		Expires: "2031-06-01T00:00:00Z",
	}))

	address, err := f.resolver.Resolve(context.Background(), "eth", "alice$example.com")
	require.NoError(t, err)
	assert.Equal(t, "0xABC0000000000000000000000000000000000001", address)
}

func TestResolve_ChecksBeforeNetwork(t *testing.T) {
	tests := map[string]struct {
		ticker, alias string
		kind          interfaces.ErrorKind
	}{
		"empty ticker":    {"", "alice$example.com", interfaces.KindMissingArgument},
		"blank ticker":    {"  ", "alice$example.com", interfaces.KindMissingArgument},
		"empty alias":     {"eth", "", interfaces.KindMissingArgument},
		"no domain":       {"eth", "alice", interfaces.KindInvalidFormat},
		"trailing dollar": {"eth", "alice$", interfaces.KindInvalidFormat},
		"bad prefix":      {"eth", ":alice$example.com", interfaces.KindInvalidFormat},
		"prefix mismatch": {"btc", "eth:alice$example.com", interfaces.KindTickerMismatch},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			_, err := f.resolver.Resolve(context.Background(), tt.ticker, tt.alias)
			require.Error(t, err)
			assert.True(t, interfaces.IsKind(err, tt.kind), "unexpected error: %v", err)
			f.assertNoNetwork(t)
		})
	}
}

func TestResolve_DiscoveryErrors(t *testing.T) {
	_, key := testKeys(1)

	tests := map[string]struct {
		cfg  *interfaces.DiscoveryConfig
		err  error
		kind interfaces.ErrorKind
	}{
		"fetch failed": {
			err:  interfaces.NewError(interfaces.KindDiscoveryFailed, "endpoint returned error 500"),
			kind: interfaces.KindDiscoveryFailed,
		},
		"no config": {
			kind: interfaces.KindMissingResolverEndpoint,
		},
		"empty endpoint": {
			cfg:  &interfaces.DiscoveryConfig{Key: key},
			kind: interfaces.KindMissingResolverEndpoint,
		},
		"no key": {
			cfg:  &interfaces.DiscoveryConfig{ResolverEndpoint: testEndpoint},
			kind: interfaces.KindMissingKey,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.discovery.On("FetchConfig", mock.Anything, "example.com").Return(tt.cfg, tt.err)

			_, err := f.resolver.Resolve(context.Background(), "eth", "alice$example.com")
			assert.True(t, interfaces.IsKind(err, tt.kind), "unexpected error: %v", err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
			f.resolution.AssertNotCalled(t, "ResolveToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestResolve_ResolutionFailed(t *testing.T) {
	f := newFixture()
	f.expectDiscovery()
	cause := interfaces.NewError(interfaces.KindResolutionFailed, "endpoint returned error 404: unknown alias")
	f.resolution.On("ResolveToken", mock.Anything, testEndpoint, "eth", "alice$example.com").Return("", cause)

	_, err := f.resolver.Resolve(context.Background(), "eth", "alice$example.com")
	assert.ErrorIs(t, err, cause)
	assert.True(t, interfaces.IsKind(err, interfaces.KindResolutionFailed))
}

func TestResolve_TokenErrors(t *testing.T) {
	otherPriv, _ := testKeys(2)

	tests := map[string]struct {
		token func(f *fixture) string
		kind  interfaces.ErrorKind
	}{
		"malformed": {
			token: func(*fixture) string { return "not-a-token" },
			kind:  interfaces.KindMalformedToken,
		},
		"wrong key": {
			token: func(*fixture) string {
				return signPayload(t, otherPriv, interfaces.ResolvedPayload{Address: "0xabc", Expires: "2031-01-01T00:00:00Z"})
			},
			kind: interfaces.KindInvalidSignature,
		},
		"missing expiry": {
			token: func(f *fixture) string {
				return signPayload(t, f.priv, interfaces.ResolvedPayload{Address: "0xabc"})
			},
			kind: interfaces.KindMissingExpiry,
		},
		"unparseable expiry": {
			token: func(f *fixture) string {
				return signPayload(t, f.priv, interfaces.ResolvedPayload{Address: "0xabc", Expires: "tomorrow"})
			},
			kind: interfaces.KindMalformedPayload,
		},
		"expires now": {
			token: func(f *fixture) string {
				return signPayload(t, f.priv, interfaces.ResolvedPayload{Address: "0xabc", Expires: testNow.Format(time.RFC3339)})
			},
			kind: interfaces.KindExpired,
		},
		"expired": {
			token: func(f *fixture) string {
				return signPayload(t, f.priv, interfaces.ResolvedPayload{Address: "0xabc", Expires: "2020-01-01T00:00:00Z"})
			},
			kind: interfaces.KindExpired,
		},
		"payload for another ticker": {
			token: func(f *fixture) string {
				return signPayload(t, f.priv, interfaces.ResolvedPayload{Address: "bc1q", Ticker: "btc", Expires: "2031-01-01T00:00:00Z"})
			},
			kind: interfaces.KindTickerMismatch,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.expectDiscovery()
			f.expectToken("eth", "alice$example.com", tt.token(f))

			address, err := f.resolver.Resolve(context.Background(), "eth", "alice$example.com")
			assert.Empty(t, address)
			assert.True(t, interfaces.IsKind(err, tt.kind), "unexpected error: %v", err)
		})
	}
}

func TestResolve_KeyPinner(t *testing.T) {
	t.Run("mismatch stops resolution", func(t *testing.T) {
		f := newFixture()
		f.expectDiscovery()
		pinner := new(clients.MockKeyPinner)
		pinner.On("CheckPin", mock.Anything, "example.com", f.key).
			Return(interfaces.NewError(interfaces.KindKeyPinMismatch, "no TXT record pins the discovered key"))

		_, err := f.resolver.WithKeyPinner(pinner).Resolve(context.Background(), "eth", "alice$example.com")
		assert.True(t, interfaces.IsKind(err, interfaces.KindKeyPinMismatch))
		f.resolution.AssertNotCalled(t, "ResolveToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		pinner.AssertExpectations(t)
	})

	t.Run("match continues", func(t *testing.T) {
		f := newFixture()
		f.expectDiscovery()
		f.expectToken("eth", "alice$example.com", signPayload(t, f.priv, interfaces.ResolvedPayload{
			Address: "0xabc",
			Expires: "2031-01-01T00:00:00Z",
		}))
		pinner := new(clients.MockKeyPinner)
		pinner.On("CheckPin", mock.Anything, "example.com", f.key).Return(nil)

		pinned := f.resolver.WithKeyPinner(pinner)
		address, err := pinned.Resolve(context.Background(), "eth", "alice$example.com")
		require.NoError(t, err)
		assert.Equal(t, "0xabc", address)
		pinner.AssertExpectations(t)

		assert.Nil(t, f.resolver.pinner, "WithKeyPinner must not modify the receiver")
	})
}
