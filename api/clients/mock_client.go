package clients

import (
	"context"

	"github.com/ruteri/cryptalias/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockConfigFetcher implements interfaces.ConfigFetcher for testing.
// The behavior is determined by how the mock is configured in tests.
type MockConfigFetcher struct {
	mock.Mock
}

func (m *MockConfigFetcher) FetchConfig(ctx context.Context, domain string) (*interfaces.DiscoveryConfig, error) {
	args := m.Called(ctx, domain)
	cfg, _ := args.Get(0).(*interfaces.DiscoveryConfig)
	return cfg, args.Error(1)
}

// MockTokenFetcher implements interfaces.TokenFetcher for testing.
type MockTokenFetcher struct {
	mock.Mock
}

func (m *MockTokenFetcher) ResolveToken(ctx context.Context, resolverEndpoint, ticker, alias string) (string, error) {
	args := m.Called(ctx, resolverEndpoint, ticker, alias)
	return args.String(0), args.Error(1)
}

// MockKeyPinner implements interfaces.KeyPinner for testing.
type MockKeyPinner struct {
	mock.Mock
}

func (m *MockKeyPinner) CheckPin(ctx context.Context, domain string, key *interfaces.PublicKeyMaterial) error {
	args := m.Called(ctx, domain, key)
	return args.Error(0)
}
