package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ruteri/cryptalias/api/clients"
	"github.com/ruteri/cryptalias/httpserver"
	"github.com/ruteri/cryptalias/interfaces"
	"github.com/ruteri/cryptalias/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// aliasDomain is a TLS test server that serves both the discovery document
// and the resolver endpoint for its own host:port.
type aliasDomain struct {
	srv      *httptest.Server
	requests atomic.Int64
	token    func(ticker, rawAlias string) string
}

func newAliasDomain(t *testing.T, key *interfaces.PublicKeyMaterial, token func(ticker, rawAlias string) string) *aliasDomain {
	t.Helper()
	d := &aliasDomain{token: token}

	mux := http.NewServeMux()
	mux.HandleFunc(interfaces.WellKnownConfigurationPath, func(w http.ResponseWriter, r *http.Request) {
		d.requests.Inc()
		w.Header().Set("Content-Type", interfaces.ContentTypeJSON)
		json.NewEncoder(w).Encode(interfaces.WellKnownConfiguration{
			Version:  interfaces.ProtocolVersion,
			Domain:   d.Domain(),
			Resolver: interfaces.AliasResolver{ResolverEndpoint: d.srv.URL},
			Key:      key,
		})
	})
	mux.HandleFunc(interfaces.ResolvePathPrefix+"/", func(w http.ResponseWriter, r *http.Request) {
		d.requests.Inc()
		ticker, rawAlias, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, interfaces.ResolvePathPrefix+"/"), "/")
		if !ok {
			http.Error(w, "bad path", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", interfaces.ContentTypeJOSE)
		io.WriteString(w, d.token(ticker, rawAlias))
	})

	d.srv = httptest.NewTLSServer(mux)
	t.Cleanup(d.srv.Close)
	return d
}

func (d *aliasDomain) Domain() string {
	return strings.TrimPrefix(d.srv.URL, "https://")
}

func (d *aliasDomain) Resolver() *Resolver {
	log := newTestLogger()
	return NewResolver(
		&clients.DiscoveryClient{HTTPClient: d.srv.Client(), Log: log},
		&clients.ResolutionClient{HTTPClient: d.srv.Client(), Log: log},
		log,
	)
}

func TestEndToEnd_Resolve(t *testing.T) {
	priv, key := testKeys(3)
	d := newAliasDomain(t, key, func(ticker, rawAlias string) string {
		assert.Equal(t, "eth", ticker)
		return signPayload(t, priv, interfaces.ResolvedPayload{
			Address: "0xabc",
			Ticker:  ticker,
			Expires: time.Now().Add(time.Minute).UTC().Format(time.RFC3339),
		})
	})

	address, err := d.Resolver().Resolve(context.Background(), "eth", "alice$"+d.Domain())
	require.NoError(t, err)
	assert.Equal(t, "0xabc", address)
	assert.Equal(t, int64(2), d.requests.Load())
}

func TestEndToEnd_TickerMismatchMakesNoRequests(t *testing.T) {
	priv, key := testKeys(3)
	d := newAliasDomain(t, key, func(string, string) string {
		return signPayload(t, priv, interfaces.ResolvedPayload{Address: "0xabc", Expires: "2099-01-01T00:00:00Z"})
	})

	_, err := d.Resolver().Resolve(context.Background(), "btc", "eth:alice$"+d.Domain())
	assert.True(t, interfaces.IsKind(err, interfaces.KindTickerMismatch), "unexpected error: %v", err)
	assert.Equal(t, int64(0), d.requests.Load())
}

func TestEndToEnd_Expired(t *testing.T) {
	priv, key := testKeys(3)
	d := newAliasDomain(t, key, func(string, string) string {
		return signPayload(t, priv, interfaces.ResolvedPayload{
			Address: "0xabc",
			Expires: time.Now().Add(-time.Second).UTC().Format(time.RFC3339),
		})
	})

	_, err := d.Resolver().Resolve(context.Background(), "eth", "alice$"+d.Domain())
	assert.True(t, interfaces.IsKind(err, interfaces.KindExpired), "unexpected error: %v", err)
}

func TestEndToEnd_ForeignSignature(t *testing.T) {
	_, key := testKeys(3)
	otherPriv, _ := testKeys(4)
	d := newAliasDomain(t, key, func(string, string) string {
		return signPayload(t, otherPriv, interfaces.ResolvedPayload{Address: "0xevil", Expires: "2099-01-01T00:00:00Z"})
	})

	address, err := d.Resolver().Resolve(context.Background(), "eth", "alice$"+d.Domain())
	assert.Empty(t, address)
	assert.True(t, interfaces.IsKind(err, interfaces.KindInvalidSignature), "unexpected error: %v", err)
}

const referenceConfig = `
base_url: %s
token_ttl: 2m
domains:
  - domain: 127.0.0.1
    aliases:
      - alias: alice
        ticker: eth
        address: "0xAlice"
        tags:
          - tag: tips
            address: "0xTips"
      - alias: alice
        ticker: xmr
        address: 4AliceMonero
`

func TestEndToEnd_ReferenceServer(t *testing.T) {
	log := newTestLogger()
	ts := httptest.NewUnstartedServer(nil)

	cfg, err := httpserver.ParseConfig([]byte(fmt.Sprintf(referenceConfig, "https://"+ts.Listener.Addr().String())))
	require.NoError(t, err)
	keys, err := kms.NewSimpleKMS(bytes.Repeat([]byte{0x5a}, 32))
	require.NoError(t, err)

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{Log: log}, httpserver.NewHandler(cfg, keys, log))
	require.NoError(t, err)
	ts.Config.Handler = srv.Router()
	ts.StartTLS()
	t.Cleanup(ts.Close)

	domain := ts.Listener.Addr().String()
	r := NewResolver(
		&clients.DiscoveryClient{HTTPClient: ts.Client(), Log: log},
		&clients.ResolutionClient{HTTPClient: ts.Client(), Log: log},
		log,
	)

	tests := []struct {
		ticker, alias string
		want          string
		kind          interfaces.ErrorKind
	}{
		{ticker: "eth", alias: "alice$" + domain, want: "0xAlice"},
		{ticker: "ETH", alias: "alice+tips$" + domain, want: "0xTips"},
		{ticker: "xmr", alias: "XMR:alice$" + domain, want: "4AliceMonero"},
		{ticker: "btc", alias: "alice$" + domain, kind: interfaces.KindResolutionFailed},
		{ticker: "eth", alias: "bob$" + domain, kind: interfaces.KindResolutionFailed},
		{ticker: "eth", alias: "-bad$" + domain, kind: interfaces.KindResolutionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.ticker+" "+tt.alias, func(t *testing.T) {
			res, err := r.ResolveRecord(context.Background(), tt.ticker, tt.alias)
			if tt.kind != "" {
				assert.True(t, interfaces.IsKind(err, tt.kind), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Address)
			assert.WithinDuration(t, time.Now().Add(2*time.Minute), res.Expires, 5*time.Second)
		})
	}
}
