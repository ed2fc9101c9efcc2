package httpserver

import (
	"crypto/ed25519"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ruteri/cryptalias/alias"
	"github.com/ruteri/cryptalias/cryptoutils"
	"github.com/ruteri/cryptalias/interfaces"
	"github.com/ruteri/cryptalias/keypin"
)

// KeyProvider supplies the per-domain signing keys. kms.SimpleKMS and
// kms.ShamirKMS implement it.
type KeyProvider interface {
	SigningKey(domain string) (ed25519.PrivateKey, error)
	PublicKeyMaterial(domain string) (*interfaces.PublicKeyMaterial, error)
	// DNSTXTValue is the _cryptalias.<domain> TXT value pinning the key.
	DNSTXTValue(domain string) (string, error)
}

// Handler serves well-known configurations and signed resolutions for the
// domains in its Config.
type Handler struct {
	cfg    *Config
	keys   KeyProvider
	pinner *keypin.TXTPinner
	now    func() time.Time
	log    *slog.Logger
}

// NewHandler creates a new HTTP request handler.
//
// Parameters:
//   - cfg: Normalized configuration, see ParseConfig
//   - keys: Source of the per-domain Ed25519 keys
//   - log: Structured logger
func NewHandler(cfg *Config, keys KeyProvider, log *slog.Logger) *Handler {
	return &Handler{
		cfg:  cfg,
		keys: keys,
		now:  time.Now,
		log:  log,
	}
}

// ResolverEndpoint is the endpoint advertised in every well-known
// configuration. Clients append the resolve path to it.
func (h *Handler) ResolverEndpoint() string {
	return h.cfg.BaseURL
}

// HandleWellKnown serves the discovery document for the domain named by the
// request's Host header.
//
// URL format: GET /.well-known/cryptalias/configuration
func (h *Handler) HandleWellKnown(w http.ResponseWriter, r *http.Request) {
	domain, ok := h.cfg.FindDomain(r.Host)
	if !ok {
		http.Error(w, "unknown domain", http.StatusNotFound)
		return
	}

	key, err := h.keys.PublicKeyMaterial(domain.Domain)
	if err != nil {
		h.log.Error("Failed to derive public key", "domain", domain.Domain, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := interfaces.WellKnownConfiguration{
		Version:      interfaces.ProtocolVersion,
		Domain:       domain.Domain,
		ResolverMode: interfaces.ResolverModeDelegated,
		Resolver:     interfaces.AliasResolver{ResolverEndpoint: h.ResolverEndpoint()},
		Key:          key,
	}

	w.Header().Set("Content-Type", interfaces.ContentTypeJSON)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// HandleResolve looks up an alias and returns a compact JWS over the
// resolved address.
//
// URL format: GET /_cryptalias/resolve/{ticker}/{alias}
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ticker := alias.NormalizeTicker(chi.URLParam(r, "ticker"))
	rawAlias, err := url.PathUnescape(chi.URLParam(r, "alias"))
	if err != nil || ticker == "" || rawAlias == "" {
		http.Error(w, "Missing ticker or alias", http.StatusBadRequest)
		return
	}

	parsed, err := alias.ParseStrict(rawAlias)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := alias.CheckTicker(ticker, parsed); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	domain, ok := h.cfg.FindDomain(parsed.Domain)
	if !ok {
		http.Error(w, "unknown domain", http.StatusNotFound)
		return
	}
	address, ok := domain.Lookup(parsed.Name, parsed.Tag, ticker)
	if !ok {
		http.Error(w, "unknown alias", http.StatusNotFound)
		return
	}

	priv, err := h.keys.SigningKey(domain.Domain)
	if err != nil {
		h.log.Error("Failed to derive signing key", "domain", domain.Domain, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	payload := interfaces.ResolvedPayload{
		Version: interfaces.ProtocolVersion,
		Ticker:  ticker,
		Address: address,
		Expires: h.now().Add(h.cfg.TokenTTL).UTC().Format(time.RFC3339),
		Nonce:   uuid.NewString(),
	}
	token, err := cryptoutils.SignToken(priv, domain.Domain, payload)
	if err != nil {
		h.log.Error("Failed to sign resolution", "domain", domain.Domain, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.log.Debug("Alias resolved", "alias", parsed.Local, "domain", domain.Domain, "ticker", ticker)
	w.Header().Set("Content-Type", interfaces.ContentTypeJOSE)
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(token))
}
