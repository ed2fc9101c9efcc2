package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ruteri/cryptalias/interfaces"
	"github.com/ruteri/cryptalias/keypin"
)

// DomainStatus is the DNS key pin state of one served domain.
type DomainStatus struct {
	Domain      string    `json:"domain"`
	Healthy     bool      `json:"healthy"`
	Message     string    `json:"message,omitempty"`
	LastChecked time.Time `json:"last_checked"`

	TXTRecord string `json:"txt_record"`
	TXTValue  string `json:"txt_value"`
	DNSTXTOK  bool   `json:"dns_txt_ok"`
}

// StatusResponse is served at interfaces.WellKnownStatusPath.
type StatusResponse struct {
	Version   uint         `json:"version"`
	CheckedAt time.Time    `json:"checked_at"`
	Healthy   bool         `json:"healthy"`
	Domain    DomainStatus `json:"domain"`
}

// WithPinner enables the DNS checks behind HandleStatus.
func (h *Handler) WithPinner(pinner *keypin.TXTPinner) *Handler {
	h.pinner = pinner
	return h
}

// HandleStatus reports whether the TXT record of the domain named by the
// request's Host header pins the key the server signs with.
//
// URL format: GET /.well-known/cryptalias/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	domain, ok := h.cfg.FindDomain(r.Host)
	if !ok {
		http.Error(w, "unknown domain", http.StatusNotFound)
		return
	}

	status, err := h.domainStatus(r.Context(), domain.Domain)
	if err != nil {
		h.log.Error("Failed to derive public key", "domain", domain.Domain, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		Version:   interfaces.ProtocolVersion,
		CheckedAt: status.LastChecked,
		Healthy:   status.Healthy,
		Domain:    status,
	}

	w.Header().Set("Content-Type", interfaces.ContentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) domainStatus(ctx context.Context, domain string) (DomainStatus, error) {
	key, err := h.keys.PublicKeyMaterial(domain)
	if err != nil {
		return DomainStatus{}, err
	}
	txt, err := h.keys.DNSTXTValue(domain)
	if err != nil {
		return DomainStatus{}, err
	}

	status := DomainStatus{
		Domain:      domain,
		Healthy:     true,
		LastChecked: h.now().UTC(),
		TXTRecord:   keypin.RecordName(domain),
		TXTValue:    txt,
	}

	switch {
	case h.pinner == nil:
		status.Message = "dns pin check disabled"
	case !keypin.ShouldCheck(domain):
		status.Message = "local domain cannot carry a dns pin"
	default:
		err := h.pinner.CheckPin(ctx, domain, key)
		switch {
		case err == nil:
			status.DNSTXTOK = true
		case interfaces.IsKind(err, interfaces.KindKeyPinMismatch):
			status.Healthy = false
			status.Message = "txt record does not pin the signing key"
		default:
			status.Healthy = false
			status.Message = err.Error()
		}
		if !status.Healthy {
			h.log.Warn("Domain key pin check failed", "domain", domain, "record", status.TXTRecord, "err", err)
		}
	}
	return status, nil
}
