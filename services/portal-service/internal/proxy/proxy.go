package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/careportal/libs/backend"
	"github.com/md-rashed-zaman/careportal/libs/httpx"
)

const userAgent = "CarePortal-Proxy/1.0"

const maxUpstreamBytes = 4 << 20

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

type Config struct {
	BaseURL string
	// RestrictEndpoints limits relaying to the route families of the
	// backend endpoint table.
	RestrictEndpoints bool
}

// TokenSource supplies a bearer token when the envelope carries none.
type TokenSource func(r *http.Request) string

// Handler relays {endpoint, body} envelopes to the backend.
type Handler struct {
	cfg    Config
	http   *http.Client
	tokens TokenSource
	logger *slog.Logger
}

func NewHandler(cfg Config, hc *http.Client, tokens TokenSource, logger *slog.Logger) *Handler {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Handler{cfg: cfg, http: hc, tokens: tokens, logger: logger.With("component", "proxy")}
}

// Status answers GET on the relay route.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "API Proxy is running. Use POST method."})
}

type proxyError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) internalError(w http.ResponseWriter, endpoint string, err error) {
	h.logger.Error("proxy error", "endpoint", endpoint, "err", err)
	httpx.WriteJSON(w, http.StatusInternalServerError, proxyError{Error: "Internal proxy error", Details: err.Error()})
}

// Relay forwards one envelope.
func (h *Handler) Relay(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Endpoint parameter is required")
		return
	}
	if !strings.HasPrefix(endpoint, "/") || strings.HasPrefix(endpoint, "//") {
		httpx.WriteError(w, http.StatusBadRequest, "Endpoint must be an absolute path")
		return
	}
	if h.cfg.RestrictEndpoints && !backend.Known(endpoint) {
		httpx.WriteError(w, http.StatusForbidden, "Endpoint not allowed")
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.internalError(w, endpoint, err)
		return
	}
	envelope := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			h.internalError(w, endpoint, fmt.Errorf("invalid request body: %w", err))
			return
		}
		if envelope == nil {
			envelope = map[string]json.RawMessage{}
		}
	}

	method, err := takeString(envelope, backend.EnvelopeMethod)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "method must be a string")
		return
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodPost
	}
	if !allowedMethods[method] {
		httpx.WriteError(w, http.StatusBadRequest, "Unsupported method "+method)
		return
	}
	token, err := takeString(envelope, backend.EnvelopeSessionToken)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "sessionToken must be a string")
		return
	}
	if token == "" && h.tokens != nil {
		token = h.tokens(r)
	}

	var body io.Reader
	if method != http.MethodGet {
		forward, err := json.Marshal(envelope)
		if err != nil {
			h.internalError(w, endpoint, err)
			return
		}
		body = bytes.NewReader(forward)
	}
	req, err := http.NewRequestWithContext(r.Context(), method, h.cfg.BaseURL+endpoint, body)
	if err != nil {
		h.internalError(w, endpoint, err)
		return
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		h.internalError(w, endpoint, err)
		return
	}
	defer resp.Body.Close()
	upstream, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBytes))
	if err != nil {
		h.internalError(w, endpoint, err)
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.logger.Warn("backend error", "endpoint", endpoint, "method", method, "status", resp.StatusCode)
		httpx.WriteError(w, resp.StatusCode, fmt.Sprintf("API Error: %d - %s", resp.StatusCode, upstream))
		return
	}
	upstream = bytes.TrimSpace(upstream)
	if len(upstream) == 0 {
		upstream = []byte("{}")
	}
	if !json.Valid(upstream) {
		h.internalError(w, endpoint, errors.New("backend returned a non-JSON response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(upstream)
}

// takeString removes key from envelope and returns its string value.
// null and absent both read as "".
func takeString(envelope map[string]json.RawMessage, key string) (string, error) {
	raw, ok := envelope[key]
	if !ok {
		return "", nil
	}
	delete(envelope, key)
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}
