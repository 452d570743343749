package captcha

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/careportal/libs/httpx"
)

// Token is what a client submits to prove it passed a CAPTCHA.
type Token struct {
	Token     string `json:"token"`
	Provider  string `json:"provider,omitempty"`
	Challenge string `json:"challenge,omitempty"`
}

type Handler struct {
	verifier *Verifier
	simple   *SimpleValidator
	logger   *slog.Logger
}

func NewHandler(verifier *Verifier, simple *SimpleValidator, logger *slog.Logger) *Handler {
	return &Handler{verifier: verifier, simple: simple, logger: logger.With("component", "captcha")}
}

// Check verifies t against its provider. An unknown provider never passes.
func (h *Handler) Check(ctx context.Context, t Token, remoteIP string) (Provider, bool) {
	p, ok := ParseProvider(t.Provider)
	if !ok {
		return Provider(t.Provider), false
	}
	if p == ProviderSimple {
		return p, h.simple.Validate(t.Token, t.Challenge)
	}
	return p, h.verifier.Verify(ctx, t.Token, p, remoteIP)
}

// Allow gates action: it passes when the action does not require a
// CAPTCHA, otherwise t must verify.
func (h *Handler) Allow(r *http.Request, action string, t Token) bool {
	if !h.verifier.Required(action) {
		return true
	}
	_, ok := h.Check(r.Context(), t, httpx.ClientIP(r))
	return ok
}

type verifyResponse struct {
	Success  bool   `json:"success"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req Token
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteJSON(w, http.StatusInternalServerError, verifyResponse{Error: "invalid json body"})
		return
	}
	if req.Token == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, verifyResponse{Error: "Token is required"})
		return
	}
	if _, ok := ParseProvider(req.Provider); !ok {
		httpx.WriteJSON(w, http.StatusBadRequest, verifyResponse{Error: "unknown provider"})
		return
	}
	p, ok := h.Check(r.Context(), req, httpx.ClientIP(r))
	httpx.WriteJSON(w, http.StatusOK, verifyResponse{Success: ok, Provider: string(p)})
}

type providerInfo struct {
	Name    Provider `json:"name"`
	SiteKey string   `json:"siteKey,omitempty"`
}

func (h *Handler) Describe(w http.ResponseWriter, _ *http.Request) {
	infos := make([]providerInfo, 0, len(Providers))
	for _, p := range Providers {
		infos = append(infos, providerInfo{Name: p, SiteKey: h.verifier.SiteKey(p)})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "CAPTCHA verification endpoint. Use POST method with token.",
		"providers":    Providers,
		"siteKeys":     infos,
		"simpleChecks": h.simple.ChecksAnswer(),
	})
}

// NewChallenge issues a math puzzle for the simple provider.
func (h *Handler) NewChallenge(w http.ResponseWriter, _ *http.Request) {
	c, err := h.simple.NewChallenge()
	if err != nil {
		h.logger.Error("captcha challenge failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, verifyResponse{Error: "failed to create challenge"})
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusOK, c)
}
