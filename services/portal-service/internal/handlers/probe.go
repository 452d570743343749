package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/careportal/libs/backend"
	"github.com/md-rashed-zaman/careportal/libs/httpx"
)

type probeResponse struct {
	Status       string               `json:"status"`
	APIBaseURL   string               `json:"apiBaseUrl"`
	TestResponse *backend.HealthProbe `json:"testResponse,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// probe reports whether the backend answers on its health route. Any HTTP
// answer counts as reachable; the endpoint itself always returns 200.
func (s *Server) probe(w http.ResponseWriter, r *http.Request) {
	out := probeResponse{APIBaseURL: s.api.BaseURL()}
	res, err := s.api.ProbeHealth(r.Context())
	if err != nil {
		s.logger.Warn("backend probe failed", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		out.Status = "API connection failed"
		out.Error = err.Error()
	} else {
		out.Status = "API connection working"
		out.TestResponse = &res
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) probeHint(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Use GET to test API connectivity",
	})
}
