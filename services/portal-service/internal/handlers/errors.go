package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/md-rashed-zaman/careportal/libs/backend"
	"github.com/md-rashed-zaman/careportal/libs/flow"
	"github.com/md-rashed-zaman/careportal/libs/httpx"
)

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// writeErr maps flow and backend errors onto HTTP answers.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *backend.ValidationError
		rejected   *flow.RejectedError
		upstream   *backend.HTTPError
		network    *backend.NetworkError
		discovery  *backend.DiscoveryError
	)
	switch {
	case errors.As(err, &validation):
		httpx.WriteError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, flow.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.As(err, &rejected):
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, errorBody{Error: rejected.Error(), Code: rejected.Code})
	case errors.As(err, &discovery):
		status := http.StatusBadGateway
		if errors.As(discovery.Last, &upstream) {
			status = upstream.Status
		}
		httpx.WriteError(w, status, discovery.Error())
	case errors.As(err, &upstream):
		httpx.WriteError(w, upstream.Status, fmt.Sprintf("API Error: %d - %s", upstream.Status, upstream.Body))
	case errors.As(err, &network):
		s.logger.Warn("backend unreachable", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		httpx.WriteError(w, http.StatusBadGateway, network.Error())
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(w, http.StatusGatewayTimeout, "backend timed out")
	default:
		s.logger.Error("request failed", "request_id", httpx.RequestIDFromContext(r.Context()), "path", r.URL.Path, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) sessionFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("session store failed", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "session unavailable")
}
