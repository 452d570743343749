package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/md-rashed-zaman/careportal/libs/httpx"
	"github.com/md-rashed-zaman/careportal/services/portal-service/internal/audit"
)

const (
	auditKeyHeader    = "X-Audit-Key"
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		httpx.WriteError(w, http.StatusNotFound, "audit trail not configured")
		return
	}
	key := r.Header.Get(auditKeyHeader)
	if s.auditKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.auditKey)) != 1 {
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}
	limit := queryInt(r, "limit")
	if limit == 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	entries, err := s.audit.ListRecent(r.Context(), limit)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
