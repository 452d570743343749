package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/md-rashed-zaman/careportal/libs/backend"
	"github.com/md-rashed-zaman/careportal/libs/flow"
	"github.com/md-rashed-zaman/careportal/libs/httpx"
	"github.com/md-rashed-zaman/careportal/libs/session"
	"github.com/md-rashed-zaman/careportal/services/portal-service/internal/audit"
	"github.com/md-rashed-zaman/careportal/services/portal-service/internal/captcha"
	"github.com/md-rashed-zaman/careportal/services/portal-service/internal/proxy"
)

// AuditLister reads the audit trail. It is nil when Postgres is not set up.
type AuditLister interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Entry, error)
}

type Deps struct {
	API      *backend.Client
	Flow     *flow.Machine
	Sessions session.Store
	Cookie   CookieConfig
	Captcha  *captcha.Handler
	Audit    AuditLister
	AuditKey string
	Logger   *slog.Logger
}

// Server holds the portal's own endpoints: session, login, registration,
// views and diagnostics.
type Server struct {
	api      *backend.Client
	flow     *flow.Machine
	sessions session.Store
	cookie   CookieConfig
	captcha  *captcha.Handler
	audit    AuditLister
	auditKey string
	logger   *slog.Logger
}

func New(d Deps) *Server {
	d.Cookie = d.Cookie.withDefaults()
	return &Server{
		api:      d.API,
		flow:     d.Flow,
		sessions: d.Sessions,
		cookie:   d.Cookie,
		captcha:  d.Captcha,
		audit:    d.Audit,
		auditKey: d.AuditKey,
		logger:   d.Logger.With("component", "handlers"),
	}
}

// Routes mounts every portal route on r. limited wraps the routes that
// accept credentials or codes; it may be nil.
func (s *Server) Routes(r *mux.Router, relay *proxy.Handler, limited httpx.Middleware) {
	limit := func(h http.HandlerFunc) http.Handler {
		if limited == nil {
			return h
		}
		return limited(h)
	}

	r.HandleFunc("/api/proxy", relay.Relay).Methods(http.MethodPost)
	r.HandleFunc("/api/proxy", relay.Status).Methods(http.MethodGet)
	r.HandleFunc("/api/test", s.probe).Methods(http.MethodGet)
	r.HandleFunc("/api/test", s.probeHint).Methods(http.MethodPost)

	r.Handle("/api/captcha/verify", limit(s.captcha.Verify)).Methods(http.MethodPost)
	r.HandleFunc("/api/captcha/verify", s.captcha.Describe).Methods(http.MethodGet)
	r.Handle("/api/captcha/challenge", limit(s.captcha.NewChallenge)).Methods(http.MethodGet)

	r.HandleFunc("/api/session", s.getSession).Methods(http.MethodGet)
	r.HandleFunc("/api/session", s.resetSession).Methods(http.MethodDelete)

	r.Handle("/api/auth/login", limit(s.login)).Methods(http.MethodPost)
	r.Handle("/api/auth/verify", limit(s.verifyLogin)).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", s.logout).Methods(http.MethodPost)

	r.Handle("/api/register", limit(s.register)).Methods(http.MethodPost)
	r.HandleFunc("/api/register", s.abandonRegistration).Methods(http.MethodDelete)
	r.Handle("/api/register/email/verify", limit(s.verifyEmail)).Methods(http.MethodPost)
	r.Handle("/api/register/phone/send", limit(s.sendPhoneCode)).Methods(http.MethodPost)
	r.Handle("/api/register/phone/verify", limit(s.verifyPhone)).Methods(http.MethodPost)

	r.HandleFunc("/api/appointments/personal", s.authed(s.listPersonalAppointments)).Methods(http.MethodGet)
	r.HandleFunc("/api/appointments/personal/{id}", s.authed(s.getPersonalAppointment)).Methods(http.MethodGet)
	r.HandleFunc("/api/appointments/personal/{id}/accept", s.authed(s.acceptAppointment)).Methods(http.MethodPost)
	r.HandleFunc("/api/appointments/personal/{id}/join", s.authed(s.joinAppointment)).Methods(http.MethodPost)
	r.HandleFunc("/api/appointments", s.authed(s.listAppointments)).Methods(http.MethodGet)
	r.HandleFunc("/api/appointments", s.authed(s.createAppointment)).Methods(http.MethodPost)
	r.HandleFunc("/api/appointments/{id}", s.authed(s.getAppointment)).Methods(http.MethodGet)
	r.HandleFunc("/api/appointments/{id}", s.authed(s.updateAppointment)).Methods(http.MethodPut)
	r.HandleFunc("/api/appointments/{id}", s.authed(s.deleteAppointment)).Methods(http.MethodDelete)

	r.HandleFunc("/api/care-provider/patients", s.authed(s.assignedPatients)).Methods(http.MethodGet)
	r.HandleFunc("/api/care-provider/patients/{id}/records", s.authed(s.patientRecords)).Methods(http.MethodGet)

	r.HandleFunc("/api/users", s.authed(s.listUsers)).Methods(http.MethodGet)
	r.HandleFunc("/api/users", s.authed(s.createUser)).Methods(http.MethodPost)
	r.HandleFunc("/api/users/{id}", s.authed(s.getUser)).Methods(http.MethodGet)
	r.HandleFunc("/api/practitioners", s.authed(s.listPractitioners)).Methods(http.MethodGet)
	r.HandleFunc("/api/patients", s.authed(s.listPatients)).Methods(http.MethodGet)
	r.HandleFunc("/api/records", s.authed(s.listRecords)).Methods(http.MethodGet)

	r.HandleFunc("/api/audit", s.listAudit).Methods(http.MethodGet)
}

// SessionToken returns the bearer token of an authenticated visitor, or "".
// The relay uses it when an envelope carries no token.
func (s *Server) SessionToken(r *http.Request) string {
	sess, err := s.existingSession(r)
	if err != nil || sess == nil || !sess.Authenticated() {
		return ""
	}
	return sess.SessionToken
}
