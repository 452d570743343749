package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/md-rashed-zaman/careportal/libs/backend"
	"github.com/md-rashed-zaman/careportal/libs/httpx"
	"github.com/md-rashed-zaman/careportal/libs/session"
)

type viewFunc func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// authed rejects visitors without a backend session token.
func (s *Server) authed(next viewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.existingSession(r)
		if err != nil {
			s.sessionFailure(w, r, err)
			return
		}
		if sess == nil || !sess.Authenticated() {
			httpx.WriteError(w, http.StatusUnauthorized, "sign in required")
			return
		}
		next(w, r, sess)
	}
}

// reply writes out, or maps err. It keeps view handlers to one line each.
func reply[T any](s *Server, w http.ResponseWriter, r *http.Request, out T, err error) {
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func pageOf(r *http.Request) backend.Page {
	return backend.Page{Page: queryInt(r, "page"), Limit: queryInt(r, "limit")}
}

func listParamsOf(r *http.Request) backend.ListParams {
	q := r.URL.Query()
	return backend.ListParams{
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
		Search:   q.Get("search"),
		UserRole: q.Get("userRole"),
	}
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.ListAppointments(r.Context(), sess.SessionToken, pageOf(r))
	reply(s, w, r, out, err)
}

func (s *Server) listPersonalAppointments(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.ListPersonalAppointments(r.Context(), sess.SessionToken, pageOf(r))
	reply(s, w, r, out, err)
}

func (s *Server) getPersonalAppointment(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.GetPersonalAppointment(r.Context(), sess.SessionToken, mux.Vars(r)["id"])
	reply(s, w, r, out, err)
}

func (s *Server) acceptAppointment(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.AcceptAppointment(r.Context(), sess.SessionToken, mux.Vars(r)["id"])
	reply(s, w, r, out, err)
}

func (s *Server) joinAppointment(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.JoinAppointment(r.Context(), sess.SessionToken, mux.Vars(r)["id"])
	reply(s, w, r, out, err)
}

func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.GetAppointment(r.Context(), sess.SessionToken, mux.Vars(r)["id"])
	reply(s, w, r, out, err)
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var a backend.Appointment
	if err := httpx.DecodeJSON(r, &a); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	out, err := s.api.CreateAppointment(r.Context(), sess.SessionToken, a)
	reply(s, w, r, out, err)
}

func (s *Server) updateAppointment(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var a backend.Appointment
	if err := httpx.DecodeJSON(r, &a); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	out, err := s.api.UpdateAppointment(r.Context(), sess.SessionToken, mux.Vars(r)["id"], a)
	reply(s, w, r, out, err)
}

func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.DeleteAppointment(r.Context(), sess.SessionToken, mux.Vars(r)["id"])
	reply(s, w, r, out, err)
}

type assignedPatientsView struct {
	*backend.AssignedPatientsResponse
	Source string `json:"source"`
}

func (s *Server) assignedPatients(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, path, err := s.api.AssignedPatients(r.Context(), sess.SessionToken)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, assignedPatientsView{AssignedPatientsResponse: out, Source: path})
}

func (s *Server) patientRecords(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.PatientRecords(r.Context(), sess.SessionToken, mux.Vars(r)["id"], r.URL.Query().Get("recordType"))
	reply(s, w, r, out, err)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.ListUsers(r.Context(), sess.SessionToken, listParamsOf(r))
	reply(s, w, r, out, err)
}

func (s *Server) listPractitioners(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.ListPractitioners(r.Context(), sess.SessionToken, listParamsOf(r))
	reply(s, w, r, out, err)
}

func (s *Server) listPatients(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.ListPatients(r.Context(), sess.SessionToken, listParamsOf(r))
	reply(s, w, r, out, err)
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.ListRecords(r.Context(), sess.SessionToken, listParamsOf(r))
	reply(s, w, r, out, err)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := s.api.GetUser(r.Context(), sess.SessionToken, mux.Vars(r)["id"])
	reply(s, w, r, out, err)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var in backend.CreateUserRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	out, err := s.api.CreateUser(r.Context(), sess.SessionToken, in)
	reply(s, w, r, out, err)
}
