package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, cfg Config, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	if cfg.UseProxy {
		cfg.ProxyURL = srv.URL + ProxyPath
	} else {
		cfg.BaseURL = srv.URL
	}
	return New(cfg, nil, WithHTTPClient(srv.Client()))
}

func TestDirectModeInitiateLogin(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/authenticate/web/user/initiate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("identifierType") != "email" {
			t.Errorf("missing identifierType query")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type")
		}
		var in LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.Identifier != "a@b.c" || in.Role != RoleAdmin {
			t.Errorf("unexpected body %+v", in)
		}
		_, _ = io.WriteString(w, `{"success":true,"message":"sent","code":200,"data":{"verificationId":"v1","userId":"u1","role":"U_ADM","expiresAt":"2030-01-01T00:00:00Z"}}`)
	}))

	out, err := c.InitiateLogin(context.Background(), LoginRequest{Identifier: "a@b.c", Role: RoleAdmin, Password: "pw"})
	if err != nil {
		t.Fatalf("InitiateLogin: %v", err)
	}
	if !out.Success || out.Data.VerificationID != "v1" || out.Data.UserID != "u1" {
		t.Fatalf("unexpected envelope %+v", out)
	}
}

func TestDirectModeSendsBearer(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.ContentLength > 0 {
			t.Errorf("GET must not carry a body")
		}
		_, _ = io.WriteString(w, `{"success":true,"appointments":[{"_id":"a1","title":"Checkup"}],"total":1}`)
	}))

	out, err := c.ListAppointments(context.Background(), "tok", Page{})
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if out.Total != 1 || len(out.Appointments) != 1 || out.Appointments[0].ID != "a1" {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestProxyModeFoldsEnvelope(t *testing.T) {
	c := newTestClient(t, Config{UseProxy: true}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != ProxyPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("endpoint"); got != "/appointments?page=2&limit=5" {
			t.Errorf("endpoint = %q", got)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("proxy mode must carry the token in the envelope")
		}
		var env map[string]any
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Errorf("decode: %v", err)
		}
		if env["method"] != "GET" || env["sessionToken"] != "tok" {
			t.Errorf("unexpected envelope %v", env)
		}
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	if c.Mode() != ModeProxy {
		t.Fatalf("expected proxy mode")
	}

	if _, err := c.ListAppointments(context.Background(), "tok", Page{Page: 2, Limit: 5}); err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
}

func TestProxyModeOmitsDefaultMethod(t *testing.T) {
	c := newTestClient(t, Config{UseProxy: true}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env map[string]any
		_ = json.NewDecoder(r.Body).Decode(&env)
		if _, ok := env["method"]; ok {
			t.Errorf("POST envelope should not name a method: %v", env)
		}
		if env["registrationId"] != "r1" || env["verificationCode"] != "123456" {
			t.Errorf("body fields not merged: %v", env)
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"verificationSid":"sid"}}`)
	}))

	out, err := c.VerifyEmail(context.Background(), EmailVerifyRequest{RegistrationID: "r1", VerificationCode: "123456"})
	if err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if out.Data.VerificationSid != "sid" {
		t.Fatalf("unexpected data %+v", out.Data)
	}
}

func TestProxyModeRejectsNonObjectBody(t *testing.T) {
	c := New(Config{UseProxy: true, ProxyURL: "http://127.0.0.1:1" + ProxyPath}, nil)
	err := c.Do(context.Background(), "/x", RequestOptions{Body: []int{1, 2}}, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestNon2xxBecomesHTTPError(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "route not found")
	}))

	_, err := c.GetAppointment(context.Background(), "tok", "missing")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusNotFound || httpErr.Body != "route not found" {
		t.Fatalf("unexpected error %+v", httpErr)
	}
	if StatusOf(err) != http.StatusNotFound {
		t.Fatalf("StatusOf = %d", StatusOf(err))
	}
}

func TestNetworkErrorSuggestsProxy(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Config{BaseURL: base}, nil)
	_, err := c.Logout(context.Background(), "tok")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !netErr.SuggestsProxy() {
		t.Fatal("direct mode failures should suggest proxy mode")
	}
}

func TestCanceledContextIsNotReclassified(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Do(ctx, PathHealth, RequestOptions{Method: http.MethodGet}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		t.Fatal("cancellation must not be reported as a network error")
	}
}

func TestVerifyDataKeepsExtensions(t *testing.T) {
	raw := `{"success":true,"code":200,"data":{"sessionToken":"s1","user":{"userId":"u1","role":"U_PAT"},"refreshToken":"r1"}}`
	var env Envelope[VerifyData]
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Data.SessionToken != "s1" || env.Data.User == nil || env.Data.User.Role != RolePatient {
		t.Fatalf("unexpected data %+v", env.Data)
	}
	var refresh string
	ok, err := env.Data.Extensions.Get("refreshToken", &refresh)
	if !ok || err != nil || refresh != "r1" {
		t.Fatalf("extension lookup ok=%v err=%v value=%q", ok, err, refresh)
	}
	if _, present := env.Data.Extensions["sessionToken"]; present {
		t.Fatal("typed fields must not be duplicated in the extension bag")
	}
}

func TestProbeHealth(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathHealth {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("X-Backend", "ok")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	probe, err := c.ProbeHealth(context.Background())
	if err != nil {
		t.Fatalf("ProbeHealth: %v", err)
	}
	if probe.Status != http.StatusServiceUnavailable || probe.StatusText != "Service Unavailable" {
		t.Fatalf("unexpected probe %+v", probe)
	}
	if probe.Headers["x-backend"] != "ok" {
		t.Fatalf("expected lower-cased header, got %v", probe.Headers)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_API_BASE_URL", "")
	t.Setenv("API_BASE_URL", "https://api.example.test/")
	t.Setenv("NEXT_PUBLIC_USE_PROXY", "false")
	t.Setenv("NEXT_PUBLIC_ENABLE_LOGGING", "1")

	cfg := ConfigFromEnv()
	if cfg.BaseURL != "https://api.example.test" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.UseProxy || cfg.Mode() != ModeDirect || !cfg.EnableLogging {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if ConfigFromEnv().ServerSide().Mode() != ModeDirect {
		t.Fatal("server side config must be direct")
	}
}
