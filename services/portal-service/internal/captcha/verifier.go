package captcha

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/md-rashed-zaman/careportal/libs/config"
)

type Provider string

const (
	ProviderReCAPTCHA Provider = "recaptcha"
	ProviderHCaptcha  Provider = "hcaptcha"
	ProviderSimple    Provider = "simple"
)

// Providers lists the third-party providers, in the order they are advertised.
var Providers = []Provider{ProviderReCAPTCHA, ProviderHCaptcha}

var defaultVerifyURLs = map[Provider]string{
	ProviderReCAPTCHA: "https://www.google.com/recaptcha/api/siteverify",
	ProviderHCaptcha:  "https://hcaptcha.com/siteverify",
}

type Config struct {
	Secrets  map[Provider]string
	SiteKeys map[Provider]string
	// FailOpen decides the outcome when a provider has no secret.
	FailOpen bool
	// RequiredOn names the portal actions ("login", "register") that need a
	// passing token.
	RequiredOn        []string
	SimpleSecret      string
	SimpleCheckAnswer bool
}

func ConfigFromEnv() Config {
	return Config{
		Secrets: map[Provider]string{
			ProviderReCAPTCHA: config.First("", "RECAPTCHA_SECRET_KEY", "GOOGLE_RECAPTCHA_SECRET_KEY"),
			ProviderHCaptcha:  config.First("", "HCAPTCHA_SECRET_KEY"),
		},
		SiteKeys: map[Provider]string{
			ProviderReCAPTCHA: config.First("", "NEXT_PUBLIC_RECAPTCHA_SITE_KEY"),
			ProviderHCaptcha:  config.First("", "NEXT_PUBLIC_HCAPTCHA_SITE_KEY"),
		},
		FailOpen:          config.Bool("CAPTCHA_FAIL_OPEN", true),
		RequiredOn:        config.List("CAPTCHA_REQUIRED_ON", ""),
		SimpleSecret:      config.String("CAPTCHA_SIMPLE_SECRET", ""),
		SimpleCheckAnswer: config.Bool("CAPTCHA_SIMPLE_CHECK_ANSWER", false),
	}
}

// Verifier checks client tokens with the provider's siteverify endpoint.
// It never returns an error: failures read as "not verified".
type Verifier struct {
	cfg    Config
	urls   map[Provider]string
	http   *http.Client
	logger *slog.Logger
}

func NewVerifier(cfg Config, hc *http.Client, logger *slog.Logger) *Verifier {
	urls := make(map[Provider]string, len(defaultVerifyURLs))
	for p, u := range defaultVerifyURLs {
		urls[p] = u
	}
	return &Verifier{
		cfg:    cfg,
		urls:   urls,
		http:   hc,
		logger: logger.With("component", "captcha"),
	}
}

func (v *Verifier) SiteKey(p Provider) string {
	return v.cfg.SiteKeys[p]
}

// Required reports whether action must pass a CAPTCHA.
func (v *Verifier) Required(action string) bool {
	for _, a := range v.cfg.RequiredOn {
		if strings.EqualFold(a, action) {
			return true
		}
	}
	return false
}

// ParseProvider maps a request value to a provider; "" means reCAPTCHA.
func ParseProvider(raw string) (Provider, bool) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ProviderReCAPTCHA:
		return ProviderReCAPTCHA, true
	case ProviderHCaptcha:
		return ProviderHCaptcha, true
	case ProviderSimple:
		return ProviderSimple, true
	default:
		return "", false
	}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *Verifier) Verify(ctx context.Context, token string, provider Provider, remoteIP string) bool {
	verifyURL, known := v.urls[provider]
	if !known {
		v.logger.Warn("unknown captcha provider", "provider", string(provider))
		return false
	}
	secret := v.cfg.Secrets[provider]
	if secret == "" {
		v.logger.Warn("captcha provider not configured", "provider", string(provider), "fail_open", v.cfg.FailOpen)
		return v.cfg.FailOpen
	}
	if strings.TrimSpace(token) == "" {
		return false
	}

	form := url.Values{}
	form.Set("secret", secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		v.logger.Error("captcha request build failed", "provider", string(provider), "err", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.http.Do(req)
	if err != nil {
		v.logger.Error("captcha verification error", "provider", string(provider), "err", err)
		return false
	}
	defer resp.Body.Close()

	var out siteVerifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		v.logger.Error("captcha response decode failed", "provider", string(provider), "status", resp.StatusCode, "err", err)
		return false
	}
	if !out.Success {
		v.logger.Info("captcha rejected", "provider", string(provider), "error_codes", out.ErrorCodes)
	}
	return out.Success
}
