package backend

import (
	"strings"
	"time"

	"github.com/md-rashed-zaman/careportal/libs/config"
)

// DefaultBaseURL is the hosted healthcare API.
const DefaultBaseURL = "https://ausa-main-gagnfqbkhvgbhme2.centralindia-01.azurewebsites.net"

// ProxyPath is where the portal serves the same-origin relay.
const ProxyPath = "/api/proxy"

type Mode int

const (
	ModeDirect Mode = iota
	ModeProxy
)

func (m Mode) String() string {
	if m == ModeProxy {
		return "proxy"
	}
	return "direct"
}

type Config struct {
	BaseURL       string
	UseProxy      bool
	ProxyURL      string
	EnableLogging bool
	// Timeout bounds a single backend call. Zero leaves it to the caller's
	// context.
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:       strings.TrimRight(config.First(DefaultBaseURL, "NEXT_PUBLIC_API_BASE_URL", "API_BASE_URL"), "/"),
		UseProxy:      config.Bool("NEXT_PUBLIC_USE_PROXY", true),
		ProxyURL:      strings.TrimSpace(config.String("PORTAL_PROXY_URL", "http://localhost:3000"+ProxyPath)),
		EnableLogging: config.Bool("NEXT_PUBLIC_ENABLE_LOGGING", false),
		Timeout:       config.Seconds("BACKEND_TIMEOUT_SECONDS", 0),
	}
}

// ServerSide returns a copy that always talks to the backend directly.
// Code running inside the portal has no cross-origin restriction to avoid.
func (c Config) ServerSide() Config {
	c.UseProxy = false
	return c
}

// Mode reports how calls are routed.
func (c Config) Mode() Mode {
	if c.UseProxy && c.ProxyURL != "" {
		return ModeProxy
	}
	return ModeDirect
}
