package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/careportal/libs/backend"
	"github.com/md-rashed-zaman/careportal/libs/config"
	"github.com/md-rashed-zaman/careportal/libs/db"
	"github.com/md-rashed-zaman/careportal/libs/flow"
	"github.com/md-rashed-zaman/careportal/libs/httpx"
	"github.com/md-rashed-zaman/careportal/libs/kafkax"
	otelx "github.com/md-rashed-zaman/careportal/libs/otel"
	"github.com/md-rashed-zaman/careportal/libs/runtime"
	"github.com/md-rashed-zaman/careportal/libs/session"
	"github.com/md-rashed-zaman/careportal/services/portal-service/internal/audit"
	"github.com/md-rashed-zaman/careportal/services/portal-service/internal/captcha"
	"github.com/md-rashed-zaman/careportal/services/portal-service/internal/events"
	"github.com/md-rashed-zaman/careportal/services/portal-service/internal/handlers"
	"github.com/md-rashed-zaman/careportal/services/portal-service/internal/proxy"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const devSessionSecret = "dev-session-secret"

type settings struct {
	Service        string
	Port           string
	LogLevel       string
	BodyLimit      int64
	RequestTimeout time.Duration
	CORS           httpx.CORSPolicy

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitPerMinute int
	RateLimitPrefix    string
	RateLimitFailOpen  bool

	RestrictEndpoints bool
	DatabaseURL       string
	AuditKey          string
	KafkaBrokers      []string
	KafkaTopic        string
}

func settingsFromEnv() (settings, error) {
	port, err := config.Port("PORT", "3000")
	if err != nil {
		return settings{}, err
	}
	return settings{
		Service:        config.String("SERVICE_NAME", "portal-service"),
		Port:           port,
		LogLevel:       config.String("LOG_LEVEL", "info"),
		BodyLimit:      int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20)),
		RequestTimeout: config.Seconds("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
		CORS: httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id"),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           time.Duration(config.Int("CORS_MAX_AGE_SECONDS", 600)) * time.Second,
		},

		SessionSecret: config.String("SESSION_SECRET", devSessionSecret),
		SessionTTL:    time.Duration(config.Int("SESSION_TTL_MINUTES", 30)) * time.Minute,
		CookieSecure:  config.Bool("SESSION_COOKIE_SECURE", false),

		RedisAddr:     config.String("REDIS_ADDR", ""),
		RedisPassword: config.String("REDIS_PASSWORD", ""),
		RedisDB:       config.NonNegativeInt("REDIS_DB", 0),

		RateLimitPerMinute: config.Int("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitPrefix:    config.String("RATE_LIMIT_PREFIX", "portal:rl"),
		RateLimitFailOpen:  config.Bool("RATE_LIMIT_FAIL_OPEN", true),

		RestrictEndpoints: config.Bool("PROXY_RESTRICT_ENDPOINTS", false),
		DatabaseURL:       config.String("DATABASE_URL", ""),
		AuditKey:          config.String("AUDIT_READ_KEY", ""),
		KafkaBrokers:      kafkax.SplitBrokers(config.String("KAFKA_BROKERS", "")),
		KafkaTopic:        config.String("KAFKA_TOPIC", events.DefaultTopic),
	}, nil
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv", "err", err)
	}
	s, err := settingsFromEnv()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(s.Service, s.LogLevel)
	if err := run(s, logger); err != nil {
		logger.Error("portal stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(s settings, logger *slog.Logger) error {
	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(s.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	if s.SessionSecret == devSessionSecret {
		logger.Warn("SESSION_SECRET not set; using the development secret")
	}

	backendCfg := backend.ConfigFromEnv().ServerSide()
	api := backend.New(backendCfg, logger)
	outbound := otelx.HTTPClient(backendCfg.Timeout)

	var (
		checks    []runtime.ReadyCheck
		sessions  session.Store
		limited   httpx.Middleware
		recorders flow.MultiRecorder
	)

	if s.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr, Password: s.RedisPassword, DB: s.RedisDB})
		defer func() { _ = rdb.Close() }()
		sessions = session.NewRedisStore(rdb, s.SessionTTL, "")
		rl := httpx.NewRedisRateLimiter(rdb, s.RateLimitPerMinute, time.Minute, s.RateLimitPrefix)
		limited = rl.Middleware(logger, s.RateLimitFailOpen)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: session.ReadyCheck(rdb)})
		logger.Info("sessions and rate limiting in redis", "redis_addr", s.RedisAddr, "per_minute", s.RateLimitPerMinute)
	} else {
		mem := session.NewMemoryStore(s.SessionTTL)
		rl := httpx.NewRateLimiter(s.RateLimitPerMinute, time.Minute)
		limited = rl.Middleware()
		go sweep(ctx, time.Minute, func() {
			mem.Sweep()
			rl.Sweep()
		})
		sessions = mem
		logger.Info("sessions and rate limiting in memory", "per_minute", s.RateLimitPerMinute)
	}

	var auditRepo *audit.Repository
	if s.DatabaseURL != "" {
		pool, err := db.Open(ctx, s.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool, audit.Migrations, audit.MigrationsDir); err != nil {
			return err
		}
		auditRepo = audit.NewRepository(pool)
		recorders = append(recorders, auditRepo)
		checks = append(checks, runtime.ReadyCheck{Name: "postgres", Check: db.ReadyCheck(pool)})
		logger.Info("audit trail enabled")
	}

	if len(s.KafkaBrokers) > 0 {
		kr := events.NewKafkaRecorder(events.KafkaConfig{Brokers: s.KafkaBrokers, Topic: s.KafkaTopic}, logger)
		done := make(chan struct{})
		go func() {
			defer close(done)
			kr.Run(ctx)
		}()
		defer func() {
			stop()
			<-done
		}()
		recorders = append(recorders, kr)
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(s.KafkaBrokers)})
		logger.Info("flow events published to kafka", "topic", s.KafkaTopic)
	}

	captchaCfg := captcha.ConfigFromEnv()
	simple, err := captcha.NewSimpleValidator(captchaCfg.SimpleSecret, captchaCfg.SimpleCheckAnswer)
	if err != nil {
		return err
	}
	captchaHandler := captcha.NewHandler(captcha.NewVerifier(captchaCfg, outbound, logger), simple, logger)

	deps := handlers.Deps{
		API:      api,
		Flow:     flow.NewMachine(api, recorders, logger),
		Sessions: sessions,
		Cookie: handlers.CookieConfig{
			Secret: s.SessionSecret,
			TTL:    s.SessionTTL,
			Secure: s.CookieSecure,
		},
		Captcha:  captchaHandler,
		AuditKey: s.AuditKey,
		Logger:   logger,
	}
	if auditRepo != nil {
		deps.Audit = auditRepo
	}
	portal := handlers.New(deps)
	relay := proxy.NewHandler(proxy.Config{
		BaseURL:           backendCfg.BaseURL,
		RestrictEndpoints: s.RestrictEndpoints,
	}, outbound, portal.SessionToken, logger)

	router := runtime.NewBaseRouterWithReady(checks...)
	portal.Routes(router, relay, limited)

	logger.Info("backend configured", "base_url", backendCfg.BaseURL, "mode", api.Mode().String())
	srv := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           newHandler(router, s, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return runtime.Serve(ctx, srv, logger, 10*time.Second)
}

// newHandler wraps the router with the shared middleware stack. The first
// middleware listed is the outermost.
func newHandler(router http.Handler, s settings, logger *slog.Logger) http.Handler {
	h := httpx.Chain(router,
		httpx.WithRecover(logger),
		httpx.WithCORS(s.CORS),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(s.BodyLimit),
		httpx.WithTimeout(s.RequestTimeout),
	)
	return otelhttp.NewHandler(h, s.Service)
}

func sweep(ctx context.Context, every time.Duration, fn func()) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}
