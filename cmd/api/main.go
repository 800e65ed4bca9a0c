package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/auth"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/health"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/order"
	"github.com/noah-isme/backend-pos/internal/ratelimit"
	"github.com/noah-isme/backend-pos/internal/security"
	"github.com/noah-isme/backend-pos/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "api").Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pos-api",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	startCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := db.Connect(startCtx, db.PoolConfig{
		URL:             cfg.DatabaseURL,
		ApplicationName: "pos-api",
		Tracer:          obs.PGXTracer{},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(startCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Store: catalog.PGStore{DB: pool},
		Cache: catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	sessionService, err := session.NewService(session.ServiceConfig{
		Store:   session.RedisStore{Client: redisClient, TTL: cfg.SessionTTL},
		Catalog: catalogService,
		Locker:  lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff, MaxWait: cfg.LockMaxWait},
		LockTTL: cfg.LockTTL,
		VATRate: cfg.VATRate,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise session service")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Username: redisOpts.Username,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	bus := &events.Bus{
		Store: events.PGStore{DB: pool},
		Notifiers: []events.Notifier{
			events.LogNotifier{Logger: logger},
			events.TaskNotifier{Client: taskClient, Queue: cfg.QueueName, MaxRetry: cfg.QueueMaxRetry},
		},
	}

	orderService, err := order.NewService(order.ServiceConfig{
		Store:    order.PGStore{DB: pool},
		Sessions: sessionService,
		Events:   bus,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise order service")
	}

	authService, err := auth.NewService(auth.ServiceConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		AccessTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authMiddleware := auth.Middleware{Service: authService}

	var limiter ratelimit.Limiter
	switch cfg.RateLimitStrategy {
	case "sliding":
		limiter = ratelimit.SlidingWindow{Client: redisClient, Prefix: "pos:ratelimit:"}
	default:
		limiterStore, err := ratelimit.NewRedisStore(redisClient)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise rate limit store")
		}
		limiter = ratelimit.StoreLimiter{Store: limiterStore}
	}
	limitCfg, err := ratelimit.ConfigFromRate(cfg.RateLimit, ratelimit.KeyByTerminal)
	if err != nil {
		logger.Fatal().Err(err).Str("rate", cfg.RateLimit).Msg("parse rate limit")
	}
	terminalLimit := ratelimit.Handler{
		Limiter: limiter,
		Config:  limitCfg,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	router := newRouter(cfg, logger, tracingEnabled, routes{
		catalog:  catalog.NewHandler(catalog.HandlerConfig{Service: catalogService}),
		sessions: session.NewHandler(session.HandlerConfig{Service: sessionService}),
		orders:   order.NewHandler(order.HandlerConfig{Service: orderService}),
		auth:     authMiddleware,
		limit:    terminalLimit,
		idem:     idem,
		health: health.Handler{
			Checker: health.Deps{DB: pool, Redis: redisClient},
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("vat_rate", cfg.VATRate.String()).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

type routes struct {
	catalog  *catalog.Handler
	sessions *session.Handler
	orders   *order.Handler
	auth     auth.Middleware
	limit    ratelimit.Handler
	idem     common.Idem
	health   health.Handler
}

func newRouter(cfg *config.Config, logger zerolog.Logger, tracingEnabled bool, h routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware("pos-api"))
	}
	if cfg.MetricsEnabled {
		metrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{HSTSMaxAge: cfg.HSTSMaxAge}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", ratelimit.TerminalHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", ""); user != "" {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")))
	}
	r.Get("/health/live", h.health.Live)
	r.Get("/health/ready", h.health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(h.auth.RequireAuth)
		v.Use(h.auth.RequireRole(auth.RoleCashier, auth.RoleManager))
		v.Use(h.limit.Middleware)

		v.Get("/menu-items", h.catalog.List)
		v.Get("/menu-items/{id}", h.catalog.Detail)

		v.Post("/reconcile", session.ReconcileTotals)

		v.Route("/sessions", func(s chi.Router) {
			s.Post("/", h.sessions.Open)
			s.Route("/{id}", func(one chi.Router) {
				one.Get("/", h.sessions.Get)
				one.Delete("/", h.sessions.Discard)
				one.Post("/items", h.sessions.AddItem)
				one.Post("/clear", h.sessions.Clear)
				one.Post("/reconcile", h.sessions.Reconcile)
				one.Route("/lines/{lineId}", func(l chi.Router) {
					l.Post("/increment", h.sessions.Increment)
					l.Post("/decrement", h.sessions.Decrement)
					l.Put("/quantity", h.sessions.SetQuantity)
					l.Put("/customization", h.sessions.SetCustomization)
					l.Delete("/", h.sessions.Remove)
				})
				one.With(h.idem.Middleware).Post("/checkout", h.orders.Checkout)
				one.With(h.idem.Middleware).Post("/commit-edit", h.orders.CommitEdit)
			})
		})

		v.Route("/orders", func(o chi.Router) {
			o.Get("/", h.orders.List)
			o.Get("/{orderId}", h.orders.Get)
			o.With(h.auth.RequireRole(auth.RoleManager)).Post("/{orderId}/edit", h.orders.BeginEdit)
		})
	})
	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
