package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	analysisapp "fleet-pc-alert/internal/analysis/application"
	analysis "fleet-pc-alert/internal/analysis/domain"
	"fleet-pc-alert/internal/alerting/notify"
	apihttp "fleet-pc-alert/internal/api/http"
	"fleet-pc-alert/internal/auth"
	"fleet-pc-alert/internal/observability/metrics"
	"fleet-pc-alert/internal/poller"
	"fleet-pc-alert/internal/samsara"
	"fleet-pc-alert/internal/store"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	metrics.Init()

	client, err := samsara.NewClient(cfg.SamsaraBaseURL, cfg.SamsaraToken)
	if err != nil {
		logger.Fatalf("samsara client error: %v", err)
	}

	analysisCfg := analysis.Config{
		ThresholdHours:      cfg.ThresholdHours,
		DriverTagIDs:        cfg.DriverTagIDs,
		IncludeAllPCDrivers: cfg.IncludeAllPCDrivers,
	}
	if err := analysisCfg.Validate(); err != nil {
		logger.Fatalf("analysis config error: %v", err)
	}
	runner := analysisapp.NewRunner()

	notifyCfg, err := notify.LoadConfig()
	if err != nil {
		logger.Fatalf("notify config error: %v", err)
	}
	notifier, err := notify.BuildNotifier(notifyCfg, logger)
	if err != nil {
		logger.Fatalf("notifier error: %v", err)
	}

	pollerOpts := []poller.Option{}

	var history *store.HistoryRepository
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		history = store.NewHistoryRepository(db)
		if err := history.EnsureSchema(context.Background()); err != nil {
			logger.Fatalf("db schema error: %v", err)
		}
		pollerOpts = append(pollerOpts, poller.WithHistory(history))
	}

	if cfg.RedisAddr != "" {
		deduper, err := store.NewEpisodeDeduper(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.DedupTTL)
		if err != nil {
			logger.Fatalf("redis error: %v", err)
		}
		defer deduper.Close()
		pollerOpts = append(pollerOpts, poller.WithDeduper(deduper))
	}

	pcPoller, err := poller.New(client, runner, notifier, analysisCfg, cfg.PollInterval, logger, pollerOpts...)
	if err != nil {
		logger.Fatalf("poller error: %v", err)
	}
	go pcPoller.Start(context.Background())

	analysisHandler, err := apihttp.NewAnalysisHandler(pcPoller, analysisCfg)
	if err != nil {
		logger.Fatalf("analysis handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/analysis/run", analysisHandler)
	mux.Handle("/api/v1/alerts", apihttp.NewAlertsHandler(historyReader(history)))
	mux.Handle("/api/v1/exports/", apihttp.NewExportHandler(historyReader(history)))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := http.Handler(mux)
	if cfg.JWTSecret != "" {
		policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
		handler = auth.NewMiddleware([]byte(cfg.JWTSecret), policy).Wrap(handler)
	}

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(handler, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

// historyReader avoids handing a typed-nil *HistoryRepository to the
// handlers, which check for a nil interface.
func historyReader(history *store.HistoryRepository) apihttp.HistoryReader {
	if history == nil {
		return nil
	}
	return history
}

type config struct {
	SamsaraToken        string
	SamsaraBaseURL      string
	ThresholdHours      float64
	DriverTagIDs        []string
	IncludeAllPCDrivers bool
	PollInterval        time.Duration
	HTTPAddr            string
	DatabaseURL         string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	DedupTTL            time.Duration
	JWTSecret           string
}

func loadConfig() config {
	cfg := config{
		SamsaraToken:        getenvDefault("SAMSARA_API_TOKEN", ""),
		SamsaraBaseURL:      getenvDefault("SAMSARA_BASE_URL", samsara.DefaultBaseURL),
		ThresholdHours:      getenvFloatDefault("PC_THRESHOLD_HOURS", analysis.DefaultThresholdHours),
		DriverTagIDs:        splitList(getenvDefault("DRIVER_TAG_IDS", "")),
		IncludeAllPCDrivers: getenvBoolDefault("INCLUDE_ALL_PC_DRIVERS", false),
		PollInterval:        getenvDuration("POLL_INTERVAL", 15*time.Minute),
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:         getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		RedisAddr:           getenvDefault("REDIS_ADDR", ""),
		RedisPassword:       getenvDefault("REDIS_PASSWORD", ""),
		RedisDB:             getenvIntDefault("REDIS_DB", 0),
		DedupTTL:            getenvDuration("ALERT_DEDUP_TTL", 0),
		JWTSecret:           getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.SamsaraToken == "" {
		log.Fatal("SAMSARA_API_TOKEN is required")
	}
	return cfg
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
