package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"device-insight/internal/audit"
	"device-insight/internal/auth"
	devices "device-insight/internal/devices/domain"
	devicepostgres "device-insight/internal/devices/infrastructure/postgres"
	devicecache "device-insight/internal/devices/infrastructure/redis"
	insightsapp "device-insight/internal/insights/application"
	insightshttp "device-insight/internal/insights/interfaces/http"
	"device-insight/internal/observability/metrics"
	tiering "device-insight/internal/tiering/domain"
	"device-insight/internal/tiering/presentation"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL or PG_DSN is required")
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger, metrics.WithTables(cfg.DevicesTable, cfg.SensorsTable))

	deviceRepo := devicepostgres.NewDeviceRepository(db, devicepostgres.WithDeviceTable(cfg.DevicesTable))
	sensorRepo := devicepostgres.NewSensorRepository(db, devicepostgres.WithSensorTable(cfg.SensorsTable))
	catalog, err := devices.NewCatalog(deviceRepo, sensorRepo, devices.SystemClock{})
	if err != nil {
		logger.Fatalf("device catalog error: %v", err)
	}

	var snapshots devices.SnapshotSource = catalog
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := devicecache.NewClient(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			logger.Fatalf("redis error: %v", err)
		}
		defer client.Close()
		cache, err := devicecache.NewSnapshotCache(client, catalog,
			devicecache.WithTTL(cfg.SnapshotTTL),
			devicecache.WithLogger(logger),
			devicecache.WithObserver(metrics.ObserveSnapshotCache),
		)
		if err != nil {
			logger.Fatalf("snapshot cache error: %v", err)
		}
		snapshots = cache
		logger.Printf("snapshot cache enabled: %s ttl=%s", cfg.RedisAddr, cfg.SnapshotTTL)
	}

	styles, err := presentation.Load(cfg.PresentationFile)
	if err != nil {
		logger.Fatalf("tier presentation error: %v", err)
	}
	memo := tiering.NewMemo(
		tiering.WithMemoSize(cfg.MemoSize),
		tiering.WithLookupHook(metrics.ObserveTierMemo),
	)

	service, err := insightsapp.NewService(snapshots, sensorRepo,
		insightsapp.WithScorer(memo),
		insightsapp.WithPresentation(styles),
		insightsapp.WithTopSensors(cfg.TopSensors),
	)
	if err != nil {
		logger.Fatalf("insights service error: %v", err)
	}
	handler, err := insightshttp.NewHandler(service,
		insightshttp.WithLogger(logger),
		insightshttp.WithAuditLogger(audit.NewLogLogger(logger)),
	)
	if err != nil {
		logger.Fatalf("insights handler error: %v", err)
	}

	var authMiddleware *auth.Middleware
	if cfg.JWTSecret != "" {
		authMiddleware = auth.NewMiddleware([]byte(cfg.JWTSecret), auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil))
		authMiddleware.Logger = logger
	} else {
		logger.Printf("AUTH_JWT_SECRET not set; API is unauthenticated")
	}

	router := mux.NewRouter()
	handler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(router), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL      string
	HTTPAddr         string
	JWTSecret        string
	RedisAddr        string
	SnapshotTTL      time.Duration
	DevicesTable     string
	SensorsTable     string
	PresentationFile string
	MemoSize         int
	TopSensors       int
}

func loadConfig() config {
	return config{
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:        getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		RedisAddr:        getenvDefault("REDIS_ADDR", ""),
		SnapshotTTL:      getenvDuration("SNAPSHOT_TTL", 30*time.Second),
		DevicesTable:     getenvDefault("DEVICES_TABLE", "devices"),
		SensorsTable:     getenvDefault("SENSORS_TABLE", "sensors"),
		PresentationFile: getenvDefault("TIER_PRESENTATION_FILE", ""),
		MemoSize:         getenvIntDefault("MEMO_SIZE", 4096),
		TopSensors:       getenvIntDefault("TOP_SENSORS", 10),
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
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
