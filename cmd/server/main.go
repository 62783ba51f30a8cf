package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	grpcAdapter "github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/adapters/grpc"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/adapters/memory"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/adapters/mqtt"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/adapters/postgres"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/adapters/sqlite"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/adapters/web"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/adapters/ws"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/ports"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/pkg/tlsconfig"
)

func main() {
	// Optional .env next to the binary; real environment wins
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	config := loadConfig()

	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(config.LogLevel)

	log.Info().Msg("starting photoperiod service")

	loc := loadLocation(config.TZName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize repositories
	repos, err := openRepositories(ctx, config)
	if err != nil {
		log.Fatal().Err(err).Str("repo_type", config.RepoType).Msg("failed to open repository")
	}
	defer repos.close()

	monitor := ports.NewMonitor(ports.RealClock{}, repos.configs, repos.transitions, ports.MonitorOptions{
		Interval:  config.EvalInterval,
		Retention: config.Retention,
		Location:  loc,
	})

	tlsFiles := tlsconfig.Files{Cert: config.TLSCert, Key: config.TLSKey, CA: config.TLSCA}

	// MQTT publisher is optional
	if config.MQTTBroker != "" {
		opts := mqtt.Options{Broker: config.MQTTBroker, Topic: config.MQTTTopic}
		if tlsFiles.Enabled() && securedBroker(config.MQTTBroker) {
			tlsCfg, err := tlsFiles.Client()
			if err != nil {
				log.Fatal().Err(err).Msg("failed to load MQTT TLS config")
			}
			opts.TLS = tlsCfg
		}
		publisher, err := mqtt.NewRealPublisher(opts)
		if err != nil {
			log.Fatal().Err(err).Str("broker", config.MQTTBroker).Msg("failed to connect to MQTT broker")
		}
		defer publisher.Close()
		monitor.AddPublisher(publisher)
		log.Info().Str("broker", config.MQTTBroker).Str("topic", config.MQTTTopic).Msg("publishing transitions to MQTT")
	}

	hub := ws.NewHub()
	monitor.AddSink(hub)

	if err := monitor.Init(ctx, seedRecord(config, time.Now().In(loc))); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize monitor")
	}

	// Configure TLS if certificates are provided
	var serverOpts []grpc.ServerOption
	if tlsFiles.Enabled() {
		tlsCfg, err := tlsFiles.Server()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load TLS config")
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(tlsCfg)))
		log.Info().Msg("mTLS enabled")
	} else {
		log.Warn().Msg("TLS_CERT not set, starting without TLS (dev mode only)")
	}

	grpcServer := grpc.NewServer(serverOpts...)
	grpcAdapter.RegisterPhotoperiodServer(grpcServer, grpcAdapter.NewPhotoperiodHandler(monitor))

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", config.Port))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen")
	}
	log.Info().Str("port", config.Port).Msg("gRPC server listening")

	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatal().Err(err).Msg("failed to serve")
		}
	}()

	var httpServer *web.Server
	if config.HTTPAddr != "" {
		httpServer = web.New(config.HTTPAddr, monitor, ws.NewHandler(hub, monitor))
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("failed to serve HTTP")
			}
		}()
		log.Info().Str("addr", config.HTTPAddr).Msg("HTTP server listening")
	}

	go monitor.Start(ctx)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	cancel() // Stop monitor
	if httpServer != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown failed")
		}
		done()
	}
	grpcServer.GracefulStop()

	log.Info().Msg("server stopped")
}

type repositories struct {
	configs     domain.ConfigRepository
	transitions domain.TransitionRepository
	close       func() error
}

// openRepositories selects the storage backend named by config.RepoType
func openRepositories(ctx context.Context, config Config) (repositories, error) {
	switch config.RepoType {
	case "sqlite":
		r, err := sqlite.NewRepository(config.DBPath)
		if err != nil {
			return repositories{}, err
		}
		log.Info().Str("db_path", config.DBPath).Msg("initialized SQLite repository")
		return repositories{configs: r, transitions: r, close: r.Close}, nil
	case "postgres":
		if config.DatabaseURL == "" {
			return repositories{}, errors.New("DATABASE_URL is required for postgres")
		}
		r, err := postgres.NewRepository(ctx, config.DatabaseURL)
		if err != nil {
			return repositories{}, err
		}
		log.Info().Msg("initialized Postgres repository")
		return repositories{configs: r, transitions: r, close: r.Close}, nil
	case "memory":
		log.Info().Msg("initialized in-memory repository")
		return repositories{
			configs:     memory.NewConfigRepository(),
			transitions: memory.NewTransitionRepository(),
			close:       func() error { return nil },
		}, nil
	default:
		return repositories{}, fmt.Errorf("unknown REPO_TYPE %q", config.RepoType)
	}
}

// seedRecord is stored when the repository holds no config yet.
// Without DEFAULT_START the schedule starts now.
func seedRecord(config Config, now time.Time) domain.Record {
	start := config.DefaultStart
	if start == "" {
		start = now.Format(domain.StartLayout)
	}
	return domain.Record{
		StartDate:    start,
		LightHours:   config.DefaultLightHours,
		DarkHours:    config.DefaultDarkHours,
		DurationDays: config.DefaultDurationDays,
	}
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn().Err(err).Str("tz", name).Msg("unknown time zone, using local")
		return time.Local
	}
	return loc
}

func securedBroker(broker string) bool {
	for _, scheme := range []string{"ssl://", "tls://", "mqtts://"} {
		if strings.HasPrefix(broker, scheme) {
			return true
		}
	}
	return false
}

// Config holds application configuration
type Config struct {
	Port         string
	HTTPAddr     string // empty disables the HTTP surface
	EvalInterval time.Duration
	Retention    time.Duration
	RepoType     string // "memory" | "sqlite" | "postgres"
	DBPath       string // SQLite database file path (used when RepoType=sqlite)
	DatabaseURL  string // Postgres connection string (used when RepoType=postgres)
	MQTTBroker   string // empty disables MQTT publishing
	MQTTTopic    string
	LogLevel     zerolog.Level
	TZName       string // location for parsing start dates
	TLSCert      string // path to this service's certificate
	TLSKey       string // path to this service's private key
	TLSCA        string // path to the CA certificate

	DefaultStart        string
	DefaultLightHours   float64
	DefaultDarkHours    float64
	DefaultDurationDays int
}

// loadConfig reads configuration from environment variables.
// Unparseable values fall back to their defaults.
func loadConfig() Config {
	logLevel := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && l != zerolog.NoLevel {
		logLevel = l
	}

	httpAddr, ok := os.LookupEnv("HTTP_ADDR")
	if !ok {
		httpAddr = ":8080"
	}

	return Config{
		Port:         envString("PORT", "50052"),
		HTTPAddr:     httpAddr,
		EvalInterval: envDuration("EVAL_INTERVAL", time.Minute),
		Retention:    envDuration("RETENTION", 720*time.Hour),
		RepoType:     envString("REPO_TYPE", "memory"),
		DBPath:       envString("DB_PATH", "./photoperiod.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		MQTTBroker:   os.Getenv("MQTT_BROKER"),
		MQTTTopic:    envString("MQTT_TOPIC", mqtt.DefaultTopic),
		LogLevel:     logLevel,
		TZName:       os.Getenv("TZ_NAME"),
		TLSCert:      os.Getenv("TLS_CERT"),
		TLSKey:       os.Getenv("TLS_KEY"),
		TLSCA:        os.Getenv("TLS_CA"),

		DefaultStart:        os.Getenv("DEFAULT_START"),
		DefaultLightHours:   envFloat("DEFAULT_LIGHT_HOURS", 12),
		DefaultDarkHours:    envFloat("DEFAULT_DARK_HOURS", 12),
		DefaultDurationDays: envInt("DEFAULT_DURATION_DAYS", 30),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
