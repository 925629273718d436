package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/skratchdot/open-golang/open"

	"github.com/theaklair/jsorrery/internal/api"
	"github.com/theaklair/jsorrery/internal/auth"
	"github.com/theaklair/jsorrery/internal/catalog"
	"github.com/theaklair/jsorrery/internal/path"
	"github.com/theaklair/jsorrery/internal/satellite"
	"github.com/theaklair/jsorrery/internal/sim"
	"github.com/theaklair/jsorrery/internal/stream"
	"github.com/theaklair/jsorrery/web"
)

func main() {
	openBrowser := flag.Bool("open", false, "open the viewer in the default browser after startup")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	addr := os.Getenv("ORRERY_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	defs, err := catalog.Load(os.Getenv("ORRERY_CATALOG"))
	if err != nil {
		logger.Error("failed to load body catalog", "error", err)
		os.Exit(1)
	}
	reg := catalog.BuildRegistry(defs)
	logger.Info("catalog loaded", "bodies", reg.Len())

	simCfg := loadSimConfig(logger)
	epoch := loadEpoch(logger)
	simulation := sim.New(reg, epoch, simCfg, logger)
	sampler := path.NewSampler(reg, logger)

	tracker := loadTracker(logger)

	srv := api.NewServer(addr, simulation, sampler, logger, api.Options{
		Auth:    authCfg,
		Tracker: tracker,
		WebUI:   http.FileServer(http.FS(web.Content)),
		Stream:  loadStreamConfig(logger),
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go simulation.Run(ctx)

	go func() {
		logger.Info("starting server",
			"addr", addr,
			"auth_enabled", authCfg.Enabled,
			"epoch", epoch.UTC().Format(time.RFC3339),
			"speed", simCfg.Speed,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	if *openBrowser {
		url := "http://localhost" + addr
		if !strings.HasPrefix(addr, ":") {
			url = "http://" + addr
		}
		go func() {
			time.Sleep(300 * time.Millisecond)
			if err := open.Run(url); err != nil {
				logger.Warn("could not open browser", "url", url, "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("ORRERY_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	if v := os.Getenv("ORRERY_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New("ORRERY_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("ORRERY_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("ORRERY_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}
	return cfg, nil
}

func loadEpoch(logger *slog.Logger) time.Time {
	v := os.Getenv("ORRERY_EPOCH")
	if v == "" {
		return time.Now().UTC()
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		logger.Warn("invalid ORRERY_EPOCH value, using current time", "value", v)
		return time.Now().UTC()
	}
	return t
}

func loadSimConfig(logger *slog.Logger) sim.Config {
	cfg := sim.Config{
		Step:    time.Second,
		Speed:   86400, // one simulated day per wall second
		Workers: runtime.NumCPU(),
	}

	if v := os.Getenv("ORRERY_TICK_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 10 {
			logger.Warn("invalid ORRERY_TICK_MS value, using default", "value", v, "default", 1000)
		} else {
			cfg.Step = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("ORRERY_SPEED"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			logger.Warn("invalid ORRERY_SPEED value, using default", "value", v, "default", cfg.Speed)
		} else {
			cfg.Speed = f
		}
	}

	if v := os.Getenv("ORRERY_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORRERY_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	logger.Info("simulation config",
		"step", cfg.Step.String(),
		"speed", cfg.Speed,
		"workers", cfg.Workers,
	)
	return cfg
}

// loadTracker reads an optional TLE file and builds the Earth satellite
// overlay. Returns nil when no file is configured.
func loadTracker(logger *slog.Logger) *satellite.Tracker {
	file := os.Getenv("ORRERY_TLE_FILE")
	if file == "" {
		return nil
	}

	f, err := os.Open(file)
	if err != nil {
		logger.Warn("could not open TLE file, satellite overlay disabled", "file", file, "error", err)
		return nil
	}
	defer f.Close()

	entries, err := satellite.ParseTLE(f, logger)
	if err != nil {
		logger.Warn("could not parse TLE file, satellite overlay disabled", "file", file, "error", err)
		return nil
	}

	tracker := satellite.NewTracker("earth", entries, logger)
	logger.Info("satellite overlay loaded", "file", file, "satellites", tracker.Len())
	return tracker
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("ORRERY_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORRERY_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("ORRERY_STREAM_KEEPALIVE_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORRERY_STREAM_KEEPALIVE_SECONDS value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ORRERY_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid ORRERY_TRUST_PROXY value, using default", "value", v, "default", false)
		} else {
			cfg.TrustProxy = trust
		}
	}

	return cfg
}
