package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"brick-tracker/internal/api"
	"brick-tracker/internal/app"
	"brick-tracker/internal/config"
	"brick-tracker/internal/logger"
	"brick-tracker/internal/monitor"
	"brick-tracker/internal/notify"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	l := logger.Setup(cfg.LogLevel, cfg.Pretty())
	if envErr != nil {
		l.Debug().Msg("No .env file found")
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := api.NewHub(l)
	var mon *monitor.Monitor
	if cfg.MonitorEnabled {
		mon = monitor.New(monitor.Options{
			Reader:   a.Reader,
			Detector: a.Detector,
			Ledger:   a.Ledger,
			Notifier: notify.Multi{a.Notifier, hub},
			Metrics:  monitor.NewMetrics(reg),
			Logger:   l,
			Interval: cfg.MonitorInterval,
		})
		go mon.Run(ctx)
	}

	handler := api.NewHandler(api.Options{
		Reader:   a.Reader,
		Detector: a.Detector,
		Policy:   a.Policy,
		Hub:      hub,
		Monitor:  mon,
		Logger:   l,
	})
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(handler, reg),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	l.Info().Str("port", cfg.Port).Bool("monitor", cfg.MonitorEnabled).Msg("Server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Fatal().Err(err).Msg("Server failed")
	}
	l.Info().Msg("Server stopped")
}
