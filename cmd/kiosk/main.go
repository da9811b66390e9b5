package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"kiosk-voice/config"
	"kiosk-voice/internal/application"
	"kiosk-voice/internal/domain"
	"kiosk-voice/internal/infra"
	"kiosk-voice/internal/infra/audio"
	"kiosk-voice/internal/infra/display"
	"kiosk-voice/internal/infra/ingress"
	"kiosk-voice/internal/infra/kiosk"
	"kiosk-voice/internal/infra/metrics"
	"kiosk-voice/internal/infra/pushover"
	"kiosk-voice/internal/infra/recognizer"
	"kiosk-voice/internal/infra/webhook"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := setupTracing()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("flushing traces", "error", err)
		}
	}()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("kiosk voice error", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	mode := domain.Mode(cfg.Mode)

	retry := infra.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Kiosk.CatalogAttempts
	menu, err := kiosk.LoadMenu(ctx, cfg.Kiosk.Catalog, retry, logger)
	if err != nil {
		return err
	}

	var notifier kiosk.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey, cfg.Pushover.Title)
	}
	store := kiosk.NewStore(menu, notifier, logger)

	board := display.NewBoard(parseDuration(logger, "display.message_ttl", cfg.Display.MessageTTL, display.DefaultMessageTTL), logger)
	defer board.Close()

	pipelineMetrics := metrics.NewMetrics(nil)

	hook := webhook.NewClient(
		cfg.Webhook.URL,
		cfg.Webhook.Language,
		parseDuration(logger, "webhook.timeout", cfg.Webhook.Timeout, 30*time.Second),
		logger,
	)

	pcfg := application.PipelineConfig{
		Mode:       mode,
		Dispatcher: hook,
		Kiosk:      store.State(),
		Display:    board,
		Metrics:    pipelineMetrics,
		StatusTTL:  parseDuration(logger, "display.status_ttl", cfg.Display.StatusTTL, application.DefaultStatusTTL),
	}

	var channel *recognizer.Channel
	switch mode {
	case domain.ModeStreaming:
		channel = recognizer.NewChannel(cfg.Recognizer.URL, logger)
		pcfg.Channel = channel
		pcfg.Capture = createCapture(cfg.Audio, logger)
	case domain.ModeBatch:
		pcfg.Capture = createCapture(cfg.Audio, logger)
		pcfg.Uploader = hook
		pcfg.Encoder = audio.EncodeWAV
	}

	pipeline := application.NewPipeline(pcfg, logger)

	server := ingress.NewServer(ingress.Config{
		Addr:       cfg.Ingress.Addr,
		AuthToken:  cfg.Ingress.AuthToken,
		RateLimit:  cfg.Ingress.RateLimit,
		RateWindow: parseDuration(logger, "ingress.rate_window", cfg.Ingress.RateWindow, time.Minute),
	}, pipeline, promhttp.Handler(), logger)
	server.AddStatus("display", func() any { return board.View() })
	server.AddStatus("kiosk", func() any { return store.Selection() })

	logger.Info("starting kiosk voice",
		"mode", mode,
		"audio_source", cfg.Audio.Source,
		"products", len(menu.Products),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pipeline.Run(ctx)
	})
	g.Go(func() error {
		return server.Run(ctx)
	})
	if channel != nil {
		interval := parseDuration(logger, "supervisor.interval", cfg.Supervisor.Interval, application.DefaultSupervisorInterval)
		supervisor := application.NewSupervisor(channel, interval, pipelineMetrics, logger)
		g.Go(func() error {
			return supervisor.Run(ctx)
		})
	}

	return g.Wait()
}

func createCapture(cfg config.AudioConfig, logger *slog.Logger) application.AudioCapture {
	switch cfg.Source {
	case "file":
		return audio.NewFileSource(cfg.FilePath, cfg.ChunkSize, cfg.FileLoop, logger)
	default:
		return audio.NewMicrophoneSource(cfg.SampleRate, cfg.ChunkSize, logger)
	}
}

func parseDuration(logger *slog.Logger, key, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logger.Warn("invalid duration, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return d
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
