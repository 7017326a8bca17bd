package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ramu/config"
	"ramu/internal/application"
	"ramu/internal/infra/audio"
	"ramu/internal/infra/control"
	"ramu/internal/infra/openai"
	"ramu/internal/infra/profiles"
	"ramu/internal/infra/pushover"
	"ramu/internal/infra/speech"
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

	for _, name := range cfg.MissingCredentials() {
		logger.Warn("missing credential, requests will fail", "service", name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	list := cfg.Profiles
	if len(list) == 0 {
		list = profiles.Defaults()
	}
	registry, err := profiles.NewRegistry(list)
	if err != nil {
		logger.Error("loading profiles", "error", err)
		os.Exit(1)
	}

	capture := createCapture(cfg.Audio, logger)
	player := createPlayer(cfg.Audio, logger)

	var transcriber *speech.Transcriber
	if cfg.Speech.STTEndpoint != "" {
		transcriber = speech.NewTranscriberWithURL(cfg.Speech.APIKey, cfg.Speech.STTEndpoint, logger)
	} else {
		transcriber = speech.NewTranscriber(cfg.Speech.APIKey, cfg.Speech.Region, logger)
	}

	var synthesizer *speech.Synthesizer
	if cfg.Speech.TTSEndpoint != "" {
		synthesizer = speech.NewSynthesizerWithURL(cfg.Speech.APIKey, cfg.Speech.TTSEndpoint, cfg.Speech.UserAgent, logger)
	} else {
		synthesizer = speech.NewSynthesizer(cfg.Speech.APIKey, cfg.Speech.Region, cfg.Speech.UserAgent, logger)
	}

	chatClient := openai.NewChatClient(cfg.Chat.APIKey, cfg.Chat.Endpoint, cfg.Chat.Deployment, cfg.Chat.APIVersion, logger)

	timeout := cfg.RequestTimeout()
	transcriber.SetTimeout(timeout)
	synthesizer.SetTimeout(timeout)
	chatClient.SetTimeout(timeout)

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey, logger)
	} else {
		notifier = &application.NoopNotifier{}
	}

	hub := control.NewHub(logger)
	events := application.MultiSink{hub, application.LogSink{Logger: logger}}

	orchestrator := application.NewOrchestrator(
		capture,
		transcriber,
		chatClient,
		synthesizer,
		player,
		registry,
		events,
		notifier,
		application.Settings{
			Profile:        cfg.Assistant.Profile,
			SpeakerEnabled: *cfg.Assistant.SpeakerEnabled,
		},
		logger,
	)

	server := control.NewServer(cfg.Control.HTTPAddr, cfg.Control.AuthToken, orchestrator, hub, logger)
	server.TrustProxyHeaders(cfg.Control.TrustProxyHeaders)
	if err := server.Start(ctx); err != nil {
		logger.Error("starting control server", "error", err)
		os.Exit(1)
	}

	snap := orchestrator.Snapshot()
	logger.Info("starting ramu assistant",
		"capture", capture.Name(),
		"player", player.Name(),
		"profile", snap.Profile.Name,
		"speaker", snap.SpeakerEnabled,
		"request_timeout", timeout,
	)

	<-ctx.Done()

	if err := server.Stop(); err != nil {
		logger.Error("stopping control server", "error", err)
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := orchestrator.Close(closeCtx); err != nil {
		logger.Warn("closing session", "error", err)
	}
}

func createCapture(cfg config.AudioConfig, logger *slog.Logger) application.AudioCapture {
	switch cfg.Capture {
	case "file":
		return audio.NewFileCapture(cfg.CaptureDir, logger)
	default:
		return audio.NewMicrophoneCapture(cfg.SampleRate, logger)
	}
}

func createPlayer(cfg config.AudioConfig, logger *slog.Logger) application.AudioPlayer {
	switch cfg.Playback {
	case "file":
		return audio.NewFilePlayer(cfg.OutputDir, logger)
	case "none":
		return audio.NoopPlayer{}
	default:
		return audio.NewCommandPlayer(cfg.PlayerCommand, logger)
	}
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
