package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pion/webrtc/v4"

	"CamSession/internal/backend"
	"CamSession/internal/config"
	"CamSession/internal/log"
	"CamSession/internal/preview"
	"CamSession/internal/session"
)

func main() {
	configPath := flag.String("config", os.Getenv("CAMSESSION_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			baseLogger := log.Base()
			baseLogger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
		cfg = loaded
	}
	log.Configure(log.Config{Level: cfg.LogLevel})
	logger := log.WithComponent("main")

	be, err := backend.NewMediaBackend()
	if err != nil {
		logger.Fatal().Err(err).Msg("create capture backend")
	}

	coord, err := session.New(session.Options{
		Backend:      be,
		Profile:      cfg.SessionProfile(),
		Preset:       cfg.Preset,
		RecordingDir: cfg.RecordingDir,
		PreferFacing: cfg.Facing(),
		FlashMode:    cfg.Flash(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create session coordinator")
	}
	defer coord.Close()

	if cfg.Recording != nil {
		if err := coord.UpdateRecordingSettings(cfg.Recording); err != nil {
			logger.Warn().Err(err).Msg("apply recording settings")
		}
	}

	publisher := preview.NewPublisher(preview.Options{}, func() webrtc.TrackLocal {
		if track := be.Track(); track != nil {
			return track
		}
		return nil
	})
	defer publisher.Close()

	go func() {
		if err := serveHTTP(cfg.Listen, coord, publisher); err != nil {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	logger.Info().Msg("awaiting signal")
	sig := <-sigs
	logger.Info().Str("signal", sig.String()).Msg("exiting")

	if err := coord.Stop(); err != nil {
		logger.Warn().Err(err).Msg("stop session")
	}
}
