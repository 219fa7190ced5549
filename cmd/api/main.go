package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/minhister1020/story-voice-generator/internal/api"
	"github.com/minhister1020/story-voice-generator/internal/config"
	"github.com/minhister1020/story-voice-generator/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "story-voice-api").Logger()

	log.Info().Msg("Starting Story Voice API...")

	if _, err := cfg.Credential(); err != nil {
		log.Warn().Err(err).Msg("ElevenLabs credential unusable; proxy endpoints will return configuration errors")
	}

	ttsSvc := services.NewElevenLabsService(services.ElevenLabsOptions{
		BaseURL: cfg.ElevenLabsBaseURL,
		ModelID: cfg.ElevenLabsModelID,
		Timeout: cfg.ElevenLabsTimeout,
	})
	log.Info().
		Str("base_url", cfg.ElevenLabsBaseURL).
		Str("model", cfg.ElevenLabsModelID).
		Int("max_text_length", cfg.MaxTextLength).
		Msg("TTS provider: ElevenLabs")

	handler := api.NewHandler(ttsSvc, cfg)
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins(),
	})

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("Server exited")
}
