package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/propagation/internal/adapters/emitter"
	router "github.com/dkeye/propagation/internal/adapters/http"
	"github.com/dkeye/propagation/internal/app"
	"github.com/dkeye/propagation/internal/app/host"
	"github.com/dkeye/propagation/internal/app/orch"
	"github.com/dkeye/propagation/internal/app/pool"
	"github.com/dkeye/propagation/internal/app/propagation"
	"github.com/dkeye/propagation/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	} else if err != nil {
		log.Warn().Err(err).Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	anchors := cfg.BuildAnchors()
	rooms, err := config.BuildRooms(cfg.Rooms, anchors)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid rooms")
	}
	static, err := config.BuildRooms(cfg.StaticRooms, anchors)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid static rooms")
	}

	factory := emitter.NewFactory(emitter.NewCatalogue(cfg.Clips.Catalogue, cfg.Clips.DefaultDuration), nil)
	mgr, err := propagation.NewManager(propagation.Options{
		Pool: pool.Options{
			Size:     cfg.Pool.Size,
			MinSize:  cfg.Pool.MinSize,
			AutoGrow: cfg.Pool.AutoGrow,
			GrowStep: cfg.Pool.GrowStep,
		},
		StaticRooms: static,
	}, factory)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create propagation manager")
	}

	h := host.New(mgr, cfg.StepInterval)
	var wg conc.WaitGroup
	wg.Go(func() {
		if err := h.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("host loop failed")
		}
	})

	if err := h.Setup(ctx, rooms); err != nil {
		log.Fatal().Err(err).Msg("topology setup failed")
	}

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Host:     h,
		Anchors:  anchors,
	}

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	wg.Go(func() {
		log.Info().Str("addr", addr).Msg("propagation server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	})

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	wg.Wait()
	log.Info().Msg("Server exited gracefully")
}
