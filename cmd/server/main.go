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

	"github.com/woozymasta/globepins/internal/config"
	"github.com/woozymasta/globepins/internal/geo"
	"github.com/woozymasta/globepins/internal/globe"
	"github.com/woozymasta/globepins/internal/logger"
	"github.com/woozymasta/globepins/internal/processor"
	"github.com/woozymasta/globepins/internal/render"
	"github.com/woozymasta/globepins/internal/server"
	"github.com/woozymasta/globepins/internal/store"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string `short:"a" long:"addr"   env:"LISTEN_ADDRESS" description:"Address to listen on (overrides config)"`
	Port       int    `short:"p" long:"port"   env:"LISTEN_PORT"    description:"Port to listen on (overrides config)"`
	DBPath     string `short:"d" long:"db"     env:"DB_PATH"        description:"SQLite pin database (overrides config, empty keeps pins in memory)"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.DBPath != "" {
		cfg.Store.Path = opts.DBPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open pin store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close pin store")
		}
	}()

	world := globe.New(cfg.Globe, cfg.Defaults)
	restore(world, st)
	seed(ctx, world, cfg)

	world.OnExpire(func(key string) {
		if err := st.Delete(key); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("pin", key).Msg("Failed to delete expired pin")
		}
	})

	go world.Run(ctx, cfg.Render.FPS)

	renderer := render.New(render.OptionsFrom(cfg.Render, cfg.Globe))
	srvCtx, err := server.NewServerContext(world, renderer, st, cfg.Render.Quality, config.DefaultAltitude)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	listenAddr := fmt.Sprintf("%s:%d", cfg.Server.Addr, cfg.Server.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Int("pins_loaded", world.Len()).
		Str("db", cfg.Store.Path).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Web server stopped")
}

// restore plants every pin saved by a previous run.
func restore(world *globe.World, st *store.Store) {
	recs, err := st.List()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read stored pins")
		return
	}

	for _, rec := range recs {
		_, err := world.AddPin(globe.PinSpec{
			Created:  rec.CreatedAt,
			Options:  rec.Options.Data(),
			Text:     rec.Text,
			Lat:      rec.Lat,
			Lon:      rec.Lon,
			Altitude: rec.Altitude,
		})
		if err != nil {
			log.Warn().Err(err).Str("pin", rec.Key).Msg("Failed to restore pin")
		}
	}

	log.Info().Int("count", len(recs)).Msg("Stored pins restored")
}

// seed plants configured pins and locations on top of the restored ones.
func seed(ctx context.Context, world *globe.World, cfg *config.Config) {
	var (
		locs     []geo.Location
		altitude = config.DefaultAltitude
	)

	if cfg.Locations != nil && cfg.Locations.Source != "" {
		client := &http.Client{Timeout: 15 * time.Second}

		var err error
		locs, err = processor.LoadLocations(ctx, client, cfg.Locations.Source)
		if err != nil {
			log.Error().Err(err).Str("source", cfg.Locations.Source).Msg("Failed to load locations")
		}
		altitude = cfg.Locations.Altitude
	}

	n := world.Seed(cfg.Pins, locs, altitude)
	log.Info().Int("count", n).Msg("Configured pins planted")
}
