package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/globepins/internal/config"
	"github.com/woozymasta/globepins/internal/geo"
	"github.com/woozymasta/globepins/internal/globe"
	"github.com/woozymasta/globepins/internal/logger"
	"github.com/woozymasta/globepins/internal/processor"
	"github.com/woozymasta/globepins/internal/render"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string `short:"c" long:"config"      env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Output      string `short:"o" long:"out"         env:"OUTPUT_DIR"  description:"Directory for frame files" default:"frames"`
	Frames      int    `short:"n" long:"frames"      env:"FRAMES"      description:"Number of frames to render" default:"90"`
	Every       int    `short:"e" long:"every"       env:"EVERY"       description:"Write every Nth frame" default:"1"`
	Size        int    `short:"s" long:"size"        env:"FRAME_SIZE"  description:"Downscale frames to this longest edge (0 keeps render size)"`
	Concurrency int    `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Encoder workers" default:"4"`
	Force       bool   `short:"f" long:"force"       description:"Force overwrite of existing files"`
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

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if opts.Frames <= 0 {
		opts.Frames = 90
	}
	if opts.Every <= 0 {
		opts.Every = 1
	}

	world := globe.New(cfg.Globe, cfg.Defaults)

	var locs []geo.Location
	altitude := config.DefaultAltitude
	if cfg.Locations != nil && cfg.Locations.Source != "" {
		client := &http.Client{Timeout: 15 * time.Second}
		locs, err = processor.LoadLocations(context.Background(), client, cfg.Locations.Source)
		if err != nil {
			log.Fatal().Err(err).Str("source", cfg.Locations.Source).Msg("Failed to load locations")
		}
		altitude = cfg.Locations.Altitude
	}

	planted := world.Seed(cfg.Pins, locs, altitude)
	renderer := render.New(render.OptionsFrom(cfg.Render, cfg.Globe))
	dt := time.Second / time.Duration(cfg.Render.FPS)

	log.Info().
		Int("pins", planted).
		Int("frames", opts.Frames).
		Int("fps", cfg.Render.FPS).
		Str("out", opts.Output).
		Msg("Starting snapshot")

	frames := make(chan processor.Frame, opts.Concurrency)
	go func() {
		defer close(frames)
		for i := 0; i < opts.Frames; i++ {
			world.Step(dt)
			if i%opts.Every != 0 {
				continue
			}

			var f processor.Frame
			world.View(func(s globe.Snapshot) {
				f = processor.Frame{Index: i / opts.Every, Image: renderer.Draw(s)}
			})
			frames <- f
		}
	}()

	fw := processor.FrameWriter{
		Dir:         opts.Output,
		Concurrency: opts.Concurrency,
		Quality:     cfg.Render.Quality,
		Size:        opts.Size,
		Force:       opts.Force,
	}

	written, err := fw.Write(frames)
	if err != nil {
		log.Fatal().Err(err).Int("written", written).Msg("Snapshot failed")
	}

	log.Info().
		Int("written", written).
		Int("animating", world.Animating()).
		Msg("Snapshot finished successfully")
}
