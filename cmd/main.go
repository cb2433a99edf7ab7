package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tarungka/sift/checkpoint"
	"github.com/tarungka/sift/internal/logger"
	"github.com/tarungka/sift/internal/script"
	"github.com/tarungka/sift/pipeline"
	"github.com/tarungka/sift/server"
	"github.com/tarungka/sift/state"
	"github.com/tarungka/sift/stream"
)

var (
	buildString = "unknown"
	ko          = koanf.New(".")
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	initFlags(ko)

	if ko.Bool("version") {
		fmt.Println(buildString)
		os.Exit(0)
	}
	if ko.Bool("dev") {
		logger.SetDevelopment(true)
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	log.Info().Str("build", buildString).Msg("Starting sift")

	configs, err := pipeline.ParseConfig(ko)
	if err != nil {
		log.Fatal().Err(err).Msg("Error when reading the pipeline config")
	}
	recursionLimit := pipeline.RecursionLimit(ko)

	backend, err := stateBackend(ko)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening the state backend")
	}
	defer backend.Close()
	ckpt := checkpoint.NewManager(backend)

	manager := pipeline.NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for _, cfg := range configs {
		stmt, err := script.ParseQuery(cfg.Query, cfg.Args)
		if err != nil {
			log.Fatal().Err(err).Str("pipeline", cfg.Name).Msg("Error parsing query")
		}

		dp, err := pipeline.New(cfg, recursionLimit, func(name string) (stream.Operator, error) {
			return stream.WithStatement(name, stmt, recursionLimit)
		})
		if err != nil {
			log.Fatal().Err(err).Str("pipeline", cfg.Name).Msg("Error building pipeline")
		}
		dp.SetCheckpointing(ckpt, ko.Duration("checkpoint_interval"))
		if err := manager.Add(dp); err != nil {
			log.Fatal().Err(err).Msg("Error registering pipeline")
		}

		log.Debug().Msgf("Creating and running pipeline: %s", dp.Show())
		wg.Add(1)
		go func(dp *pipeline.DataPipeline) {
			defer wg.Done()
			if err := dp.Run(ctx); err != nil {
				log.Err(err).Str("pipeline", dp.Key()).Msg("Pipeline stopped with an error")
			}
		}(dp)
	}

	go func() {
		log.Info().Msg("Starting the web server...")
		server.Init(ko)
		server.Run(ko, manager)
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-done:
		log.Info().Msg("Shutting down...")
		cancel()
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			log.Warn().Msg("Timed out waiting for pipelines to stop")
		}
	case <-finished:
		log.Info().Msg("All pipelines drained")
	}
}

func stateBackend(ko *koanf.Koanf) (state.Backend, error) {
	dir := ko.String("state-dir")
	if dir == "" {
		return state.NewInMemoryBackend(), nil
	}
	return state.NewBadgerBackend(dir)
}
