// Package server hosts the admin HTTP endpoints: health and per-pipeline
// stats.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"

	"github.com/tarungka/sift/pipeline"
)

func Init(config *koanf.Koanf) {
	log.Info().Msgf("Running the web server on port: %s", config.String("port"))
}

func Run(config *koanf.Koanf, manager *pipeline.Manager) {
	serverPort := config.String("port")

	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/health"))
	router.Use(middleware.CleanPath)
	router.Use(middleware.RequestID)

	router.Mount("/pipelines", PipelinesRouter(manager))

	log.Error().Msg(http.ListenAndServe(":"+serverPort, router).Error())
}
