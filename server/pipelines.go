package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tarungka/sift/pipeline"
)

type pipelineInfo struct {
	Key     string                 `json:"key"`
	Query   string                 `json:"query"`
	Running bool                   `json:"running"`
	Stats   pipeline.StatsSnapshot `json:"stats"`
}

func info(dp *pipeline.DataPipeline) pipelineInfo {
	return pipelineInfo{
		Key:     dp.Key(),
		Query:   dp.Query(),
		Running: dp.Running(),
		Stats:   dp.Stats(),
	}
}

// PipelinesRouter reports on the pipelines the process is running.
func PipelinesRouter(manager *pipeline.Manager) chi.Router {
	router := chi.NewRouter()

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		all := manager.All()
		infos := make([]pipelineInfo, 0, len(all))
		for _, dp := range all {
			infos = append(infos, info(dp))
		}
		writeJSON(w, http.StatusOK, infos)
	})

	router.Get("/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		dp, ok := manager.Get(key)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such pipeline"})
			return
		}
		writeJSON(w, http.StatusOK, info(dp))
	})

	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Error encoding response")
	}
}
