package pipeline

import (
	"fmt"

	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"

	"github.com/tarungka/sift/sinks"
	"github.com/tarungka/sift/sources"
)

// PipelineConfig is one pipeline entry in the config file: a query, where
// its events come from and where the passing ones go.
type PipelineConfig struct {
	Name    string         `koanf:"name" json:"name"`
	Query   string         `koanf:"query" json:"query"`
	Args    map[string]any `koanf:"args" json:"args"`
	Workers int            `koanf:"workers" json:"workers"`

	Source sources.SourceConfig `koanf:"source" json:"source"`
	Sink   sinks.SinkConfig     `koanf:"sink" json:"sink"`
}

// DefaultRecursionLimit bounds guard evaluation depth when the config does
// not say otherwise.
const DefaultRecursionLimit = 1024

// ParseConfig reads the pipeline definitions out of the loaded config.
func ParseConfig(ko *koanf.Koanf) ([]PipelineConfig, error) {
	var configs []PipelineConfig
	if err := ko.Unmarshal("pipelines", &configs); err != nil {
		log.Err(err).Msg("Error when un-marshaling pipelines")
		return nil, err
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no pipelines configured")
	}
	for i := range configs {
		if configs[i].Query == "" {
			return nil, fmt.Errorf("pipeline %q has no query", configs[i].Name)
		}
		if configs[i].Workers <= 0 {
			configs[i].Workers = 1
		}
	}
	return configs, nil
}

// RecursionLimit reads the process wide recursion limit from the config,
// falling back to the default.
func RecursionLimit(ko *koanf.Koanf) int {
	if limit := ko.Int("recursion-limit"); limit > 0 {
		return limit
	}
	if limit := ko.Int("recursion_limit"); limit > 0 {
		return limit
	}
	return DefaultRecursionLimit
}
