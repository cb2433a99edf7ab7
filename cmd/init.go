package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

func initFlags(ko *koanf.Koanf) {
	f := flag.NewFlagSet("config", flag.ContinueOnError)
	f.Usage = func() {
		fmt.Println(f.FlagUsages())
		os.Exit(0)
	}

	f.StringSlice("config", []string{".config/config.json"}, "path to one or more config files (will be merged in order)")
	f.String("port", "8080", "port to host the web server on")
	f.String("state-dir", "", "directory for the badger state database, empty keeps state in memory")
	f.Int("recursion-limit", 0, "maximum expression evaluation depth, 0 uses the default")
	f.Bool("dev", false, "run with human readable logs")
	f.Bool("version", false, "show current version of the build")

	if err := f.Parse(os.Args[1:]); err != nil {
		log.Fatal().Msgf("error loading flags: %v", err)
	}

	if err := initConfig(ko, f); err != nil {
		log.Fatal().Msgf("error reading config: %v", err)
	}

	if err := ko.Load(posflag.Provider(f, ".", ko), nil); err != nil {
		log.Fatal().Msgf("error reading flag config: %v", err)
	}
}

func initConfig(ko *koanf.Koanf, f *flag.FlagSet) error {
	configs, _ := f.GetStringSlice("config")
	for _, path := range configs {
		log.Debug().Msgf("Reading config from %s", path)
		var parser koanf.Parser
		switch path[strings.LastIndex(path, ".")+1:] {
		case "yaml", "yml":
			parser = yaml.Parser()
		case "json":
			parser = json.Parser()
		default:
			return fmt.Errorf("unsupported config file extension for %q", path)
		}
		if err := ko.Load(file.Provider(path), parser); err != nil {
			return fmt.Errorf("error reading config %q: %w", path, err)
		}
	}
	return nil
}
