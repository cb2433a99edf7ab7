package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	isDevelopment = false // if running in debug mode

	logFile *os.File = nil

	// AdHocLogger is for the places where wiring a service logger
	// through is not worth the trouble
	AdHocLogger zerolog.Logger

	mu      sync.Mutex
	loggers = map[string]zerolog.Logger{}
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	AdHocLogger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "ad-hoc-logger").Caller().Logger()
}

// GetLogger returns a logger tagged with the given service name. Loggers are
// cached per service, repeated calls hand back the same instance.
func GetLogger(serviceName string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[serviceName]; ok {
		return l
	}

	var l zerolog.Logger
	if !isDevelopment {
		l = zerolog.New(os.Stderr).With().Timestamp().Str("service", serviceName).Logger()
	} else {
		// Human readable logs for development mode
		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339,
			FormatLevel: func(i any) string {
				return strings.ToUpper(fmt.Sprintf("[%5s]", i))
			},
			FormatMessage: func(i any) string {
				return fmt.Sprintf("| %s |", i)
			},
			FormatCaller: func(i any) string {
				return filepath.Base(fmt.Sprintf("%s", i))
			},
			PartsExclude: []string{
				zerolog.TimestampFieldName,
			}}
		writer := zerolog.MultiLevelWriter(consoleWriter)
		if logFile != nil {
			writer = zerolog.MultiLevelWriter(consoleWriter, logFile)
		}
		l = zerolog.New(writer).Level(zerolog.TraceLevel).With().Timestamp().Str("service", serviceName).Caller().Logger()
	}

	loggers[serviceName] = l
	return l
}

func SetDevelopment(value bool) {
	isDevelopment = value
}

func SetLogFile(file *os.File) {
	logFile = file
}
