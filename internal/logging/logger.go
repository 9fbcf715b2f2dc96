// Package logging configures the global zerolog logger and provides the
// structured startup summary emitted by every binary.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger from the environment.
//
//	STYLIST_LOG_LEVEL   debug, info, warn, error (default: info)
//	STYLIST_LOG_FORMAT  console or json (default: console, json inside Lambda)
func Init() {
	InitWithWriter(os.Stderr)
}

// InitWithWriter is Init with an explicit destination. The MCP server uses it
// to keep stdout free for the protocol.
func InitWithWriter(w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv("STYLIST_LOG_LEVEL")))

	if useJSON() {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func useJSON() bool {
	switch os.Getenv("STYLIST_LOG_FORMAT") {
	case "json":
		return true
	case "console":
		return false
	}
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}
