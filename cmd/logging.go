package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// setupLogging configures the global zerolog logger: pretty console
// output when stderr is a terminal, JSON lines otherwise (e.g. when the
// proxy runs under a supervisor and logs are collected).
func setupLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
