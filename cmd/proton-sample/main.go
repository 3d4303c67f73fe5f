// proton-sample demonstrates the session lifecycle against the live API:
// logging in (with a second factor when the account requires one), persisting
// the session between runs, refreshing expired tokens and sending an
// authenticated request.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/eppie-io/go-proton-client/internal/config"
)

func main() {
	displayAppname("proton sample")
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func newLogger(c config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
