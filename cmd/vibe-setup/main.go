package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/madhurthareja/vibe/cmd/vibe-setup/commands"
	"github.com/madhurthareja/vibe/pkg/ui"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	setupLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first interrupt cancels the run between steps; a second one kills
	// the process.
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Received interrupt signal, stopping after the current step...")
		cancel()
		<-sigChan
		os.Exit(commands.ExitAborted)
	}()

	err := commands.Execute(ctx, Version, Commit, BuildDate)
	if err != nil && !commands.Reported(err) {
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
	}
	cancel()
	os.Exit(commands.ExitCode(err))
}

// setupLogging configures zerolog for the global logger. The default level
// is warn so log lines do not interleave with the progress table.
func setupLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}
