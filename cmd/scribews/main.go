// scribews talks to the transcription backend from the command line.
//
// Usage:
//
//	scribews [-config scribews.yaml] listen [-endpoint /ws] [-audio file.webm]
//	scribews [-config scribews.yaml] upload <audio file>
//	scribews [-config scribews.yaml] templates
//	scribews [-config scribews.yaml] process -template <id> -text <transcription> [-out dir]
//
// Every setting can be overridden with SCRIBE_* environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/sonirico/scribews/api"
	"github.com/sonirico/scribews/internal/config"
	"github.com/sonirico/scribews/internal/logging"
)

var (
	buildVersion string
	buildCommit  string
)

type command func(ctx context.Context, app *app, args []string) error

var commands = map[string]command{
	"listen":    runListen,
	"upload":    runUpload,
	"templates": runTemplates,
	"process":   runProcess,
}

type app struct {
	cfg    config.Config
	logger zerolog.Logger
	api    *api.Service
	out    io.Writer
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("scribews", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	version := fs.Bool("version", false, "print build information and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: scribews [-config file] <listen|upload|templates|process> [args]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *version {
		printBuildInfo()
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error getting configs: %v\n", err)
		return 1
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Pretty, "scribews-"+fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		return 1
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		api:    api.New(cfg.APIConfig(), logger),
		out:    os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = cmd(ctx, a, fs.Args()[1:]); err != nil {
		logger.Error().Err(err).Str("command", fs.Arg(0)).Msg("command failed")
		return 1
	}

	return 0
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
