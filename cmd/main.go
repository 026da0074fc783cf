package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	"github.com/crazy-max/unpak/internal/app"
	"github.com/crazy-max/unpak/internal/logging"
	"github.com/crazy-max/unpak/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	unpak   *app.Unpak
	cli     config.Cli
	version = "dev"
	meta    = config.Meta{
		ID:     "unpak",
		Name:   "Unpak",
		Desc:   "Browse, resolve and extract assets of game archives",
		URL:    "https://github.com/crazy-max/unpak",
		Author: "CrazyMax",
	}
)

func main() {
	var err error
	runtime.GOMAXPROCS(runtime.NumCPU())

	meta.Version = version
	meta.UserAgent = fmt.Sprintf("%s/%s go/%s %s", meta.ID, meta.Version, runtime.Version()[2:], strings.Title(runtime.GOOS)) //nolint:staticcheck // ignoring "SA1019: strings.Title is deprecated", as for our use we don't need full unicode support

	kctx := kong.Parse(&cli,
		kong.Name(meta.ID),
		kong.Description(fmt.Sprintf("%s. More info: %s", meta.Desc, meta.URL)),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	// Logging
	logging.Configure(cli)

	// Init
	if unpak, err = app.New(meta, cli); err != nil {
		log.Fatal().Err(err).Msg("cannot initialize unpak")
	}

	// Handle os signals
	channel := make(chan os.Signal, 1)
	signal.Notify(channel, os.Interrupt, SIGTERM)
	go func() {
		sig := <-channel
		unpak.Close()
		log.Warn().Msgf("caught signal %v", sig)
		os.Exit(0)
	}()

	// Start
	if err = unpak.Start(kctx.Command()); err != nil {
		log.Fatal().Stack().Err(err).Send()
	}
}
