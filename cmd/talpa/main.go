package main

import (
	"context"
	"fmt"
	"github.com/jxo-me/talpa/cmd/talpa/cliutil"
	"github.com/jxo-me/talpa/config"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/jxo-me/talpa/core/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"os"
	"os/signal"
	"syscall"
)

const appName = "talpa"

var (
	Version   = "DEV"
	BuildTime = "unknown"
	BuildType = ""

	// cfg is loaded by before() for every invocation.
	cfg *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		// only usage errors get here; the rest exit through cli.ExitCoder
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(consts.ExitInvalidArgument)
	}
}

func newApp() *cli.App {
	bInfo := cliutil.GetBuildInfo(BuildType, Version)

	app := &cli.App{}
	app.Name = appName
	app.Usage = "route public hostnames through a Cloudflare Tunnel"
	app.UsageText = "talpa [global options] command [command options] [arguments...]"
	app.Version = fmt.Sprintf("%s (built %s%s)", Version, BuildTime, bInfo.GetBuildTypeMsg())
	app.Description = `talpa keeps the ingress rules of a remotely-managed Cloudflare Tunnel and
	the DNS records pointing at it in step. "dig" opens a route, "plug" closes it.

	Run "talpa setup" once to store the account, zone, tunnel and API token.`
	app.Flags = flags()
	app.Before = cli.BeforeFunc(cliutil.WithErrorHandler(before))
	app.Commands = commands(bInfo)
	app.EnableBashCompletion = true
	return app
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"C"},
			Usage:   fmt.Sprintf("configuration file (default $%s or ~/.talpa.yaml)", config.ConfigFilePathENV),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "trace, debug, info, warn, error or fatal",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "disable colored output",
		},
	}
}

func before(c *cli.Context) error {
	boot := zerolog.New(zerolog.ConsoleWriter{Out: c.App.ErrWriter}).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	if lvl, err := zerolog.ParseLevel(c.String("log-level")); err == nil && lvl != zerolog.NoLevel {
		boot = boot.Level(lvl)
	}

	path := c.String("config")
	loaded, err := config.ReadConfigFile(path, &boot)
	if err != nil {
		if !errors.Is(err, config.ErrNoConfigFile) {
			return errors.Wrap(errdefs.ErrInvalidArgument, err.Error())
		}
		if path != "" {
			return errors.Wrapf(errdefs.ErrInvalidArgument, "config file %s does not exist", path)
		}
	}
	if loaded.Log == nil {
		loaded.Log = &config.LogConfig{}
	}
	if lvl := c.String("log-level"); lvl != "" {
		loaded.Log.Level = lvl
	}
	if c.Bool("no-color") {
		colorEnabled = false
	}
	cfg = loaded
	logger.SetDefault(logFromConfig(cfg.Log))
	return nil
}
