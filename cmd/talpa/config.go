package main

import (
	"github.com/jxo-me/talpa/config"
	"github.com/jxo-me/talpa/config/parsing"
	"github.com/jxo-me/talpa/core/credential"
	"github.com/jxo-me/talpa/core/logger"
	"github.com/jxo-me/talpa/sdk/cloudflare"
	xcredential "github.com/jxo-me/talpa/sdk/credential"
	"github.com/jxo-me/talpa/sdk/hook"
	xlogger "github.com/jxo-me/talpa/sdk/logger"
	"github.com/jxo-me/talpa/sdk/route"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"os"
	"path/filepath"
)

func logFromConfig(cfg *config.LogConfig) logger.ILogger {
	if cfg == nil {
		cfg = &config.LogConfig{}
	}
	opts := []xlogger.LoggerOption{
		xlogger.NameLoggerOption(appName),
		xlogger.FormatLoggerOption(logger.LogFormat(cfg.Format)),
		xlogger.LevelLoggerOption(logger.LogLevel(cfg.Level)),
	}

	var out io.Writer = os.Stderr
	switch cfg.Output {
	case "none", "null":
		return xlogger.Nop()
	case "stdout":
		out = os.Stdout
	case "stderr", "":
		out = os.Stderr
	default:
		if cfg.Rotation != nil {
			out = &lumberjack.Logger{
				Filename:   cfg.Output,
				MaxSize:    cfg.Rotation.MaxSize,
				MaxAge:     cfg.Rotation.MaxAge,
				MaxBackups: cfg.Rotation.MaxBackups,
				LocalTime:  cfg.Rotation.LocalTime,
				Compress:   cfg.Rotation.Compress,
			}
		} else {
			_ = os.MkdirAll(filepath.Dir(cfg.Output), 0755)
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				logger.Default().Warn(err)
			} else {
				out = f
			}
		}
	}
	opts = append(opts, xlogger.OutputLoggerOption(out))

	return xlogger.NewLogger(opts...)
}

func buildStore(cfg *config.Config) (credential.IStore, error) {
	return parsing.ParseStore(&cfg.Credentials)
}

func loadCredentials(cfg *config.Config) (*credential.Credentials, error) {
	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}
	return xcredential.Load(store)
}

func buildClient(cfg *config.Config, creds *credential.Credentials) *cloudflare.Client {
	return cloudflare.NewClient(creds.AccountID, creds.APIToken,
		cloudflare.BaseURLOption(cfg.API.BaseURL),
		cloudflare.TimeoutOption(cfg.API.Timeout),
		cloudflare.MaxRetriesOption(cfg.API.MaxRetries),
		cloudflare.LoggerOption(logger.Default()),
	)
}

func buildSynchronizer(cfg *config.Config, creds *credential.Credentials, observer route.Observer) *route.Synchronizer {
	client := buildClient(cfg, creds)
	opts := []route.SynchronizerOption{
		route.ObserverOption(observer),
		route.LoggerOption(logger.Default()),
		route.CompensationTimeoutOption(cfg.API.Timeout),
	}
	if cfg.Webhook.Enabled() {
		opts = append(opts, route.HookOption(
			hook.NewHook(cfg.Webhook.URL, cfg.Webhook.RequestBody, cfg.Webhook.Headers, logger.Default()),
		))
	}
	return route.NewSynchronizer(client, client, creds.TunnelID, creds.ZoneID, opts...)
}
