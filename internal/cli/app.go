// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/agrichat/internal/backend"
	"github.com/jeranaias/agrichat/internal/chat"
	"github.com/jeranaias/agrichat/internal/config"
	"github.com/jeranaias/agrichat/internal/logging"
	"github.com/jeranaias/agrichat/internal/storage"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// env is the state shared by every command of one invocation.
type env struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	store      *storage.Store
}

// NewApp builds the agrichat command tree.
func NewApp() *cli.App {
	e := &env{}

	return &cli.App{
		Name:    "agrichat",
		Usage:   "Farm support chat in the terminal",
		Version: fmt.Sprintf("%s (%s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load configuration from `PATH`",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "backend API root, e.g. http://127.0.0.1:4000/api",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "write logs to `PATH`",
			},
			// -v belongs to the built-in --version flag.
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log at debug level",
			},
		},
		Before: e.before,
		After:  e.after,
		Action: func(c *cli.Context) error {
			return runTUI(c, e)
		},
		Commands: []*cli.Command{
			tuiCommand(e),
			chatCommand(e),
			askCommand(e),
			historyCommand(e),
			showCommand(e),
			deleteCommand(e),
			newCommand(e),
			serveCommand(e),
			configCommand(e),
		},
	}
}

// before loads configuration and applies global flags.
func (e *env) before(c *cli.Context) error {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFromPath(path)
		e.configPath = path
	} else {
		cfg, err = config.Load()
		if p, pathErr := config.ConfigPathTOML(); pathErr == nil {
			e.configPath = p
		}
	}
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	if v := c.String("base-url"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := c.String("log-file"); v != "" {
		cfg.Log.Path = v
		cfg.Log.Enabled = true
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit("invalid configuration: "+err.Error(), 2)
	}

	e.cfg = cfg
	config.SetGlobal(cfg)
	e.logger = logging.Must(cfg.Log)
	return nil
}

func (e *env) after(c *cli.Context) error {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Warn("close store", zap.Error(err))
		}
		e.store = nil
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	return nil
}

// openStore opens the local database once per invocation.
func (e *env) openStore() (*storage.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	store, err := storage.Open(e.cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}
	e.store = store
	return store, nil
}

// client creates a backend client from the configuration.
func (e *env) client() *backend.Client {
	cc := e.cfg.ClientConfig()
	cc.Logger = e.logger
	cc.UserAgent = "agrichat/" + Version
	return backend.NewClientWithConfig(cc)
}

// openSession opens a chat session reporting to listener.
func (e *env) openSession(ctx context.Context, listener chat.Listener) (*chat.Session, error) {
	store, err := e.openStore()
	if err != nil {
		return nil, err
	}
	revealOpts := e.cfg.RevealOptions()
	revealOpts.Logger = e.logger
	return chat.Open(ctx, e.client(), store, chat.Options{
		Reveal:        revealOpts,
		StreamTimeout: e.cfg.Backend.StreamTimeout.Duration,
		HistoryLimit:  e.cfg.Backend.HistoryLimit,
		Listener:      listener,
		Logger:        e.logger,
	})
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
