// Package app wires configuration, logging, storage, notifications and the
// workflow engine for one workspace.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"shiftlog/internal/actor"
	"shiftlog/internal/config"
	"shiftlog/internal/db"
	"shiftlog/internal/domain"
	"shiftlog/internal/engine"
	"shiftlog/internal/logging"
	"shiftlog/internal/migrate"
	"shiftlog/internal/notify"
	"shiftlog/internal/repo"
)

type Options struct {
	Workspace string
	// ConfigPath defaults to <workspace>/shiftlog.yml.
	ConfigPath string
	// Console receives log output; nil means stderr.
	Console io.Writer
	// Offline skips connecting to Telegram even when it is enabled.
	Offline bool
}

// Runtime holds everything a command or the server needs.
type Runtime struct {
	Workspace  string
	Config     *config.Config
	Log        zerolog.Logger
	DB         *sql.DB
	Engine     engine.Engine
	Dispatcher *notify.Dispatcher
	Telegram   *notify.Telegram

	logCloser io.Closer
}

// Open loads config, builds the logger, opens and migrates the database and
// wires the dispatcher into the engine. A Telegram connection failure is
// logged and delivery disabled; the workflow runs without it.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	workspace := opts.Workspace
	if workspace == "" {
		workspace = "."
	}
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = config.Path(workspace)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	log, closer, err := logging.New(cfg.Logging, workspace, opts.Console)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Workspace: workspace, Config: cfg, Log: log, logCloser: closer}

	conn, err := db.Open(db.Config{Workspace: workspace, Path: cfg.Database.Path})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.DB = conn
	if err := migrate.Migrate(ctx, conn); err != nil {
		rt.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var sender notify.Sender
	if cfg.Telegram.Enabled && !opts.Offline {
		tg, err := notify.NewTelegram(cfg.Telegram, log)
		if err != nil {
			log.Warn().Err(err).Msg("telegram disabled")
		} else {
			rt.Telegram = tg
			sender = tg
			log.Debug().Str("bot", tg.BotName()).Msg("telegram connected")
		}
	}
	rt.Dispatcher = notify.NewDispatcher(repo.Repo{DB: conn}, sender, log, notify.Options{
		DeliveryTimeout: deliveryTimeout(cfg.Telegram),
		Concurrency:     cfg.Notifications.Concurrency,
	})
	rt.Engine = engine.New(conn, rt.Dispatcher, log)
	return rt, nil
}

// deliveryTimeout covers every attempt at the effective request timeout
// plus the backoff sleeps between them.
func deliveryTimeout(cfg config.TelegramConfig) time.Duration {
	attempts := cfg.Retry.Attempts
	if attempts < 1 {
		attempts = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = notify.DefaultTelegramTimeout
	}
	return time.Duration(attempts)*timeout + notify.Backoff(cfg.Retry)
}

// Actor resolves ref (employee id or username) to an active employee.
func (rt *Runtime) Actor(ctx context.Context, ref string) (domain.Employee, error) {
	if ref == "" {
		return domain.Employee{}, errors.New("no acting employee; pass --as or set SHIFTLOG_AS")
	}
	a, err := actor.Resolve(ctx, rt.Engine.Repo, ref)
	if err != nil {
		return domain.Employee{}, err
	}
	return a.Require()
}

// Close waits for pending deliveries, then releases the database and log
// file.
func (rt *Runtime) Close() error {
	if rt.Dispatcher != nil {
		rt.Dispatcher.Wait()
	}
	var errs []error
	if rt.DB != nil {
		errs = append(errs, rt.DB.Close())
	}
	if rt.logCloser != nil {
		errs = append(errs, rt.logCloser.Close())
	}
	return errors.Join(errs...)
}

// Init writes the default config file and creates the database. An existing
// config file is left untouched.
func Init(ctx context.Context, workspace string) (string, error) {
	if workspace == "" {
		workspace = "."
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return "", err
	}
	path := config.Path(workspace)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
			return "", fmt.Errorf("write config: %w", err)
		}
	} else if err != nil {
		return "", err
	}
	rt, err := Open(ctx, Options{Workspace: workspace, Offline: true, Console: io.Discard})
	if err != nil {
		return "", err
	}
	defer rt.Close()
	return filepath.Clean(path), nil
}
