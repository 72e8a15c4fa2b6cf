package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/internal/mapper"
	"github.com/mesh-intelligence/propsync/internal/notify"
	"github.com/mesh-intelligence/propsync/internal/postgres"
	"github.com/mesh-intelligence/propsync/internal/rediscache"
	"github.com/mesh-intelligence/propsync/internal/sqlite"
	"github.com/mesh-intelligence/propsync/internal/store"
	"github.com/mesh-intelligence/propsync/internal/upload"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

var (
	errNoObjectStorage = errors.New("the configured backend has no object storage; use the sqlite backend")
	errSQLiteOnly      = errors.New("this command requires the sqlite backend")
)

// app holds the wired components of one CLI invocation.
type app struct {
	cfg      types.Config
	log      logging.Logger
	backend  types.Backend
	sqlite   *sqlite.Backend
	postgres *postgres.Backend
	store    *store.Store
	uploader *upload.Uploader
	closers  []func() error
}

// appOptions select the optional parts of an app.
type appOptions struct {
	// load fills the store from the backend.
	load bool
	// events follows the store with the AMQP publisher when configured.
	events bool
}

// openApp connects the backend selected by c and wires the mapper, store
// and uploader on top of it. The caller must Close the app.
func openApp(ctx context.Context, c types.Config, opts appOptions) (*app, error) {
	log, closeLog, err := logging.New(c.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: c, log: log, closers: []func() error{closeLog}}
	if err := a.wire(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, opts appOptions) error {
	c, log := a.cfg, a.log
	switch c.Backend {
	case types.BackendPostgres:
		pg, err := postgres.Open(ctx, c.PostgresDSN, log)
		if err != nil {
			return err
		}
		a.postgres, a.backend = pg, pg
		a.closers = append(a.closers, func() error { pg.Close(); return nil })
	default:
		sb := sqlite.NewBackend(sqlite.WithLogger(log))
		if err := sb.Attach(c); err != nil {
			return fmt.Errorf("attach backend: %w", err)
		}
		a.sqlite, a.backend = sb, sb
		a.closers = append(a.closers, sb.Detach)
	}

	var l2 mapper.Cache
	if c.Cache.RedisAddr != "" {
		rc, err := rediscache.Open(ctx, c.Cache)
		if err != nil {
			return err
		}
		l2 = rc
		a.closers = append(a.closers, rc.Close)
	}

	m := mapper.New(mapper.NewLocations(a.backend, l2, log), log)
	a.store = store.New(a.backend, m,
		store.WithTable(c.Table),
		store.WithRetry(c.Retry.Attempts, c.Retry.BaseDelay),
		store.WithLogger(log),
	)
	if a.sqlite != nil {
		a.uploader = upload.New(a.sqlite, upload.ConfigFrom(c), log)
	}

	if opts.events && c.Events.AMQPURL != "" {
		pub, err := notify.Dial(c.Events.AMQPURL, c.Events.Exchange, log)
		if err != nil {
			return err
		}
		stop := pub.Follow(ctx, a.store)
		a.closers = append(a.closers, pub.Close, func() error { stop(); return nil })
	}

	if opts.load {
		if err := a.store.Load(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every component in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
