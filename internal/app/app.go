// Package app serves the calculations over HTTP.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/config"
	"github.com/fpawel/gasflow/internal/data"
	"github.com/fpawel/gasflow/internal/evaluator/leekesler"
	"github.com/fpawel/gasflow/internal/evaluator/thrifteval"
	"github.com/fpawel/gasflow/internal/zfactor"
	"github.com/jmoiron/sqlx"
	"github.com/powerman/structlog"
)

var log = structlog.New(structlog.KeyUnit, "app")

const shutdownTimeout = 5 * time.Second

type App struct {
	cfg       config.Config
	db        *sqlx.DB
	evaluator zfactor.Evaluator
	engine    *zfactor.Engine
}

// New opens the database and builds the Z-factor engine of cfg.
func New(cfg config.Config) (*App, error) {
	ev, engine, err := cfg.Evaluator.Build()
	if err != nil {
		return nil, err
	}
	log.Debug("open database", "file", cfg.DB.Filename)
	db, err := data.Open(cfg.DB.Filename)
	if err != nil {
		closeEvaluator(ev)
		return nil, err
	}
	return &App{
		cfg:       cfg,
		db:        db,
		evaluator: ev,
		engine:    engine,
	}, nil
}

func (x *App) Close() error {
	closeEvaluator(x.evaluator)
	return merry.Wrap(x.db.Close())
}

func closeEvaluator(ev zfactor.Evaluator) {
	if c, ok := ev.(interface{ Close() error }); ok {
		log.ErrIfFail(c.Close)
	}
}

// Run serves HTTP, and thrift when configured, until ctx is done, then shuts
// the servers down gracefully.
func Run(ctx context.Context, cfg config.Config) error {
	x, err := New(cfg)
	if err != nil {
		return err
	}
	defer log.ErrIfFail(x.Close)

	errs := make(chan error, 2)

	if cfg.ThriftServer.Addr != "" {
		ev := x.evaluator
		if ev == nil {
			ev = leekesler.New()
		}
		ts, err := thrifteval.Listen(cfg.ThriftServer.Addr, ev)
		if err != nil {
			return err
		}
		go func() {
			log.Info("serve thrift", "addr", ts.Addr())
			if err := ts.Serve(); err != nil {
				errs <- merry.Prepend(err, "thrift server")
			}
		}()
		defer log.ErrIfFail(ts.Stop)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           x.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("serve http", "addr", cfg.HTTP.Addr, "evaluator", cfg.Evaluator.Kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- merry.Prepend(err, "http server")
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errs:
		return err
	}

	log.Info("shutting down")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return merry.Prepend(err, "http shutdown")
	}
	log.Debug("http server stopped")
	return nil
}
