package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cyp0633/taskrecur/internal/config"
	"github.com/cyp0633/taskrecur/internal/crypto"
	"github.com/cyp0633/taskrecur/internal/logging"
	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/series"
	"github.com/cyp0633/taskrecur/storage"
	"github.com/cyp0633/taskrecur/storage/memory"
	"github.com/cyp0633/taskrecur/storage/sqlite"
)

// App holds the dependencies shared by every command.
type App struct {
	Config  *config.Config
	Store   storage.Storage
	Manager *series.Manager
	Logger  *slog.Logger

	now     func() time.Time
	closers []func() error
}

// NewApp wires the store, cipher and series manager described by cfg. Logs
// go to logOut, or nowhere when it is nil. now may be nil for the wall
// clock.
func NewApp(cfg *config.Config, logOut io.Writer, now func() time.Time) (*App, error) {
	if now == nil {
		now = time.Now
	}
	logger := logging.Discard()
	if logOut != nil {
		logger = logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	}

	cipher, err := newCipher(cfg.Crypto, cfg.User.ID)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, now: now}
	switch cfg.Store.Driver {
	case "sqlite":
		s, err := sqlite.Open(cfg.Store.Path, sqlite.WithClock(now))
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.Store = s
		a.closers = append(a.closers, s.Close)
	default:
		a.Store = memory.New(memory.WithClock(now))
	}

	a.Manager = series.New(a.Store,
		series.WithCipher(cipher),
		series.WithLogger(logger.With("component", "series")),
		series.WithClock(now),
		series.WithConfig(cfg.ManagerConfig()),
	)

	logger.Debug("app initialized",
		"store", cfg.Store.Driver,
		"user_id", cfg.User.ID,
		"cache", cfg.Cache.Enabled)
	return a, nil
}

func newCipher(cfg config.CryptoConfig, userID string) (series.Cipher, error) {
	switch {
	case cfg.Key != "":
		c, err := crypto.NewFromHexKey(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("crypto key: %w", err)
		}
		return c, nil
	case cfg.Passphrase != "":
		c, err := crypto.NewFromPassphrase(cfg.Passphrase, userID)
		if err != nil {
			return nil, fmt.Errorf("crypto passphrase: %w", err)
		}
		return c, nil
	default:
		return series.PlainText{}, nil
	}
}

// Today is the current date on the app clock.
func (a *App) Today() recurrence.Date {
	return recurrence.DateOf(a.now())
}

// Close stops the manager's cache and closes the store.
func (a *App) Close() error {
	a.Manager.Close()
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
