package uow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

type Config struct {
	// MaxAttempts bounds how often a transaction aborted by a serialization
	// failure is re-run.
	MaxAttempts int
	Backoff     time.Duration
}

// UoW represents a unit of work.
type UoW struct {
	store  repository.Store
	cfg    Config
	logger *slog.Logger
}

func New(store repository.Store, cfg Config, logger *slog.Logger) *UoW {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	if cfg.Backoff <= 0 {
		cfg.Backoff = 10 * time.Millisecond
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &UoW{store: store, cfg: cfg, logger: logger}
}

// Do runs fn inside a transaction. After a successful commit, it executes
// all after-commit hooks registered by the final attempt. Serialization
// failures re-run fn from scratch; when the attempts are used up the error
// matches domain.ErrConcurrentModification.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error,
) error {
	var lastErr error

	for attempt := 1; attempt <= u.cfg.MaxAttempts; attempt++ {
		var hooks []AfterCommit

		err := u.store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil {
			for _, h := range hooks {
				h(ctx)
			}
			return nil
		}

		if !errors.Is(err, repository.ErrSerialization) {
			return err
		}

		lastErr = err
		u.logger.Debug("transaction retry", slog.Int("attempt", attempt), slog.Any("error", err))

		if attempt == u.cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(u.cfg.Backoff * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("%w: %w", domain.ErrConcurrentModification, lastErr)
}
