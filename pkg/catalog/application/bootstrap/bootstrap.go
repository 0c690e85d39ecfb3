// Package bootstrap waits for the store, then makes sure the products table
// exists and carries the seed rows.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"catalogservice/pkg/catalog/domain/model"
)

const (
	DefaultMaxAttempts = 10
	DefaultBackoff     = 2 * time.Second
)

var ErrRetriesExhausted = errors.New("store did not become available")

// DefaultSeed is inserted only into an empty table.
var DefaultSeed = []model.NewProduct{
	{Name: "Keyboard", Price: "149.90"},
	{Name: "Mouse", Price: "79.90"},
	{Name: "Monitor", Price: "899.00"},
}

type Config struct {
	MaxAttempts int
	Backoff     time.Duration
}

// ExhaustedError is returned when every attempt found the store unavailable.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrRetriesExhausted, e.Attempts, e.Last)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrRetriesExhausted }

func (e *ExhaustedError) Unwrap() error { return e.Last }

type Sequencer struct {
	connector model.Connector
	config    Config
	seed      []model.NewProduct
}

func NewSequencer(connector model.Connector, config Config) *Sequencer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.Backoff < 0 {
		config.Backoff = 0
	}
	return &Sequencer{connector: connector, config: config, seed: DefaultSeed}
}

// EnsureReady returns nil once the store is reachable, migrated and seeded.
// Only unavailable failures are retried; anything else is returned at once.
// It is safe to run against an already initialised store.
func (s *Sequencer) EnsureReady(ctx context.Context) error {
	attempts := 0
	operation := func() error {
		attempts++
		err := s.attempt(ctx)
		if err == nil || model.IsUnavailable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.config.Backoff), uint64(s.config.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		log.WithError(err).WithFields(log.Fields{
			"attempt":     attempts,
			"maxAttempts": s.config.MaxAttempts,
			"retryIn":     next.String(),
		}).Warn("Store not available yet")
	}

	err := backoff.RetryNotify(operation, policy, notify)
	switch {
	case err == nil:
		log.WithField("attempts", attempts).Info("Store ready")
		return nil
	case ctx.Err() != nil:
		return errors.Wrap(ctx.Err(), "bootstrap interrupted")
	case model.IsUnavailable(err):
		return &ExhaustedError{Attempts: attempts, Last: err}
	default:
		return errors.Wrap(err, "bootstrap failed")
	}
}

func (s *Sequencer) attempt(ctx context.Context) error {
	conn, err := s.connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close bootstrap connection")
		}
	}()

	if err := conn.CreateSchema(ctx); err != nil {
		return err
	}
	if err := conn.Commit(); err != nil {
		return err
	}

	count, err := conn.CountProducts(ctx)
	if err != nil {
		return err
	}
	if count != 0 {
		return nil
	}

	if err := conn.InsertProducts(ctx, s.seed); err != nil {
		return err
	}
	if err := conn.Commit(); err != nil {
		return err
	}
	log.WithField("rows", len(s.seed)).Info("Seeded products table")
	return nil
}
