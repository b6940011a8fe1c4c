package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Retrying decora um Store com retry exponencial pra falhas de
// conectividade. Todas as operações do Store são idempotentes por
// construção (insert-if-absent, delete, leituras), então é seguro
// reexecutar qualquer uma delas; erros que não sejam ErrUnavailable nunca
// são retentados.
type Retrying struct {
	inner Store
	log   *zap.Logger

	maxAttempts uint64
	baseDelay   time.Duration
}

func NewRetrying(inner Store, log *zap.Logger) *Retrying {
	return &Retrying{inner: inner, log: log, maxAttempts: 3, baseDelay: time.Second}
}

// do executa op com até maxAttempts tentativas, delay base dobrando
func (r *Retrying) do(ctx context.Context, op string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	attempt := 0
	wrapped := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return backoff.Permanent(err)
		}
		r.log.Warn("store operation failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}

	return backoff.Retry(wrapped,
		backoff.WithContext(backoff.WithMaxRetries(bo, r.maxAttempts-1), ctx))
}

func (r *Retrying) InsertIfAbsent(ctx context.Context, bet *TrackedBet) (*TrackedBet, bool, error) {
	var (
		stored  *TrackedBet
		existed bool
	)
	err := r.do(ctx, "insert_if_absent", func() error {
		var err error
		stored, existed, err = r.inner.InsertIfAbsent(ctx, bet)
		return err
	})
	return stored, existed, err
}

func (r *Retrying) GetByID(ctx context.Context, id string) (*TrackedBet, error) {
	var bet *TrackedBet
	err := r.do(ctx, "get_by_id", func() error {
		var err error
		bet, err = r.inner.GetByID(ctx, id)
		return err
	})
	return bet, err
}

func (r *Retrying) DeleteByIDForOwner(ctx context.Context, id, userID string) (bool, error) {
	var deleted bool
	err := r.do(ctx, "delete_by_id", func() error {
		var err error
		deleted, err = r.inner.DeleteByIDForOwner(ctx, id, userID)
		return err
	})
	return deleted, err
}

func (r *Retrying) ListByOwner(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	var res *ListResult
	err := r.do(ctx, "list_by_owner", func() error {
		var err error
		res, err = r.inner.ListByOwner(ctx, userID, opts)
		return err
	})
	return res, err
}

func (r *Retrying) UpdateStatus(ctx context.Context, id, userID, status string) (bool, error) {
	var updated bool
	err := r.do(ctx, "update_status", func() error {
		var err error
		updated, err = r.inner.UpdateStatus(ctx, id, userID, status)
		return err
	})
	return updated, err
}
