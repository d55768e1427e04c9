// Package engine wires the pure matching, lifecycle and progression rules to
// the record store. All writes to one request, or one donor, are serialised
// in process; across processes the store's compare-and-swap on request
// status decides the winner.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloodlink/internal/metrics"
	"bloodlink/internal/notify"
	"bloodlink/internal/store"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
)

const DefaultRadiusKm = 50.0

type Engine struct {
	store    store.RecordStore
	notifier notify.Notifier
	logger   *logrus.Logger
	metrics  *metrics.Metrics

	now             func() time.Time
	defaultRadiusKm float64

	requestLocks *keyedMutex
	donorLocks   *keyedMutex
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithDefaultRadius(km float64) Option {
	return func(e *Engine) {
		if km > 0 {
			e.defaultRadiusKm = km
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(s store.RecordStore, notifier notify.Notifier, logger *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		notifier:        notifier,
		logger:          logger,
		now:             time.Now,
		defaultRadiusKm: DefaultRadiusKm,
		requestLocks:    newKeyedMutex(),
		donorLocks:      newKeyedMutex(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) radius(km float64) float64 {
	if km <= 0 {
		return e.defaultRadiusKm
	}
	return km
}

// transition loads the request, applies move and writes it back guarded by
// the status it was loaded with. A lost race is retried once against a fresh
// read so the caller sees the lifecycle's verdict on the winner's state.
func (e *Engine) transition(ctx context.Context, id string, move func(req *types.EmergencyRequest) error) (*types.EmergencyRequest, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		req, err := e.store.Request(ctx, id)
		if err != nil {
			return nil, err
		}

		from := req.Status
		if err := move(req); err != nil {
			return nil, err
		}

		err = e.store.UpdateRequest(ctx, req, from)
		if errors.Is(err, types.ErrStatusConflict) {
			lastErr = err
			e.logger.WithField("request_id", id).WithField("from", from).Warn("request changed concurrently, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update request %s: %w", id, err)
		}

		e.metrics.RecordTransition(string(req.Status))
		e.logger.WithFields(logrus.Fields{
			"request_id": id,
			"from":       from,
			"to":         req.Status,
		}).Info("request status changed")

		return req, nil
	}

	return nil, lastErr
}

func (e *Engine) notify(ctx context.Context, n types.Notification) {
	if e.notifier == nil {
		return
	}

	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":   n.UserID,
			"kind":      n.Kind,
			"entity_id": n.RelatedEntityID,
		}).Error("failed to emit notification")
	}
}

func (e *Engine) Notifications(ctx context.Context, userID string) ([]*types.Notification, error) {
	return e.store.NotificationsByUser(ctx, userID)
}
