package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"bloodlink/internal/metrics"
	"bloodlink/internal/store"
	"bloodlink/pkg/types"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	donorsKey   = "donors"
	requestsKey = "requests"
)

func donorKey(id string) string   { return "donor:" + id }
func requestKey(id string) string { return "request:" + id }

type TTLs struct {
	Collection time.Duration
	Record     time.Duration
}

var DefaultTTLs = TTLs{
	Collection: 30 * time.Second,
	Record:     2 * time.Minute,
}

// Store decorates a RecordStore with read-through caching of donor and
// request reads. Writes go to the wrapped store first and then drop every
// key they could have made stale.
type Store struct {
	next    store.RecordStore
	backend Backend
	ttl     TTLs
	logger  *logrus.Logger
	metrics *metrics.Metrics

	group singleflight.Group

	// generations is bumped by every invalidation. A fill may only be
	// written back if the generation it started under is still current.
	mu          sync.Mutex
	generations map[string]uint64
}

var _ store.RecordStore = (*Store)(nil)

func NewStore(next store.RecordStore, backend Backend, ttl TTLs, logger *logrus.Logger, m *metrics.Metrics) *Store {
	if ttl.Collection <= 0 {
		ttl.Collection = DefaultTTLs.Collection
	}
	if ttl.Record <= 0 {
		ttl.Record = DefaultTTLs.Record
	}

	return &Store{
		next:        next,
		backend:     backend,
		ttl:         ttl,
		logger:      logger,
		metrics:     m,
		generations: make(map[string]uint64),
	}
}

func (s *Store) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[key]
}

func (s *Store) fill(ctx context.Context, key string, gen uint64, raw []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generations[key] != gen {
		return
	}

	if err := s.backend.Set(ctx, key, raw, ttl); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("failed to fill cache")
	}
}

func (s *Store) invalidate(ctx context.Context, keys ...string) {
	s.mu.Lock()
	for _, key := range keys {
		s.generations[key]++
	}
	s.mu.Unlock()

	if err := s.backend.Delete(ctx, keys...); err != nil {
		s.logger.WithError(err).WithField("keys", keys).Error("failed to invalidate cache")
	}
}

func readThrough[T any](ctx context.Context, s *Store, kind, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache read failed, falling back to store")
		ok = false
	}
	if ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			s.metrics.RecordCacheHit(kind)
			return out, nil
		}
		s.logger.WithField("key", key).Warn("discarding undecodable cache entry")
	}

	s.metrics.RecordCacheMiss(kind)

	gen := s.generation(key)
	shared, err, _ := s.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}

		s.fill(ctx, key, gen, encoded, ttl)
		return encoded, nil
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(shared.([]byte), &out); err != nil {
		return zero, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	return out, nil
}

func (s *Store) Donors(ctx context.Context) ([]*types.Donor, error) {
	return readThrough(ctx, s, "donors", donorsKey, s.ttl.Collection, s.next.Donors)
}

func (s *Store) Donor(ctx context.Context, id string) (*types.Donor, error) {
	return readThrough(ctx, s, "donor", donorKey(id), s.ttl.Record, func(ctx context.Context) (*types.Donor, error) {
		return s.next.Donor(ctx, id)
	})
}

func (s *Store) CreateDonor(ctx context.Context, donor *types.Donor) error {
	err := s.next.CreateDonor(ctx, donor)
	s.invalidate(ctx, donorsKey, donorKey(donor.ID))
	return err
}

func (s *Store) UpdateDonor(ctx context.Context, donor *types.Donor) error {
	err := s.next.UpdateDonor(ctx, donor)
	s.invalidate(ctx, donorsKey, donorKey(donor.ID))
	return err
}

func (s *Store) DeleteDonor(ctx context.Context, id string) error {
	err := s.next.DeleteDonor(ctx, id)
	s.invalidate(ctx, donorsKey, donorKey(id))
	return err
}

func (s *Store) Requests(ctx context.Context) ([]*types.EmergencyRequest, error) {
	return readThrough(ctx, s, "requests", requestsKey, s.ttl.Collection, s.next.Requests)
}

func (s *Store) Request(ctx context.Context, id string) (*types.EmergencyRequest, error) {
	return readThrough(ctx, s, "request", requestKey(id), s.ttl.Record, func(ctx context.Context) (*types.EmergencyRequest, error) {
		return s.next.Request(ctx, id)
	})
}

func (s *Store) CreateRequest(ctx context.Context, req *types.EmergencyRequest) error {
	err := s.next.CreateRequest(ctx, req)
	s.invalidate(ctx, requestsKey, requestKey(req.ID))
	return err
}

func (s *Store) UpdateRequest(ctx context.Context, req *types.EmergencyRequest, expected types.RequestStatus) error {
	err := s.next.UpdateRequest(ctx, req, expected)
	s.invalidate(ctx, requestsKey, requestKey(req.ID))
	return err
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	err := s.next.DeleteRequest(ctx, id)
	s.invalidate(ctx, requestsKey, requestKey(id))
	return err
}

func (s *Store) CreateNotification(ctx context.Context, n *types.Notification) error {
	return s.next.CreateNotification(ctx, n)
}

func (s *Store) NotificationsByUser(ctx context.Context, userID string) ([]*types.Notification, error) {
	return s.next.NotificationsByUser(ctx, userID)
}
