package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

// Memory keeps every collection in process. It backs the tests and the
// STORE_BACKEND=memory development mode.
type Memory struct {
	mu            sync.RWMutex
	donors        map[string]types.Donor
	requests      map[string]*types.EmergencyRequest
	notifications map[string][]types.Notification
}

func NewMemory() *Memory {
	return &Memory{
		donors:        make(map[string]types.Donor),
		requests:      make(map[string]*types.EmergencyRequest),
		notifications: make(map[string][]types.Notification),
	}
}

func (m *Memory) Donors(ctx context.Context) ([]*types.Donor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Donor, 0, len(m.donors))
	for _, d := range m.donors {
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Donor(ctx context.Context, id string) (*types.Donor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.donors[id]
	if !ok {
		return nil, types.ErrDonorNotFound
	}
	return &d, nil
}

func (m *Memory) CreateDonor(ctx context.Context, donor *types.Donor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if donor.ID == "" {
		donor.ID = utils.NanoID()
	}
	donor.CreatedAt = now
	donor.UpdatedAt = now

	m.donors[donor.ID] = *donor
	return nil
}

func (m *Memory) UpdateDonor(ctx context.Context, donor *types.Donor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.donors[donor.ID]
	if !ok {
		return types.ErrDonorNotFound
	}
	if existing.Version != donor.Version {
		return types.ErrDonorConflict
	}

	donor.Version++
	donor.CreatedAt = existing.CreatedAt
	donor.UpdatedAt = time.Now().UTC()
	m.donors[donor.ID] = *donor
	return nil
}

func (m *Memory) DeleteDonor(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.donors[id]; !ok {
		return types.ErrDonorNotFound
	}
	delete(m.donors, id)
	return nil
}

func (m *Memory) Requests(ctx context.Context) ([]*types.EmergencyRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.EmergencyRequest, 0, len(m.requests))
	for _, r := range m.requests {
		out = append(out, r.Clone())
	}
	sortRequests(out)
	return out, nil
}

func (m *Memory) Request(ctx context.Context, id string) (*types.EmergencyRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	return r.Clone(), nil
}

func (m *Memory) CreateRequest(ctx context.Context, req *types.EmergencyRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.ID == "" {
		req.ID = utils.NanoID()
	}
	stampRequest(req)

	m.requests[req.ID] = req.Clone()
	return nil
}

func (m *Memory) UpdateRequest(ctx context.Context, req *types.EmergencyRequest, expected types.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.requests[req.ID]
	if !ok {
		return types.ErrRequestNotFound
	}
	if existing.Status != expected {
		return types.ErrStatusConflict
	}

	next := req.Clone()
	next.CreatedAt = existing.CreatedAt
	next.ExpiresAt = existing.ExpiresAt
	m.requests[req.ID] = next
	return nil
}

func (m *Memory) DeleteRequest(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[id]; !ok {
		return types.ErrRequestNotFound
	}
	delete(m.requests, id)
	return nil
}

func (m *Memory) CreateNotification(ctx context.Context, n *types.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.ID == "" {
		n.ID = utils.NanoID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	m.notifications[n.UserID] = append(m.notifications[n.UserID], *n)
	return nil
}

func (m *Memory) NotificationsByUser(ctx context.Context, userID string) ([]*types.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.notifications[userID]
	out := make([]*types.Notification, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		n := stored[i]
		out = append(out, &n)
	}
	return out, nil
}

func stampRequest(req *types.EmergencyRequest) {
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	if req.MatchedDonorIDs == nil {
		req.MatchedDonorIDs = []string{}
	}
}

// sortRequests orders newest first, matching the postgres backend.
func sortRequests(out []*types.EmergencyRequest) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}
