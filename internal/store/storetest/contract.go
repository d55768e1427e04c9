// Package storetest is a behavioural suite every store.RecordStore must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"bloodlink/internal/store"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises newStore. Each sub-test gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) store.RecordStore) {
	t.Run("donor crud", func(t *testing.T) { testDonorCRUD(t, newStore(t)) })
	t.Run("request crud", func(t *testing.T) { testRequestCRUD(t, newStore(t)) })
	t.Run("request compare and swap", func(t *testing.T) { testRequestCAS(t, newStore(t)) })
	t.Run("donor optimistic concurrency", func(t *testing.T) { testDonorVersion(t, newStore(t)) })
	t.Run("returned records are copies", func(t *testing.T) { testCopies(t, newStore(t)) })
	t.Run("notifications", func(t *testing.T) { testNotifications(t, newStore(t)) })
}

func Donor(id string, bt types.BloodType) *types.Donor {
	d := &types.Donor{
		ID:           id,
		Name:         "Donor " + id,
		BloodType:    bt,
		Availability: types.AvailabilityAvailable,
		Verification: types.VerificationVerified,
		Badge:        types.BadgeBronze,
	}
	d.SetLocation(types.GeoPoint{Latitude: 6.5244, Longitude: 3.3792})
	return d
}

func Request(id string, status types.RequestStatus) *types.EmergencyRequest {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &types.EmergencyRequest{
		ID:              id,
		RequesterID:     "requester-1",
		PatientName:     "Patient",
		HospitalName:    "General",
		BloodType:       types.BloodTypeONeg,
		UnitsNeeded:     2,
		Urgency:         types.UrgencyUrgent,
		Latitude:        6.5,
		Longitude:       3.3,
		Status:          status,
		MatchedDonorIDs: []string{},
		CreatedAt:       created,
		UpdatedAt:       created,
		ExpiresAt:       created.Add(12 * time.Hour),
	}
}

func testDonorCRUD(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	_, err := s.Donor(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrRecordNotFound)

	d := Donor("", types.BloodTypeAPos)
	require.NoError(t, s.CreateDonor(ctx, d))
	require.NotEmpty(t, d.ID)

	got, err := s.Donor(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BloodTypeAPos, got.BloodType)
	loc, ok := got.Location()
	require.True(t, ok)
	assert.InDelta(t, 6.5244, loc.Latitude, 1e-9)

	got.Availability = types.AvailabilityBusy
	require.NoError(t, s.UpdateDonor(ctx, got))

	again, err := s.Donor(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AvailabilityBusy, again.Availability)

	require.NoError(t, s.CreateDonor(ctx, Donor("aaa", types.BloodTypeONeg)))
	all, err := s.Donors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, s.UpdateDonor(ctx, Donor("ghost", types.BloodTypeONeg)), types.ErrRecordNotFound)

	require.NoError(t, s.DeleteDonor(ctx, d.ID))
	_, err = s.Donor(ctx, d.ID)
	assert.ErrorIs(t, err, types.ErrDonorNotFound)
	assert.ErrorIs(t, s.DeleteDonor(ctx, d.ID), types.ErrRecordNotFound)
}

func testDonorVersion(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	require.NoError(t, s.CreateDonor(ctx, Donor("d1", types.BloodTypeONeg)))

	first, err := s.Donor(ctx, "d1")
	require.NoError(t, err)
	second, err := s.Donor(ctx, "d1")
	require.NoError(t, err)

	first.TotalDonations = 1
	require.NoError(t, s.UpdateDonor(ctx, first))
	assert.Equal(t, second.Version+1, first.Version)

	second.TotalDonations = 1
	assert.ErrorIs(t, s.UpdateDonor(ctx, second), types.ErrDonorConflict)

	got, err := s.Donor(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, first.Version, got.Version)

	got.TotalDonations = 2
	require.NoError(t, s.UpdateDonor(ctx, got))

	again, err := s.Donor(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.TotalDonations)
}

func testRequestCRUD(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	_, err := s.Request(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrRequestNotFound)

	older := Request("older", types.RequestStatusActive)
	newer := Request("newer", types.RequestStatusActive)
	newer.CreatedAt = older.CreatedAt.Add(time.Minute)

	require.NoError(t, s.CreateRequest(ctx, older))
	require.NoError(t, s.CreateRequest(ctx, newer))

	all, err := s.Requests(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].ID)
	assert.Equal(t, "older", all[1].ID)

	got, err := s.Request(ctx, "older")
	require.NoError(t, err)
	assert.True(t, older.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, types.UrgencyUrgent, got.Urgency)

	require.NoError(t, s.DeleteRequest(ctx, "older"))
	_, err = s.Request(ctx, "older")
	assert.ErrorIs(t, err, types.ErrRecordNotFound)
}

func testRequestCAS(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	req := Request("r1", types.RequestStatusActive)
	require.NoError(t, s.CreateRequest(ctx, req))
	originalExpiry := req.ExpiresAt

	moved := req.Clone()
	moved.Status = types.RequestStatusMatching
	moved.ExpiresAt = originalExpiry.Add(48 * time.Hour)
	require.NoError(t, s.UpdateRequest(ctx, moved, types.RequestStatusActive))

	got, err := s.Request(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusMatching, got.Status)
	assert.True(t, originalExpiry.Equal(got.ExpiresAt), "expiry must be immutable")

	stale := req.Clone()
	stale.Status = types.RequestStatusCancelled
	assert.ErrorIs(t, s.UpdateRequest(ctx, stale, types.RequestStatusActive), types.ErrStatusConflict)

	got, err = s.Request(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusMatching, got.Status)

	ghost := Request("ghost", types.RequestStatusMatching)
	assert.ErrorIs(t, s.UpdateRequest(ctx, ghost, types.RequestStatusActive), types.ErrRecordNotFound)
}

func testCopies(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	require.NoError(t, s.CreateDonor(ctx, Donor("d1", types.BloodTypeONeg)))
	req := Request("r1", types.RequestStatusDonorsFound)
	req.MatchedDonorIDs = []string{"d1"}
	require.NoError(t, s.CreateRequest(ctx, req))

	d, err := s.Donor(ctx, "d1")
	require.NoError(t, err)
	d.TotalDonations = 99

	r, err := s.Request(ctx, "r1")
	require.NoError(t, err)
	r.MatchedDonorIDs[0] = "tampered"
	r.Status = types.RequestStatusCancelled

	d, err = s.Donor(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 0, d.TotalDonations)

	r, err = s.Request(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, r.MatchedDonorIDs)
	assert.Equal(t, types.RequestStatusDonorsFound, r.Status)
}

func testNotifications(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	first := &types.Notification{UserID: "u1", Kind: types.NotificationKindStatusChange, Title: "first", RelatedEntityID: "r1", CreatedAt: time.Now().Add(-time.Minute)}
	second := &types.Notification{UserID: "u1", Kind: types.NotificationKindFulfilled, Title: "second", RelatedEntityID: "r1", CreatedAt: time.Now()}
	other := &types.Notification{UserID: "u2", Title: "other"}

	for _, n := range []*types.Notification{first, second, other} {
		require.NoError(t, s.CreateNotification(ctx, n))
		assert.NotEmpty(t, n.ID)
	}

	got, err := s.NotificationsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Title)
	assert.Equal(t, "first", got[1].Title)

	none, err := s.NotificationsByUser(ctx, utils.NanoID())
	require.NoError(t, err)
	assert.Empty(t, none)
}
