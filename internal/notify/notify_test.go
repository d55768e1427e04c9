package notify

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

func TestStoreNotifierPersists(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	n := NewStoreNotifier(s)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	req := &types.EmergencyRequest{ID: "r1", RequesterID: "u1", BloodType: types.BloodTypeONeg, HospitalName: "General", Status: types.RequestStatusDonorsFound}
	require.NoError(t, n.Notify(ctx, StatusChanged(req)))

	got, err := s.NotificationsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, types.NotificationKindStatusChange, got[0].Kind)
	assert.Equal(t, "r1", got[0].RelatedEntityID)
	assert.Contains(t, got[0].Message, "matched with donors")
	assert.True(t, fixed.Equal(got[0].CreatedAt))
}

func TestStoreNotifierSkipsMissingRecipient(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	n := NewStoreNotifier(s)

	donor := &types.Donor{ID: "d1"}
	require.NoError(t, n.Notify(ctx, DonorMatched(&types.EmergencyRequest{ID: "r1"}, donor)))

	got, err := s.NotificationsByUser(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCancelledIncludesReason(t *testing.T) {
	req := &types.EmergencyRequest{ID: "r1", BloodType: types.BloodTypeABPos, HospitalName: "St. Mary", CancelReason: utils.StringPtr("patient transferred")}
	n := Cancelled(req, "d-user")
	assert.Equal(t, "d-user", n.UserID)
	assert.Contains(t, n.Message, "patient transferred")
}
