package lifecycle

import (
	"testing"
	"time"

	"bloodlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

func newRequest(t *testing.T, urgency types.Urgency) *types.EmergencyRequest {
	t.Helper()
	req := &types.EmergencyRequest{
		ID:          "r1",
		BloodType:   types.BloodTypeONeg,
		UnitsNeeded: 2,
		Urgency:     urgency,
		Latitude:    6.5,
		Longitude:   3.4,
	}
	require.NoError(t, Create(req, t0))
	return req
}

func TestDeadlineFor(t *testing.T) {
	assert.Equal(t, 3*time.Hour, DeadlineFor(types.UrgencyCritical))
	assert.Equal(t, 12*time.Hour, DeadlineFor(types.UrgencyUrgent))
	assert.Equal(t, 24*time.Hour, DeadlineFor(types.UrgencyNormal))
	assert.Equal(t, 24*time.Hour, DeadlineFor(types.UrgencyLifeThreatening))
	assert.Equal(t, 24*time.Hour, DeadlineFor("whatever"))
}

func TestCreate(t *testing.T) {
	req := newRequest(t, types.UrgencyCritical)
	assert.Equal(t, types.RequestStatusActive, req.Status)
	assert.Equal(t, t0, req.CreatedAt)
	assert.Equal(t, t0.Add(3*time.Hour), req.ExpiresAt)
	assert.Empty(t, req.MatchedDonorIDs)
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name string
		req  types.EmergencyRequest
		err  error
	}{
		{"bad blood type", types.EmergencyRequest{BloodType: "C+", UnitsNeeded: 1, Urgency: types.UrgencyNormal}, types.ErrInvalidRequest},
		{"zero units", types.EmergencyRequest{BloodType: types.BloodTypeAPos, Urgency: types.UrgencyNormal}, types.ErrInvalidRequest},
		{"bad urgency", types.EmergencyRequest{BloodType: types.BloodTypeAPos, UnitsNeeded: 1, Urgency: "soon"}, types.ErrInvalidRequest},
		{"bad point", types.EmergencyRequest{BloodType: types.BloodTypeAPos, UnitsNeeded: 1, Urgency: types.UrgencyNormal, Latitude: 91}, types.ErrInvalidCoordinate},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := c.req
			err := Create(&req, t0)
			assert.ErrorIs(t, err, c.err)
			assert.Empty(t, req.Status)
			assert.True(t, req.ExpiresAt.IsZero())
		})
	}
}

func TestHappyPath(t *testing.T) {
	req := newRequest(t, types.UrgencyUrgent)
	expiresAt := req.ExpiresAt

	require.NoError(t, BeginMatching(req, t0.Add(time.Minute)))
	assert.Equal(t, types.RequestStatusMatching, req.Status)

	require.NoError(t, RecordCandidatesFound(req, []string{"d1", "d2"}, t0.Add(2*time.Minute)))
	assert.Equal(t, types.RequestStatusDonorsFound, req.Status)
	assert.Equal(t, []string{"d1", "d2"}, req.MatchedDonorIDs)

	require.NoError(t, Fulfill(req, "d2", 450, t0.Add(time.Hour)))
	assert.Equal(t, types.RequestStatusFulfilled, req.Status)
	require.NotNil(t, req.FulfilledBy)
	assert.Equal(t, "d2", *req.FulfilledBy)
	require.NotNil(t, req.FulfilledAt)
	assert.Equal(t, t0.Add(time.Hour), *req.FulfilledAt)
	assert.Equal(t, expiresAt, req.ExpiresAt)
}

func TestRecordCandidatesFoundRequiresCandidates(t *testing.T) {
	req := newRequest(t, types.UrgencyNormal)
	require.NoError(t, BeginMatching(req, t0))

	err := RecordCandidatesFound(req, nil, t0)
	assert.ErrorIs(t, err, types.ErrNoCandidates)
	assert.Equal(t, types.RequestStatusMatching, req.Status)
}

func TestCancelFromEveryOpenState(t *testing.T) {
	for _, status := range []types.RequestStatus{types.RequestStatusActive, types.RequestStatusMatching, types.RequestStatusDonorsFound} {
		req := newRequest(t, types.UrgencyNormal)
		req.Status = status

		require.NoError(t, Cancel(req, "  patient transferred ", t0))
		assert.Equal(t, types.RequestStatusCancelled, req.Status)
		require.NotNil(t, req.CancelReason)
		assert.Equal(t, "patient transferred", *req.CancelReason)
	}
}

// attempts drives every transition function toward its target status.
var attempts = map[types.RequestStatus]func(*types.EmergencyRequest) error{
	types.RequestStatusMatching: func(r *types.EmergencyRequest) error { return BeginMatching(r, t0) },
	types.RequestStatusDonorsFound: func(r *types.EmergencyRequest) error {
		return RecordCandidatesFound(r, []string{"d1"}, t0)
	},
	types.RequestStatusFulfilled: func(r *types.EmergencyRequest) error { return Fulfill(r, "d1", 450, t0) },
	types.RequestStatusCancelled: func(r *types.EmergencyRequest) error { return Cancel(r, "x", t0) },
}

func TestLifecycleTotality(t *testing.T) {
	all := []types.RequestStatus{
		types.RequestStatusActive,
		types.RequestStatusMatching,
		types.RequestStatusDonorsFound,
		types.RequestStatusFulfilled,
		types.RequestStatusCancelled,
		types.RequestStatusExpired,
	}

	for _, from := range all {
		for _, to := range all {
			allowed := CanTransition(from, to)

			if to == types.RequestStatusActive {
				assert.Falsef(t, allowed, "%s -> active must never be allowed", from)
				continue
			}

			attempt, ok := attempts[to]
			if !ok {
				continue
			}

			req := newRequest(t, types.UrgencyNormal)
			req.Status = from
			before := *req

			err := attempt(req)
			if allowed {
				assert.NoErrorf(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, req.Status)
				continue
			}

			require.Errorf(t, err, "%s -> %s", from, to)
			assert.ErrorIs(t, err, types.ErrInvalidTransition)

			var ite *types.InvalidTransitionError
			require.ErrorAs(t, err, &ite)
			assert.Equal(t, from, ite.From)
			assert.Equal(t, to, ite.Attempted)
			assert.Equal(t, before, *req, "state must not change on %s -> %s", from, to)
		}
	}

	assert.True(t, CanTransition(types.RequestStatusActive, types.RequestStatusMatching))
	assert.False(t, CanTransition(types.RequestStatusActive, types.RequestStatusDonorsFound))
	assert.False(t, CanTransition(types.RequestStatusActive, types.RequestStatusFulfilled))
	assert.False(t, CanTransition(types.RequestStatusMatching, types.RequestStatusFulfilled))
	for _, terminal := range []types.RequestStatus{types.RequestStatusFulfilled, types.RequestStatusCancelled, types.RequestStatusExpired} {
		for _, to := range all {
			assert.False(t, CanTransition(terminal, to))
		}
	}
}

func TestInvalidTransitionUserMessage(t *testing.T) {
	req := newRequest(t, types.UrgencyNormal)
	req.Status = types.RequestStatusFulfilled

	err := Cancel(req, "", t0)
	var ite *types.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, "this request is already fulfilled", ite.UserMessage())
}

func TestSweepExpirations(t *testing.T) {
	critical := newRequest(t, types.UrgencyCritical)
	critical.ID = "critical"
	normal := newRequest(t, types.UrgencyNormal)
	normal.ID = "normal"
	matching := newRequest(t, types.UrgencyCritical)
	matching.ID = "matching"
	require.NoError(t, BeginMatching(matching, t0))
	fulfilled := newRequest(t, types.UrgencyCritical)
	fulfilled.ID = "fulfilled"
	fulfilled.Status = types.RequestStatusFulfilled

	requests := []*types.EmergencyRequest{critical, normal, matching, fulfilled, nil}

	// exactly at the deadline is not yet expired
	assert.Empty(t, SweepExpirations(requests, t0.Add(3*time.Hour)))

	now := t0.Add(4 * time.Hour)
	expired := SweepExpirations(requests, now)
	require.Len(t, expired, 2)
	assert.Equal(t, "critical", expired[0].ID)
	assert.Equal(t, "matching", expired[1].ID)
	assert.Equal(t, types.RequestStatusExpired, critical.Status)
	assert.Equal(t, types.RequestStatusActive, normal.Status)
	assert.Equal(t, types.RequestStatusFulfilled, fulfilled.Status)

	snapshot := make([]types.EmergencyRequest, 0, 4)
	for _, r := range requests[:4] {
		snapshot = append(snapshot, *r)
	}

	assert.Empty(t, SweepExpirations(requests, now))
	for i, r := range requests[:4] {
		assert.Equal(t, snapshot[i], *r)
	}
}
