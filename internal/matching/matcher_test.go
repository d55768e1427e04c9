package matching

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"bloodlink/internal/geo"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hospital = types.GeoPoint{Latitude: 6.5244, Longitude: 3.3792}
	now      = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
)

// northOf returns a point km kilometres due north of p.
func northOf(p types.GeoPoint, km float64) types.GeoPoint {
	return types.GeoPoint{Latitude: p.Latitude + km/(geo.EarthRadiusKm*math.Pi/180), Longitude: p.Longitude}
}

func eligibleDonor(id string, bt types.BloodType, km float64) *types.Donor {
	d := &types.Donor{
		ID:           id,
		BloodType:    bt,
		Availability: types.AvailabilityAvailable,
		Verification: types.VerificationVerified,
	}
	d.SetLocation(northOf(hospital, km))
	return d
}

func openRequest(bt types.BloodType) *types.EmergencyRequest {
	return &types.EmergencyRequest{
		ID:        "req-1",
		BloodType: bt,
		Latitude:  hospital.Latitude,
		Longitude: hospital.Longitude,
		Status:    types.RequestStatusActive,
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestFindCandidatesFiltersAndOrders(t *testing.T) {
	donors := []*types.Donor{
		eligibleDonor("far", types.BloodTypeONeg, 40),
		eligibleDonor("near", types.BloodTypeONeg, 2),
		eligibleDonor("incompatible", types.BloodTypeAPos, 1),
		eligibleDonor("outside", types.BloodTypeONeg, 60),
		eligibleDonor("mid", types.BloodTypeONeg, 10),
	}

	got, err := FindCandidates(openRequest(types.BloodTypeONeg), donors, 50, now)
	require.NoError(t, err)

	assert.Equal(t, []string{"near", "mid", "far"}, DonorIDs(got))
	assert.InDelta(t, 2.0, got[0].DistanceKm, 1e-6)
	assert.InDelta(t, 10.0, got[1].DistanceKm, 1e-6)
}

func TestFindCandidatesTiesBrokenByID(t *testing.T) {
	donors := []*types.Donor{
		eligibleDonor("c", types.BloodTypeOPos, 3),
		eligibleDonor("a", types.BloodTypeOPos, 3),
		eligibleDonor("b", types.BloodTypeOPos, 3),
	}

	got, err := FindCandidates(openRequest(types.BloodTypeAPos), donors, 50, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, DonorIDs(got))
}

func TestFindCandidatesEmptyInput(t *testing.T) {
	got, err := FindCandidates(openRequest(types.BloodTypeONeg), nil, 50, now)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindCandidatesRejectsMalformedRequestPoint(t *testing.T) {
	req := openRequest(types.BloodTypeONeg)
	req.Latitude = 123

	_, err := FindCandidates(req, []*types.Donor{eligibleDonor("a", types.BloodTypeONeg, 1)}, 50, now)
	assert.ErrorIs(t, err, types.ErrInvalidCoordinate)
}

func TestFindCandidatesDropsMalformedDonorPoint(t *testing.T) {
	bad := eligibleDonor("bad", types.BloodTypeONeg, 1)
	bad.Latitude = utils.Float64Ptr(200)

	got, err := FindCandidates(openRequest(types.BloodTypeONeg), []*types.Donor{bad, eligibleDonor("ok", types.BloodTypeONeg, 1)}, 50, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, DonorIDs(got))
}

func TestFindCandidatesExcludesAntipodalDonor(t *testing.T) {
	req := openRequest(types.BloodTypeONeg)
	req.Latitude, req.Longitude = -88.5, -179.5

	far := eligibleDonor("far", types.BloodTypeONeg, 0)
	far.SetLocation(types.GeoPoint{Latitude: 88.5, Longitude: 0.5})

	got, err := FindCandidates(req, []*types.Donor{far}, 50, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindCandidatesCooldown(t *testing.T) {
	cooling := eligibleDonor("cooling", types.BloodTypeONeg, 1)
	cooling.NextEligibleAt = utils.TimePtr(now.Add(time.Minute))

	ready := eligibleDonor("ready", types.BloodTypeONeg, 2)
	ready.NextEligibleAt = utils.TimePtr(now)

	got, err := FindCandidates(openRequest(types.BloodTypeONeg), []*types.Donor{cooling, ready}, 50, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"ready"}, DonorIDs(got))
}

func randomDonor(r *rand.Rand, i int) *types.Donor {
	d := &types.Donor{
		ID:        fmt.Sprintf("donor-%03d", i),
		BloodType: types.AllBloodTypes[r.Intn(len(types.AllBloodTypes))],
	}

	availabilities := []types.Availability{"", types.AvailabilityAvailable, types.AvailabilityBusy, types.AvailabilityUnavailable, types.AvailabilityTemporarilyUnavailable}
	verifications := []types.Verification{"", types.VerificationVerified, types.VerificationPending, types.VerificationRejected, types.VerificationUnverified}
	d.Availability = availabilities[r.Intn(len(availabilities))]
	d.Verification = verifications[r.Intn(len(verifications))]

	if r.Intn(5) > 0 {
		d.SetLocation(northOf(hospital, r.Float64()*80))
	}

	switch r.Intn(3) {
	case 0:
		d.NextEligibleAt = utils.TimePtr(now.Add(time.Duration(r.Intn(1000)+1) * time.Hour))
	case 1:
		d.NextEligibleAt = utils.TimePtr(now.Add(-time.Duration(r.Intn(1000)) * time.Hour))
	}

	return d
}

func TestFindCandidatesFailsClosedOnRandomPopulations(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		donors := make([]*types.Donor, 0, 60)
		for i := 0; i < 60; i++ {
			donors = append(donors, randomDonor(r, i))
		}

		req := openRequest(types.AllBloodTypes[r.Intn(len(types.AllBloodTypes))])
		got, err := FindCandidates(req, donors, 50, now)
		require.NoError(t, err)

		for i, c := range got {
			d := c.Donor
			assert.Equal(t, types.VerificationVerified, d.Verification)
			assert.Equal(t, types.AvailabilityAvailable, d.Availability)
			if d.NextEligibleAt != nil {
				assert.False(t, now.Before(*d.NextEligibleAt))
			}
			_, hasLoc := d.Location()
			assert.True(t, hasLoc)
			assert.LessOrEqual(t, c.DistanceKm, 50.0)

			if i > 0 {
				assert.LessOrEqual(t, got[i-1].DistanceKm, c.DistanceKm)
			}
		}
	}
}

func TestFindCandidatesRemovingOneDonorOnlyRemovesIt(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	donors := make([]*types.Donor, 0, 40)
	for i := 0; i < 40; i++ {
		d := eligibleDonor(fmt.Sprintf("d%02d", i), types.BloodTypeONeg, r.Float64()*45)
		donors = append(donors, d)
	}

	req := openRequest(types.BloodTypeABPos)
	full, err := FindCandidates(req, donors, 50, now)
	require.NoError(t, err)
	require.Len(t, full, 40)

	for skip := range donors {
		subset := make([]*types.Donor, 0, len(donors)-1)
		subset = append(subset, donors[:skip]...)
		subset = append(subset, donors[skip+1:]...)

		got, err := FindCandidates(req, subset, 50, now)
		require.NoError(t, err)

		want := utils.FilterSliceString(DonorIDs(full), donors[skip].ID)
		assert.Equal(t, want, DonorIDs(got))
	}
}

func TestFindRequestsForDonor(t *testing.T) {
	donor := eligibleDonor("donor", types.BloodTypeOPos, 0)

	near := openRequest(types.BloodTypeAPos)
	near.ID = "near"
	near.Latitude = northOf(hospital, 3).Latitude

	far := openRequest(types.BloodTypeOPos)
	far.ID = "far"
	far.Latitude = northOf(hospital, 30).Latitude

	wrongType := openRequest(types.BloodTypeANeg)
	wrongType.ID = "wrong-type"

	expired := openRequest(types.BloodTypeOPos)
	expired.ID = "expired"
	expired.ExpiresAt = now.Add(-time.Minute)

	closed := openRequest(types.BloodTypeOPos)
	closed.ID = "closed"
	closed.Status = types.RequestStatusFulfilled

	got, err := FindRequests(donor, []*types.EmergencyRequest{far, wrongType, near, expired, closed}, 50, now)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, m := range got {
		ids = append(ids, m.Request.ID)
	}
	assert.Equal(t, []string{"near", "far"}, ids)
}

func TestFindRequestsDonorWithoutLocation(t *testing.T) {
	got, err := FindRequests(&types.Donor{ID: "x", BloodType: types.BloodTypeONeg}, []*types.EmergencyRequest{openRequest(types.BloodTypeONeg)}, 50, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}
