package matching

import (
	"errors"
	"testing"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEligible(t *testing.T) {
	assert.True(t, IsEligible(eligibleDonor("ok", types.BloodTypeONeg, 1), now))
	assert.False(t, IsEligible(nil, now))

	unsetVerification := eligibleDonor("a", types.BloodTypeONeg, 1)
	unsetVerification.Verification = ""
	assert.False(t, IsEligible(unsetVerification, now))

	pending := eligibleDonor("b", types.BloodTypeONeg, 1)
	pending.Verification = types.VerificationPending
	assert.False(t, IsEligible(pending, now))

	unsetAvailability := eligibleDonor("c", types.BloodTypeONeg, 1)
	unsetAvailability.Availability = ""
	assert.False(t, IsEligible(unsetAvailability, now))

	busy := eligibleDonor("d", types.BloodTypeONeg, 1)
	busy.Availability = types.AvailabilityBusy
	assert.False(t, IsEligible(busy, now))

	noLocation := eligibleDonor("e", types.BloodTypeONeg, 1)
	noLocation.Longitude = nil
	assert.False(t, IsEligible(noLocation, now))

	boundary := eligibleDonor("f", types.BloodTypeONeg, 1)
	boundary.NextEligibleAt = utils.TimePtr(now)
	assert.True(t, IsEligible(boundary, now))
	assert.False(t, IsEligible(boundary, now.Add(-time.Nanosecond)))
}

func reasonOf(t *testing.T, err error) types.NotEligibleReason {
	t.Helper()
	require.ErrorIs(t, err, types.ErrDonorNotEligible)

	var ne *types.NotEligibleError
	require.True(t, errors.As(err, &ne))
	return ne.Reason
}

func TestExplain(t *testing.T) {
	req := openRequest(types.BloodTypeBNeg)

	assert.NoError(t, Explain(eligibleDonor("ok", types.BloodTypeONeg, 5), req, 50, now))

	cooling := eligibleDonor("cooling", types.BloodTypeONeg, 5)
	cooling.NextEligibleAt = utils.TimePtr(now.Add(24 * time.Hour))
	assert.Equal(t, types.ReasonCoolingDown, reasonOf(t, Explain(cooling, req, 50, now)))

	unverified := eligibleDonor("unverified", types.BloodTypeONeg, 5)
	unverified.Verification = types.VerificationUnverified
	assert.Equal(t, types.ReasonNotVerified, reasonOf(t, Explain(unverified, req, 50, now)))

	assert.Equal(t, types.ReasonIncompatibleType, reasonOf(t, Explain(eligibleDonor("a", types.BloodTypeAPos, 5), req, 50, now)))
	assert.Equal(t, types.ReasonOutOfRange, reasonOf(t, Explain(eligibleDonor("far", types.BloodTypeONeg, 80), req, 50, now)))
	assert.NoError(t, Explain(eligibleDonor("far", types.BloodTypeONeg, 80), req, 0, now))

	closed := openRequest(types.BloodTypeBNeg)
	closed.Status = types.RequestStatusCancelled
	assert.Equal(t, types.ReasonRequestClosed, reasonOf(t, Explain(eligibleDonor("ok", types.BloodTypeONeg, 5), closed, 50, now)))

	assert.Equal(t, types.ReasonMissing, reasonOf(t, Explain(nil, req, 50, now)))
}
