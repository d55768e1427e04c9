// Package lifecycle is the emergency request state machine. Every function
// validates the move first and leaves the request untouched when it fails.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"bloodlink/internal/geo"
	"bloodlink/pkg/types"
)

const defaultDeadline = 24 * time.Hour

// deadlines maps urgency to the window a request stays open. Anything not
// listed, life_threatening included, gets the default window.
var deadlines = map[types.Urgency]time.Duration{
	types.UrgencyCritical: 3 * time.Hour,
	types.UrgencyUrgent:   12 * time.Hour,
	types.UrgencyNormal:   defaultDeadline,
}

func DeadlineFor(urgency types.Urgency) time.Duration {
	if d, ok := deadlines[urgency]; ok {
		return d
	}
	return defaultDeadline
}

var transitions = map[types.RequestStatus][]types.RequestStatus{
	types.RequestStatusActive:      {types.RequestStatusMatching, types.RequestStatusCancelled, types.RequestStatusExpired},
	types.RequestStatusMatching:    {types.RequestStatusDonorsFound, types.RequestStatusCancelled, types.RequestStatusExpired},
	types.RequestStatusDonorsFound: {types.RequestStatusFulfilled, types.RequestStatusCancelled, types.RequestStatusExpired},
}

// CanTransition is the single table of legal status moves.
func CanTransition(from, to types.RequestStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func guard(req *types.EmergencyRequest, to types.RequestStatus) error {
	if !CanTransition(req.Status, to) {
		return &types.InvalidTransitionError{From: req.Status, Attempted: to}
	}
	return nil
}

// Validate checks a creation payload.
func Validate(req *types.EmergencyRequest) error {
	var problems []string

	if !req.BloodType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown blood type %q", req.BloodType))
	}
	if req.UnitsNeeded <= 0 {
		problems = append(problems, "units needed must be positive")
	}
	if !req.Urgency.Valid() {
		problems = append(problems, fmt.Sprintf("unknown urgency %q", req.Urgency))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidRequest, strings.Join(problems, "; "))
	}

	return geo.ValidateCoordinate(req.Latitude, req.Longitude)
}

// Create opens a new request. ExpiresAt is fixed here and never recomputed.
func Create(req *types.EmergencyRequest, now time.Time) error {
	if err := Validate(req); err != nil {
		return err
	}

	now = now.UTC()
	req.Status = types.RequestStatusActive
	req.MatchedDonorIDs = []string{}
	req.CreatedAt = now
	req.UpdatedAt = now
	req.ExpiresAt = now.Add(DeadlineFor(req.Urgency))
	return nil
}

func BeginMatching(req *types.EmergencyRequest, now time.Time) error {
	if err := guard(req, types.RequestStatusMatching); err != nil {
		return err
	}
	req.Status = types.RequestStatusMatching
	req.UpdatedAt = now.UTC()
	return nil
}

func RecordCandidatesFound(req *types.EmergencyRequest, donorIDs []string, now time.Time) error {
	if err := guard(req, types.RequestStatusDonorsFound); err != nil {
		return err
	}
	if len(donorIDs) == 0 {
		return types.ErrNoCandidates
	}
	req.Status = types.RequestStatusDonorsFound
	req.MatchedDonorIDs = append([]string(nil), donorIDs...)
	req.UpdatedAt = now.UTC()
	return nil
}

func Fulfill(req *types.EmergencyRequest, donorID string, volumeMl int, now time.Time) error {
	if err := guard(req, types.RequestStatusFulfilled); err != nil {
		return err
	}
	if volumeMl <= 0 {
		return fmt.Errorf("%d ml: %w", volumeMl, types.ErrInvalidDonationVolume)
	}

	now = now.UTC()
	req.Status = types.RequestStatusFulfilled
	req.FulfilledBy = &donorID
	req.FulfilledVolumeMl = &volumeMl
	req.FulfilledAt = &now
	req.UpdatedAt = now
	return nil
}

func Cancel(req *types.EmergencyRequest, reason string, now time.Time) error {
	if err := guard(req, types.RequestStatusCancelled); err != nil {
		return err
	}
	req.Status = types.RequestStatusCancelled
	if reason = strings.TrimSpace(reason); reason != "" {
		req.CancelReason = &reason
	}
	req.UpdatedAt = now.UTC()
	return nil
}

// Due reports whether an open request has passed its deadline.
func Due(req *types.EmergencyRequest, now time.Time) bool {
	return req.Status.Open() && now.After(req.ExpiresAt)
}

// Expire moves req to expired when it is due and reports whether it did.
func Expire(req *types.EmergencyRequest, now time.Time) bool {
	if !Due(req, now) {
		return false
	}
	req.Status = types.RequestStatusExpired
	req.UpdatedAt = now.UTC()
	return true
}

// SweepExpirations expires every due request in place and returns the ones it
// changed. Running it again over the same slice changes nothing.
func SweepExpirations(requests []*types.EmergencyRequest, now time.Time) []*types.EmergencyRequest {
	expired := make([]*types.EmergencyRequest, 0)
	for _, req := range requests {
		if req != nil && Expire(req, now) {
			expired = append(expired, req)
		}
	}
	return expired
}
