package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bloodlink/internal/geo"
	"bloodlink/internal/matching"
	"bloodlink/internal/progression"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

type RegisterDonorInput struct {
	UserID       string             `json:"user_id"`
	Name         string             `json:"name"`
	BloodType    types.BloodType    `json:"blood_type"`
	Latitude     *float64           `json:"latitude"`
	Longitude    *float64           `json:"longitude"`
	Availability types.Availability `json:"availability"`
}

type EligibilityResult struct {
	DonorID   string                  `json:"donor_id"`
	RequestID string                  `json:"request_id"`
	Eligible  bool                    `json:"eligible"`
	Reason    types.NotEligibleReason `json:"reason,omitempty"`
	Detail    string                  `json:"detail,omitempty"`
}

// RegisterDonor creates an unverified donor profile. Verification is granted
// later through SetVerification.
func (e *Engine) RegisterDonor(ctx context.Context, input RegisterDonorInput) (*types.Donor, error) {
	bloodType, ok := types.ParseBloodType(string(input.BloodType))
	if !ok {
		return nil, fmt.Errorf("%w: unknown blood type %q", types.ErrInvalidDonor, input.BloodType)
	}

	availability := input.Availability
	if availability == "" {
		availability = types.AvailabilityAvailable
	}
	if !availability.Valid() {
		return nil, fmt.Errorf("%w: unknown availability %q", types.ErrInvalidDonor, availability)
	}

	donor := &types.Donor{
		ID:           utils.NanoID(),
		UserID:       input.UserID,
		Name:         strings.TrimSpace(input.Name),
		BloodType:    bloodType,
		Availability: availability,
		Verification: types.VerificationUnverified,
		Badge:        progression.BadgeFor(0),
	}

	if (input.Latitude == nil) != (input.Longitude == nil) {
		return nil, fmt.Errorf("%w: latitude and longitude must be set together", types.ErrInvalidDonor)
	}
	if input.Latitude != nil {
		if err := geo.ValidateCoordinate(*input.Latitude, *input.Longitude); err != nil {
			return nil, err
		}
		donor.SetLocation(types.GeoPoint{Latitude: *input.Latitude, Longitude: *input.Longitude})
	}

	if err := e.store.CreateDonor(ctx, donor); err != nil {
		return nil, fmt.Errorf("failed to create donor: %w", err)
	}

	e.logger.WithField("donor_id", donor.ID).WithField("blood_type", donor.BloodType).Info("donor registered")
	return donor, nil
}

func (e *Engine) Donor(ctx context.Context, id string) (*types.Donor, error) {
	return e.store.Donor(ctx, id)
}

// writeDonor reads the donor, applies change and writes the result guarded by
// the version it was read at. A conflict means another writer landed first,
// so the change is replayed on a fresh read.
func (e *Engine) writeDonor(ctx context.Context, id string, change func(d *types.Donor) (*types.Donor, error)) (*types.Donor, error) {
	for {
		donor, err := e.store.Donor(ctx, id)
		if err != nil {
			return nil, err
		}

		next, err := change(donor)
		if err != nil {
			return nil, err
		}

		err = e.store.UpdateDonor(ctx, next)
		if errors.Is(err, types.ErrDonorConflict) {
			e.logger.WithField("donor_id", id).WithField("version", next.Version).Debug("donor changed concurrently, retrying")
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update donor %s: %w", id, err)
		}

		return next, nil
	}
}

func (e *Engine) updateDonor(ctx context.Context, id string, apply func(d *types.Donor) error) (*types.Donor, error) {
	unlock := e.donorLocks.Lock(id)
	defer unlock()

	return e.writeDonor(ctx, id, func(d *types.Donor) (*types.Donor, error) {
		if err := apply(d); err != nil {
			return nil, err
		}
		return d, nil
	})
}

func (e *Engine) SetAvailability(ctx context.Context, id string, availability types.Availability) (*types.Donor, error) {
	if !availability.Valid() {
		return nil, fmt.Errorf("%w: unknown availability %q", types.ErrInvalidDonor, availability)
	}

	return e.updateDonor(ctx, id, func(d *types.Donor) error {
		d.Availability = availability
		return nil
	})
}

func (e *Engine) SetVerification(ctx context.Context, id string, verification types.Verification) (*types.Donor, error) {
	if !verification.Valid() {
		return nil, fmt.Errorf("%w: unknown verification status %q", types.ErrInvalidDonor, verification)
	}

	return e.updateDonor(ctx, id, func(d *types.Donor) error {
		d.Verification = verification
		return nil
	})
}

func (e *Engine) SetLocation(ctx context.Context, id string, point types.GeoPoint) (*types.Donor, error) {
	if err := geo.ValidateCoordinate(point.Latitude, point.Longitude); err != nil {
		return nil, err
	}

	return e.updateDonor(ctx, id, func(d *types.Donor) error {
		d.SetLocation(point)
		return nil
	})
}

// RecordDonation credits a donation made outside any request. A zero time
// means now.
func (e *Engine) RecordDonation(ctx context.Context, donorID string, volumeMl int, at time.Time) (*types.Donor, error) {
	if at.IsZero() {
		at = e.now()
	}

	unlock := e.donorLocks.Lock(donorID)
	defer unlock()

	return e.applyDonation(ctx, donorID, volumeMl, at)
}

// applyDonation expects the caller to hold the donor lock.
func (e *Engine) applyDonation(ctx context.Context, donorID string, volumeMl int, at time.Time) (*types.Donor, error) {
	updated, err := e.writeDonor(ctx, donorID, func(d *types.Donor) (*types.Donor, error) {
		next, err := progression.RecordDonation(*d, volumeMl, at)
		if err != nil {
			return nil, err
		}
		return &next, nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.WithField("donor_id", updated.ID).WithField("total_donations", updated.TotalDonations).WithField("badge", updated.Badge).Info("donation recorded")
	return updated, nil
}

// CheckEligibility explains whether a donor could serve a request right now,
// using the default radius.
func (e *Engine) CheckEligibility(ctx context.Context, requestID, donorID string) (*EligibilityResult, error) {
	req, err := e.store.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}

	donor, err := e.store.Donor(ctx, donorID)
	if err != nil {
		return nil, err
	}

	result := &EligibilityResult{DonorID: donorID, RequestID: requestID, Eligible: true}

	err = matching.Explain(donor, req, e.defaultRadiusKm, e.now())
	if err == nil {
		return result, nil
	}

	var notEligible *types.NotEligibleError
	if !errors.As(err, &notEligible) {
		return nil, err
	}

	result.Eligible = false
	result.Reason = notEligible.Reason
	result.Detail = notEligible.Detail
	return result, nil
}

func (e *Engine) RequestsForDonor(ctx context.Context, donorID string, radiusKm float64) ([]matching.RequestMatch, error) {
	donor, err := e.store.Donor(ctx, donorID)
	if err != nil {
		return nil, err
	}

	requests, err := e.store.Requests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load requests: %w", err)
	}

	return matching.FindRequests(donor, requests, e.radius(radiusKm), e.now())
}
