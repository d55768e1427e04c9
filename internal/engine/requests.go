package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bloodlink/internal/lifecycle"
	"bloodlink/internal/matching"
	"bloodlink/internal/notify"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

type CreateRequestInput struct {
	RequesterID  string          `json:"requester_id"`
	PatientName  string          `json:"patient_name"`
	HospitalName string          `json:"hospital_name"`
	BloodType    types.BloodType `json:"blood_type"`
	UnitsNeeded  int             `json:"units_needed"`
	Urgency      types.Urgency   `json:"urgency"`
	Latitude     *float64        `json:"latitude"`
	Longitude    *float64        `json:"longitude"`
}

type MatchResult struct {
	Request    *types.EmergencyRequest `json:"request"`
	Candidates []matching.Candidate    `json:"candidates"`
}

type FulfillResult struct {
	Request *types.EmergencyRequest `json:"request"`
	Donor   *types.Donor            `json:"donor"`
}

func (e *Engine) CreateRequest(ctx context.Context, input CreateRequestInput) (*types.EmergencyRequest, error) {
	if input.Latitude == nil || input.Longitude == nil {
		return nil, fmt.Errorf("%w: hospital latitude and longitude are required", types.ErrInvalidCoordinate)
	}

	bloodType := input.BloodType
	if parsed, ok := types.ParseBloodType(string(input.BloodType)); ok {
		bloodType = parsed
	}

	req := &types.EmergencyRequest{
		ID:           utils.NanoID(),
		RequesterID:  input.RequesterID,
		PatientName:  strings.TrimSpace(input.PatientName),
		HospitalName: strings.TrimSpace(input.HospitalName),
		BloodType:    bloodType,
		UnitsNeeded:  input.UnitsNeeded,
		Urgency:      input.Urgency,
		Latitude:     *input.Latitude,
		Longitude:    *input.Longitude,
	}

	if err := lifecycle.Create(req, e.now()); err != nil {
		return nil, err
	}

	if err := e.store.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	e.metrics.RecordTransition(string(req.Status))
	e.logger.WithField("request_id", req.ID).WithField("blood_type", req.BloodType).WithField("urgency", req.Urgency).Info("emergency request created")

	return req, nil
}

func (e *Engine) Request(ctx context.Context, id string) (*types.EmergencyRequest, error) {
	return e.store.Request(ctx, id)
}

func (e *Engine) Requests(ctx context.Context) ([]*types.EmergencyRequest, error) {
	return e.store.Requests(ctx)
}

// FindCandidates ranks donors for a request without changing it.
func (e *Engine) FindCandidates(ctx context.Context, requestID string, radiusKm float64) ([]matching.Candidate, error) {
	req, err := e.store.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}

	return e.candidatesFor(ctx, req, radiusKm)
}

func (e *Engine) candidatesFor(ctx context.Context, req *types.EmergencyRequest, radiusKm float64) ([]matching.Candidate, error) {
	donors, err := e.store.Donors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load donors: %w", err)
	}

	candidates, err := matching.FindCandidates(req, donors, e.radius(radiusKm), e.now())
	if err != nil {
		return nil, err
	}

	e.metrics.ObserveCandidates(len(candidates))
	return candidates, nil
}

// MatchRequest moves an active request to matching, runs the matcher and,
// when anybody qualifies, records them and moves on to donors_found. With no
// candidates the request stays in matching and can be matched again.
func (e *Engine) MatchRequest(ctx context.Context, requestID string, radiusKm float64) (*MatchResult, error) {
	unlock := e.requestLocks.Lock(requestID)
	defer unlock()

	req, err := e.store.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if lifecycle.Due(req, e.now()) {
		return nil, e.expireOnTouch(ctx, requestID, types.RequestStatusMatching)
	}

	if req.Status != types.RequestStatusMatching {
		req, err = e.transition(ctx, requestID, func(r *types.EmergencyRequest) error {
			return lifecycle.BeginMatching(r, e.now())
		})
		if err != nil {
			return nil, err
		}
		e.notify(ctx, notify.StatusChanged(req))
	}

	candidates, err := e.candidatesFor(ctx, req, radiusKm)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		e.logger.WithField("request_id", requestID).Info("no eligible donors in range")
		return &MatchResult{Request: req, Candidates: candidates}, nil
	}

	ids := matching.DonorIDs(candidates)
	req, err = e.transition(ctx, requestID, func(r *types.EmergencyRequest) error {
		return lifecycle.RecordCandidatesFound(r, ids, e.now())
	})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, notify.StatusChanged(req))
	for _, c := range candidates {
		e.notify(ctx, notify.DonorMatched(req, c.Donor))
	}

	return &MatchResult{Request: req, Candidates: candidates}, nil
}

// Fulfill closes a request with a completed donation and credits the donor.
// The donor does not have to be on the matched list.
func (e *Engine) Fulfill(ctx context.Context, requestID, donorID string, volumeMl int) (*FulfillResult, error) {
	unlockRequest := e.requestLocks.Lock(requestID)
	defer unlockRequest()

	unlockDonor := e.donorLocks.Lock(donorID)
	defer unlockDonor()

	if _, err := e.store.Donor(ctx, donorID); err != nil {
		return nil, err
	}

	now := e.now()
	req, err := e.transition(ctx, requestID, func(r *types.EmergencyRequest) error {
		if lifecycle.Due(r, now) {
			return errPastDeadline
		}
		return lifecycle.Fulfill(r, donorID, volumeMl, now)
	})
	if errors.Is(err, errPastDeadline) {
		return nil, e.expireOnTouch(ctx, requestID, types.RequestStatusFulfilled)
	}
	if err != nil {
		return nil, err
	}

	updated, err := e.applyDonation(ctx, donorID, volumeMl, now)
	if err != nil {
		e.logger.WithError(err).WithField("request_id", requestID).WithField("donor_id", donorID).Error("request fulfilled but donor stats were not updated")
		return nil, err
	}

	e.notify(ctx, notify.Fulfilled(req))
	e.notify(ctx, notify.DonationThanks(req, updated))

	return &FulfillResult{Request: req, Donor: updated}, nil
}

func (e *Engine) Cancel(ctx context.Context, requestID, reason string) (*types.EmergencyRequest, error) {
	unlock := e.requestLocks.Lock(requestID)
	defer unlock()

	req, err := e.transition(ctx, requestID, func(r *types.EmergencyRequest) error {
		return lifecycle.Cancel(r, reason, e.now())
	})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, notify.Cancelled(req, req.RequesterID))
	for _, id := range req.MatchedDonorIDs {
		donor, err := e.store.Donor(ctx, id)
		if err != nil {
			e.logger.WithError(err).WithField("donor_id", id).Warn("skipping cancel notification")
			continue
		}
		e.notify(ctx, notify.Cancelled(req, donor.UserID))
	}

	return req, nil
}

// SweepExpirations retires every open request past its deadline. Requests
// that another writer moved in the meantime are skipped, so running the sweep
// twice, or concurrently with itself, expires each request once.
func (e *Engine) SweepExpirations(ctx context.Context) ([]*types.EmergencyRequest, error) {
	snapshot, err := e.store.Requests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load requests: %w", err)
	}

	now := e.now()
	due := lifecycle.SweepExpirations(snapshot, now)

	expired := make([]*types.EmergencyRequest, 0, len(due))
	for _, candidate := range due {
		req, err := e.expire(ctx, candidate.ID)
		switch {
		case err == nil:
			expired = append(expired, req)
			e.notify(ctx, notify.Expired(req))
		case errors.Is(err, errNotDue), errors.Is(err, types.ErrStatusConflict), errors.Is(err, types.ErrRecordNotFound):
			continue
		default:
			e.logger.WithError(err).WithField("request_id", candidate.ID).Error("failed to expire request")
		}
	}

	e.metrics.RecordExpired(len(expired))
	if len(expired) > 0 {
		e.logger.WithField("count", len(expired)).Info("expired overdue requests")
	}

	return expired, nil
}

var (
	errNotDue       = errors.New("request is not due")
	errPastDeadline = errors.New("request is past its deadline")
)

func (e *Engine) expire(ctx context.Context, requestID string) (*types.EmergencyRequest, error) {
	unlock := e.requestLocks.Lock(requestID)
	defer unlock()

	return e.expireLocked(ctx, requestID)
}

// expireOnTouch retires a request found past its deadline before the sweep
// got to it, and reports the attempted move as invalid from whatever state
// the request ends up in. The caller holds the request lock.
func (e *Engine) expireOnTouch(ctx context.Context, requestID string, attempted types.RequestStatus) error {
	req, err := e.expireLocked(ctx, requestID)
	switch {
	case err == nil:
		e.metrics.RecordExpired(1)
		e.notify(ctx, notify.Expired(req))
		return &types.InvalidTransitionError{From: req.Status, Attempted: attempted}
	case errors.Is(err, errNotDue), errors.Is(err, types.ErrStatusConflict):
	default:
		return err
	}

	current, err := e.store.Request(ctx, requestID)
	if err != nil {
		return err
	}
	return &types.InvalidTransitionError{From: current.Status, Attempted: attempted}
}

func (e *Engine) expireLocked(ctx context.Context, requestID string) (*types.EmergencyRequest, error) {
	return e.transition(ctx, requestID, func(r *types.EmergencyRequest) error {
		if !lifecycle.Expire(r, e.now()) {
			return errNotDue
		}
		return nil
	})
}
