package server

import (
	"errors"
	"net/http"
	"time"

	"bloodlink/internal/engine"
	"bloodlink/pkg/types"
)

type availabilityBody struct {
	Availability types.Availability `json:"availability"`
}

type verificationBody struct {
	Verification types.Verification `json:"verification"`
}

type locationBody struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type donationBody struct {
	VolumeMl  int        `json:"volume_ml"`
	DonatedAt *time.Time `json:"donated_at"`
}

type eligibilityQuery struct {
	RequestID string `form:"request_id"`
}

func errBadQuery(err error) error {
	return errors.Join(errBadPayload, err)
}

func (s *Service) handleRegisterDonor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var input engine.RegisterDonorInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, r, err)
		return
	}

	donor, err := s.engine.RegisterDonor(ctx, input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, donor)
}

func (s *Service) handleGetDonor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	donor, err := s.engine.Donor(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, donor)
}

func (s *Service) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var body availabilityBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	donor, err := s.engine.SetAvailability(ctx, r.PathValue("id"), body.Availability)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, donor)
}

func (s *Service) handleSetVerification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var body verificationBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	donor, err := s.engine.SetVerification(ctx, r.PathValue("id"), body.Verification)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, donor)
}

func (s *Service) handleSetLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var body locationBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Latitude == nil || body.Longitude == nil {
		s.writeError(w, r, errors.Join(errBadPayload, errors.New("latitude and longitude are required")))
		return
	}

	donor, err := s.engine.SetLocation(ctx, r.PathValue("id"), types.GeoPoint{Latitude: *body.Latitude, Longitude: *body.Longitude})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, donor)
}

func (s *Service) handleRecordDonation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var body donationBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	var donatedAt time.Time
	if body.DonatedAt != nil {
		donatedAt = *body.DonatedAt
	}

	donor, err := s.engine.RecordDonation(ctx, r.PathValue("id"), body.VolumeMl, donatedAt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, donor)
}

func (s *Service) handleCheckEligibility(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var query eligibilityQuery
	if err := decoder.Decode(&query, r.URL.Query()); err != nil {
		s.writeError(w, r, errBadQuery(err))
		return
	}
	if query.RequestID == "" {
		s.writeError(w, r, errors.Join(errBadPayload, errors.New("request_id is required")))
		return
	}

	result, err := s.engine.CheckEligibility(ctx, query.RequestID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleRequestsForDonor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var query radiusQuery
	if err := decoder.Decode(&query, r.URL.Query()); err != nil {
		s.writeError(w, r, errBadQuery(err))
		return
	}

	matches, err := s.engine.RequestsForDonor(ctx, r.PathValue("id"), query.RadiusKm)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if query.Limit > 0 && len(matches) > query.Limit {
		matches = matches[:query.Limit]
	}

	s.writeJSON(w, http.StatusOK, matches)
}

func (s *Service) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	notifications, err := s.engine.Notifications(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, notifications)
}
