package server

import (
	"net/http"

	"bloodlink/internal/blood"
	"bloodlink/internal/engine"
	"bloodlink/internal/matching"
	"bloodlink/pkg/types"
)

type requestView struct {
	*types.EmergencyRequest
	CompatibleDonorTypes []types.BloodType `json:"compatible_donor_types"`
}

type radiusQuery struct {
	RadiusKm float64 `form:"radius_km"`
	Limit    int     `form:"limit"`
}

type fulfillBody struct {
	DonorID  string `json:"donor_id"`
	VolumeMl int    `json:"volume_ml"`
}

type cancelBody struct {
	Reason string `json:"reason"`
}

type matchBody struct {
	RadiusKm float64 `json:"radius_km"`
}

func (s *Service) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var input engine.CreateRequestInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, r, err)
		return
	}

	req, err := s.engine.CreateRequest(ctx, input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, newRequestView(req))
}

func (s *Service) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	req, err := s.engine.Request(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newRequestView(req))
}

func (s *Service) handleGetCandidates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var query radiusQuery
	if err := decoder.Decode(&query, r.URL.Query()); err != nil {
		s.writeError(w, r, errBadQuery(err))
		return
	}

	candidates, err := s.engine.FindCandidates(ctx, r.PathValue("id"), query.RadiusKm)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, limitCandidates(candidates, query.Limit))
}

func (s *Service) handleMatchRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var body matchBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.MatchRequest(ctx, r.PathValue("id"), body.RadiusKm)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleFulfillRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var body fulfillBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.Fulfill(ctx, r.PathValue("id"), body.DonorID, body.VolumeMl)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var body cancelBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	req, err := s.engine.Cancel(ctx, r.PathValue("id"), body.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newRequestView(req))
}

func newRequestView(req *types.EmergencyRequest) requestView {
	return requestView{
		EmergencyRequest:     req,
		CompatibleDonorTypes: blood.CompatibleDonorTypes(req.BloodType),
	}
}

func limitCandidates(candidates []matching.Candidate, limit int) []matching.Candidate {
	if limit > 0 && len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}
