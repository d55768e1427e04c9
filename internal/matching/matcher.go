// Package matching decides which donors can serve an emergency request and
// orders them by distance from the hospital.
package matching

import (
	"sort"
	"time"

	"bloodlink/internal/blood"
	"bloodlink/internal/geo"
	"bloodlink/pkg/types"
)

type Candidate struct {
	Donor      *types.Donor `json:"donor"`
	DistanceKm float64      `json:"distance_km"`
}

type RequestMatch struct {
	Request    *types.EmergencyRequest `json:"request"`
	DistanceKm float64                 `json:"distance_km"`
}

// FindCandidates filters donors by compatibility, eligibility and radius and
// returns them nearest first, ties broken by donor id. It works on the
// snapshot it is given and never mutates it. The only error is a malformed
// request location.
func FindCandidates(request *types.EmergencyRequest, donors []*types.Donor, maxRadiusKm float64, at time.Time) ([]Candidate, error) {
	origin := request.Location()
	if err := geo.ValidateCoordinate(origin.Latitude, origin.Longitude); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0)
	for _, donor := range donors {
		if donor == nil || !blood.CanDonateTo(donor.BloodType, request.BloodType) {
			continue
		}

		if !IsEligible(donor, at) {
			continue
		}

		loc, _ := donor.Location()
		distance, err := geo.Between(origin, loc)
		if err != nil || !(distance <= maxRadiusKm) {
			continue
		}

		candidates = append(candidates, Candidate{Donor: donor, DistanceKm: distance})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		return candidates[i].Donor.ID < candidates[j].Donor.ID
	})

	return candidates, nil
}

// FindRequests is the donor-side view: open, unexpired requests this donor's
// blood can serve, within the radius, nearest first. A donor without a usable
// location gets an empty list.
func FindRequests(donor *types.Donor, requests []*types.EmergencyRequest, maxRadiusKm float64, at time.Time) ([]RequestMatch, error) {
	out := make([]RequestMatch, 0)

	loc, ok := donor.Location()
	if !ok {
		return out, nil
	}
	if err := geo.ValidateCoordinate(loc.Latitude, loc.Longitude); err != nil {
		return nil, err
	}

	servable := make(map[types.BloodType]bool)
	for _, t := range blood.CompatibleRequestTypes(donor.BloodType) {
		servable[t] = true
	}

	for _, req := range requests {
		if req == nil || !servable[req.BloodType] {
			continue
		}

		if !req.Status.Open() || at.After(req.ExpiresAt) {
			continue
		}

		distance, err := geo.Between(loc, req.Location())
		if err != nil || !(distance <= maxRadiusKm) {
			continue
		}

		out = append(out, RequestMatch{Request: req, DistanceKm: distance})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Request.ID < out[j].Request.ID
	})

	return out, nil
}

// DonorIDs projects a candidate list onto donor identifiers, preserving order.
func DonorIDs(candidates []Candidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.Donor.ID)
	}
	return ids
}
