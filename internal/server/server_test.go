package server

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bloodlink/internal/engine"
	"bloodlink/internal/geo"
	"bloodlink/internal/metrics"
	"bloodlink/internal/notify"
	"bloodlink/internal/store"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/goccy/go-json"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hospital = types.GeoPoint{Latitude: 6.5244, Longitude: 3.3792}

type requestResponse struct {
	types.EmergencyRequest
	CompatibleDonorTypes []types.BloodType `json:"compatible_donor_types"`
}

type testServer struct {
	service *Service
	engine  *engine.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	s := store.NewMemory()
	e := engine.New(s, notify.NewStoreNotifier(s), logger)

	return &testServer{
		service: New(&types.Config{ServerPort: 0}, logger, e, metrics.New()),
		engine:  e,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	rec := httptest.NewRecorder()
	ts.service.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (ts *testServer) verifiedDonor(t *testing.T, userID string, bt types.BloodType, km float64) *types.Donor {
	t.Helper()
	ctx := context.Background()

	lat := hospital.Latitude + km/(geo.EarthRadiusKm*math.Pi/180)
	d, err := ts.engine.RegisterDonor(ctx, engine.RegisterDonorInput{
		UserID:    userID,
		Name:      userID,
		BloodType: bt,
		Latitude:  utils.Float64Ptr(lat),
		Longitude: utils.Float64Ptr(hospital.Longitude),
	})
	require.NoError(t, err)

	d, err = ts.engine.SetVerification(ctx, d.ID, types.VerificationVerified)
	require.NoError(t, err)
	return d
}

func createRequestBody(bt types.BloodType) engine.CreateRequestInput {
	return engine.CreateRequestInput{
		RequesterID:  "requester",
		PatientName:  "Ada",
		HospitalName: "Lagos General",
		BloodType:    bt,
		UnitsNeeded:  1,
		Urgency:      types.UrgencyCritical,
		Latitude:     utils.Float64Ptr(hospital.Latitude),
		Longitude:    utils.Float64Ptr(hospital.Longitude),
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRequestFlow(t *testing.T) {
	ts := newTestServer(t)
	donor := ts.verifiedDonor(t, "user-a", types.BloodTypeONeg, 5)

	rec := ts.do(t, http.MethodPost, "/api/requests", createRequestBody(types.BloodTypeABPos))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[requestResponse](t, rec)
	assert.Equal(t, types.RequestStatusActive, created.Status)
	assert.Len(t, created.CompatibleDonorTypes, len(types.AllBloodTypes))

	rec = ts.do(t, http.MethodGet, "/api/requests/"+created.ID+"/candidates?radius_km=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	candidates := decode[[]map[string]any](t, rec)
	require.Len(t, candidates, 1)

	rec = ts.do(t, http.MethodGet, "/api/requests/"+created.ID+"/candidates?radius_km=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = ts.do(t, http.MethodPost, "/api/requests/"+created.ID+"/match", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	match := decode[engine.MatchResult](t, rec)
	assert.Equal(t, types.RequestStatusDonorsFound, match.Request.Status)

	rec = ts.do(t, http.MethodPost, "/api/requests/"+created.ID+"/fulfill", fulfillBody{DonorID: donor.ID, VolumeMl: 450})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fulfilled := decode[engine.FulfillResult](t, rec)
	assert.Equal(t, types.RequestStatusFulfilled, fulfilled.Request.Status)
	assert.Equal(t, 1, fulfilled.Donor.TotalDonations)

	rec = ts.do(t, http.MethodPost, "/api/requests/"+created.ID+"/fulfill", fulfillBody{DonorID: donor.ID, VolumeMl: 450})
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode[errorResponse](t, rec)
	assert.Equal(t, "this request is already fulfilled", conflict.Error)
	assert.Equal(t, "invalid_transition", conflict.Code)

	rec = ts.do(t, http.MethodGet, "/api/users/requester/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[[]types.Notification](t, rec)
	assert.NotEmpty(t, notes)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/requests/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := createRequestBody(types.BloodTypeAPos)
	body.Latitude = utils.Float64Ptr(120)
	rec = ts.do(t, http.MethodPost, "/api/requests", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/requests", map[string]any{"blood_type": "O-", "units_needed": 1, "urgency": "critical"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid", decode[errorResponse](t, rec).Code)

	stored, err := ts.engine.Requests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)

	rec = ts.do(t, http.MethodPost, "/api/requests", map[string]any{"blood_type": "Q", "units_needed": 1, "urgency": "urgent"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	ts.service.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	donor := ts.verifiedDonor(t, "user-a", types.BloodTypeONeg, 1)
	rec = ts.do(t, http.MethodPost, "/api/donors/"+donor.ID+"/donations", donationBody{VolumeMl: -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/donors/"+donor.ID+"/eligibility", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/requests/missing/candidates?radius_km=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/requests/whatever", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDonorEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/donors", map[string]any{
		"user_id":    "user-b",
		"name":       "Bola",
		"blood_type": "o−",
		"latitude":   hospital.Latitude,
		"longitude":  hospital.Longitude,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	donor := decode[types.Donor](t, rec)
	assert.Equal(t, types.BloodTypeONeg, donor.BloodType)
	assert.Equal(t, types.VerificationUnverified, donor.Verification)

	rec = ts.do(t, http.MethodPost, "/api/requests", createRequestBody(types.BloodTypeONeg))
	require.Equal(t, http.StatusCreated, rec.Code)
	req := decode[requestResponse](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/donors/"+donor.ID+"/eligibility?request_id="+req.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[engine.EligibilityResult](t, rec)
	assert.False(t, result.Eligible)
	assert.Equal(t, types.ReasonNotVerified, result.Reason)

	rec = ts.do(t, http.MethodPost, "/api/donors/"+donor.ID+"/verification", verificationBody{Verification: types.VerificationVerified})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/donors/"+donor.ID+"/availability", availabilityBody{Availability: types.AvailabilityTemporarilyUnavailable})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/donors/"+donor.ID+"/eligibility?request_id="+req.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result = decode[engine.EligibilityResult](t, rec)
	assert.Equal(t, types.ReasonNotAvailable, result.Reason)

	rec = ts.do(t, http.MethodPost, "/api/donors/"+donor.ID+"/location", map[string]any{"latitude": 10.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/donors/"+donor.ID+"/location", map[string]any{"latitude": 6.6, "longitude": 3.4})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/donors/"+donor.ID+"/requests?radius_km=100", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	matches := decode[[]map[string]any](t, rec)
	assert.Len(t, matches, 1)

	donatedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec = ts.do(t, http.MethodPost, "/api/donors/"+donor.ID+"/donations", donationBody{VolumeMl: 300, DonatedAt: &donatedAt})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[types.Donor](t, rec)
	assert.Equal(t, 2, updated.LivesSaved)
	require.NotNil(t, updated.LastDonationAt)
	assert.True(t, donatedAt.Equal(*updated.LastDonationAt))

	rec = ts.do(t, http.MethodGet, "/api/donors/"+donor.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/donors/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrailingSlashRedirects(t *testing.T) {
	ts := newTestServer(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := ts.service.StripTrailingSlash(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/", nil))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/healthz", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/healthz", nil)

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bloodlink_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}
