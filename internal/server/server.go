package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bloodlink/internal/engine"
	"bloodlink/internal/metrics"
	"bloodlink/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

const handlerTimeout = 5 * time.Second

type Service struct {
	logger  *logrus.Logger
	config  *types.Config
	engine  *engine.Engine
	metrics *metrics.Metrics

	mux    *flow.Mux
	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	engine *engine.Engine,
	metrics *metrics.Metrics,
) *Service {
	mux := flow.New()

	s := &Service{
		logger:  logger,
		config:  config,
		engine:  engine,
		metrics: metrics,
		mux:     mux,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) Handler() http.Handler {
	return s.mux
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	s.route(r, "/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler(), http.MethodGet)

	s.route(r, "/api/requests", s.handleCreateRequest, http.MethodPost)
	s.route(r, "/api/requests/:id", s.handleGetRequest, http.MethodGet)
	s.route(r, "/api/requests/:id/candidates", s.handleGetCandidates, http.MethodGet)
	s.route(r, "/api/requests/:id/match", s.handleMatchRequest, http.MethodPost)
	s.route(r, "/api/requests/:id/fulfill", s.handleFulfillRequest, http.MethodPost)
	s.route(r, "/api/requests/:id/cancel", s.handleCancelRequest, http.MethodPost)

	s.route(r, "/api/donors", s.handleRegisterDonor, http.MethodPost)
	s.route(r, "/api/donors/:id", s.handleGetDonor, http.MethodGet)
	s.route(r, "/api/donors/:id/availability", s.handleSetAvailability, http.MethodPost)
	s.route(r, "/api/donors/:id/verification", s.handleSetVerification, http.MethodPost)
	s.route(r, "/api/donors/:id/location", s.handleSetLocation, http.MethodPost)
	s.route(r, "/api/donors/:id/donations", s.handleRecordDonation, http.MethodPost)
	s.route(r, "/api/donors/:id/eligibility", s.handleCheckEligibility, http.MethodGet)
	s.route(r, "/api/donors/:id/requests", s.handleRequestsForDonor, http.MethodGet)

	s.route(r, "/api/users/:id/notifications", s.handleGetNotifications, http.MethodGet)
}

// route registers h and records its metrics under the route pattern rather
// than the concrete path.
func (s *Service) route(r *flow.Mux, pattern string, h http.HandlerFunc, method string) {
	r.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		h(rw, req)

		s.metrics.RecordHTTPRequest(req.Method, pattern, rw.statusCode, time.Since(started))
	}, method)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
