package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"skyfare/internal/config"
	"skyfare/internal/database"
	"skyfare/internal/logging"
	"skyfare/internal/metrics"
	"skyfare/internal/pricing"
	"skyfare/internal/service"

	"github.com/rs/zerolog"
)

// QuoteEngine is the slice of the pricing engine the quote endpoint uses.
type QuoteEngine interface {
	ComputeBaseFare(ctx context.Context, flightID int64, fareCode string) (float64, error)
	ComputeSeatPrice(ctx context.Context, seatID, flightID int64) (*float64, error)
}

var _ QuoteEngine = (*pricing.Engine)(nil)

// HTTPServer exposes the booking API over plain HTTP.
type HTTPServer struct {
	cfg          config.APIConfig
	bookings     *service.BookingService
	seats        *service.SeatService
	availability *service.AvailabilityService
	quotes       QuoteEngine
	auth         *HTTPAuth
	server       *http.Server
	log          zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, bookings *service.BookingService, seats *service.SeatService, availability *service.AvailabilityService, quotes QuoteEngine, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:          cfg,
		bookings:     bookings,
		seats:        seats,
		availability: availability,
		quotes:       quotes,
	}
	srv.log = logging.Component(logger, "http")
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingSubtree)
	mux.HandleFunc("/api/v1/flights/", srv.handleFlightSubtree)
	mux.HandleFunc("/api/v1/fares/quote", srv.handleFareQuote)
	mux.HandleFunc("/api/v1/health", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler exposes the composed handler chain for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		metrics.IncHTTP(r.URL.Path)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps the store's error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, database.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, database.ErrSeatConflict),
		errors.Is(err, database.ErrInsufficientCapacity),
		errors.Is(err, database.ErrInvalidTransition),
		errors.Is(err, database.ErrConcurrentModification):
		status = http.StatusConflict
	case errors.Is(err, database.ErrFlightNotBookable),
		errors.Is(err, database.ErrAncillaryUnavailable),
		errors.Is(err, database.ErrCancellationWindow):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, database.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, database.ErrUnauthorized):
		status = http.StatusForbidden
	}
	writeError(w, status, err.Error())
}
