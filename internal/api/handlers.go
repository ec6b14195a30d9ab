package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"skyfare/internal/database"
	"skyfare/internal/models"
	"skyfare/internal/pricing"
	"skyfare/internal/service"
)

type createBookingRequest struct {
	FlightID   int64  `json:"flight_id"`
	FareCode   string `json:"fare_code"`
	Passengers []struct {
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		PassportNumber string `json:"passport_number"`
	} `json:"passengers"`
	Ancillaries []struct {
		ProductID int64 `json:"product_id"`
		Quantity  int64 `json:"quantity"`
	} `json:"ancillaries"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type assignSeatRequest struct {
	PassengerID int64 `json:"passenger_id"`
	SeatID      int64 `json:"seat_id"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity, ok := identityFrom(r)
	if !ok {
		writeServiceError(w, database.ErrUnauthenticated)
		return
	}

	var body createBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := service.CreateBookingRequest{
		FlightID: body.FlightID,
		FareCode: body.FareCode,
	}
	for _, p := range body.Passengers {
		req.Passengers = append(req.Passengers, models.Passenger{
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			PassportNumber: p.PassportNumber,
		})
	}
	for _, a := range body.Ancillaries {
		req.Ancillaries = append(req.Ancillaries, pricing.AncillaryItem{ProductID: a.ProductID, Quantity: a.Quantity})
	}

	booking, err := s.bookings.CreateBooking(r.Context(), identity, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleBookingSubtree(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeServiceError(w, database.ErrUnauthenticated)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	reference := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		booking, err := s.bookings.GetBooking(r.Context(), identity, reference)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)

	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost:
		var body statusRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
			writeError(w, http.StatusBadRequest, "status is required")
			return
		}
		booking, err := s.bookings.SetStatus(r.Context(), identity, reference, body.Status)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)

	case len(parts) == 2 && parts[1] == "seats" && r.Method == http.MethodPost:
		var body assignSeatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		assignment, err := s.seats.AssignSeat(r.Context(), identity, reference, body.PassengerID, body.SeatID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, assignment)

	case len(parts) == 3 && parts[1] == "seats" && r.Method == http.MethodDelete:
		passengerID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid passenger id")
			return
		}
		if err := s.seats.ReleaseSeat(r.Context(), identity, reference, passengerID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "released"})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleFlightSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/flights/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	flightID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid flight id")
		return
	}

	switch parts[1] {
	case "availability":
		requested := int64(1)
		if raw := strings.TrimSpace(r.URL.Query().Get("passengers")); raw != "" {
			requested, err = strconv.ParseInt(raw, 10, 64)
			if err != nil || requested < 1 {
				writeError(w, http.StatusBadRequest, "invalid passengers count")
				return
			}
		}
		report, err := s.availability.CheckCapacity(r.Context(), flightID, requested)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)

	case "seatmap":
		entries, err := s.availability.SeatMap(r.Context(), flightID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"flight_id": flightID, "seats": entries})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleFareQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	flightID, err := strconv.ParseInt(strings.TrimSpace(q.Get("flight_id")), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "flight_id is required")
		return
	}
	fareCode := strings.TrimSpace(q.Get("fare_code"))
	if fareCode == "" {
		writeError(w, http.StatusBadRequest, "fare_code is required")
		return
	}

	price, err := s.quotes.ComputeBaseFare(r.Context(), flightID, fareCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]any{
		"flight_id": flightID,
		"fare_code": fareCode,
		"base_fare": price,
	}

	if raw := strings.TrimSpace(q.Get("seat_id")); raw != "" {
		seatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid seat_id")
			return
		}
		seatPrice, err := s.quotes.ComputeSeatPrice(r.Context(), seatID, flightID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp["seat_id"] = seatID
		resp["seat_price"] = seatPrice
	}

	writeJSON(w, http.StatusOK, resp)
}
