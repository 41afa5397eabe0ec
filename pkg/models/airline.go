package models

import (
	"strconv"
	"strings"
	"time"
)

// DisplayDateLayout renders dates as MM/dd/yyyy.
const DisplayDateLayout = "01/02/2006"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

type ReservationStatus string

const (
	StatusActive   ReservationStatus = "ACTIVE"
	StatusCanceled ReservationStatus = "CANCELED"
)

// IsCanceled compares case-insensitively; older rows may carry lowercase values.
func (s ReservationStatus) IsCanceled() bool {
	return strings.EqualFold(string(s), string(StatusCanceled))
}

type Airplane struct {
	ID        int    `json:"id"`
	NumSeats  int    `json:"num_seats"`
	PlaneType string `json:"plane_type"`
}

type Airport struct {
	Code string `json:"code"`
}

type Flight struct {
	ID                     int       `json:"id"`
	DepartureDate          time.Time `json:"departure_date"`
	DepartureAirportCode   string    `json:"departure_airport_code"`
	DestinationAirportCode string    `json:"destination_airport_code"`
	Cost                   float64   `json:"cost"`
	AirplaneID             int       `json:"airplane_id"`
	TotalSeats             int       `json:"total_seats"`
	AvailableSeats         int       `json:"available_seats"`
}

func (f Flight) DisplayDate() string {
	if f.DepartureDate.IsZero() {
		return ""
	}
	return f.DepartureDate.Format(DisplayDateLayout)
}

type Customer struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type Reservation struct {
	ID         int               `json:"id"`
	FlightID   int               `json:"flight_id"`
	CustomerID int               `json:"customer_id"`
	NumSeats   int               `json:"num_seats"`
	Status     ReservationStatus `json:"status"`
}

// SearchFilters narrows a flight search. Unset fields match everything.
type SearchFilters struct {
	DepartureAirportCode   string     `json:"departure_airport_code,omitempty"`
	DestinationAirportCode string     `json:"destination_airport_code,omitempty"`
	DepartureDateFrom      *time.Time `json:"departure_date_from,omitempty"`
	DepartureDateTo        *time.Time `json:"departure_date_to,omitempty"`
}

func (f *SearchFilters) IsEmpty() bool {
	if f == nil {
		return true
	}
	return strings.TrimSpace(f.DepartureAirportCode) == "" &&
		strings.TrimSpace(f.DestinationAirportCode) == "" &&
		f.DepartureDateFrom == nil &&
		f.DepartureDateTo == nil
}

// Matches reports whether flight satisfies every set filter. Dates compare
// by calendar day and airport codes ignore case.
func (f *SearchFilters) Matches(flight Flight) bool {
	if code := strings.TrimSpace(f.DepartureAirportCode); code != "" && !strings.EqualFold(code, flight.DepartureAirportCode) {
		return false
	}
	if code := strings.TrimSpace(f.DestinationAirportCode); code != "" && !strings.EqualFold(code, flight.DestinationAirportCode) {
		return false
	}
	day := DateOnly(flight.DepartureDate)
	if f.DepartureDateFrom != nil && day.Before(DateOnly(*f.DepartureDateFrom)) {
		return false
	}
	if f.DepartureDateTo != nil && day.After(DateOnly(*f.DepartureDateTo)) {
		return false
	}
	return true
}

// FlightCreatedEvent is published once a flight has been stored.
type FlightCreatedEvent struct {
	FlightID           string  `json:"flightId"`
	FlightDate         string  `json:"flightDate"`
	DepartureAirport   string  `json:"departureAirport"`
	DestinationAirport string  `json:"destinationAirport"`
	NumSeats           int     `json:"numSeats"`
	Cost               float64 `json:"cost"`
	AirplaneID         string  `json:"airplaneId"`
}

func NewFlightCreatedEvent(f Flight) FlightCreatedEvent {
	return FlightCreatedEvent{
		FlightID:           strconv.Itoa(f.ID),
		FlightDate:         f.DisplayDate(),
		DepartureAirport:   f.DepartureAirportCode,
		DestinationAirport: f.DestinationAirportCode,
		NumSeats:           f.AvailableSeats,
		Cost:               f.Cost,
		AirplaneID:         strconv.Itoa(f.AirplaneID),
	}
}

// NormalizeAirportCode is the stored form of an airport code.
func NormalizeAirportCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DateOnly keeps the calendar day of t as seen in t's own location and
// returns it as midnight UTC, so days from different zones compare directly.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
