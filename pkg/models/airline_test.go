package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSearchFilters_IsEmpty(t *testing.T) {
	from := date(2030, 1, 1)

	tests := []struct {
		name    string
		filters *SearchFilters
		want    bool
	}{
		{"nil", nil, true},
		{"zero", &SearchFilters{}, true},
		{"blank codes", &SearchFilters{DepartureAirportCode: "  ", DestinationAirportCode: "\t"}, true},
		{"departure", &SearchFilters{DepartureAirportCode: "SFO"}, false},
		{"destination", &SearchFilters{DestinationAirportCode: "JFK"}, false},
		{"from date", &SearchFilters{DepartureDateFrom: &from}, false},
		{"to date", &SearchFilters{DepartureDateTo: &from}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.IsEmpty())
		})
	}
}

func TestSearchFilters_Matches(t *testing.T) {
	flight := Flight{
		DepartureDate:          time.Date(2030, 5, 10, 15, 30, 0, 0, time.UTC),
		DepartureAirportCode:   "SFO",
		DestinationAirportCode: "JFK",
	}
	sameDay := date(2030, 5, 10)
	after := date(2030, 5, 11)

	assert.True(t, (&SearchFilters{DepartureAirportCode: "sfo"}).Matches(flight))
	assert.False(t, (&SearchFilters{DepartureAirportCode: "LAX"}).Matches(flight))
	assert.True(t, (&SearchFilters{DestinationAirportCode: "JFK"}).Matches(flight))
	assert.True(t, (&SearchFilters{DepartureDateFrom: &sameDay, DepartureDateTo: &sameDay}).Matches(flight))
	assert.False(t, (&SearchFilters{DepartureDateFrom: &after}).Matches(flight))
}

func TestFlight_DisplayDate(t *testing.T) {
	assert.Equal(t, "03/07/2031", Flight{DepartureDate: date(2031, 3, 7)}.DisplayDate())
	assert.Equal(t, "", Flight{}.DisplayDate())
}

func TestNewFlightCreatedEvent(t *testing.T) {
	f := Flight{
		ID:                     42,
		DepartureDate:          date(2031, 12, 1),
		DepartureAirportCode:   "ORD",
		DestinationAirportCode: "DEN",
		Cost:                   199.5,
		AirplaneID:             7,
		TotalSeats:             150,
		AvailableSeats:         150,
	}

	assert.Equal(t, FlightCreatedEvent{
		FlightID:           "42",
		FlightDate:         "12/01/2031",
		DepartureAirport:   "ORD",
		DestinationAirport: "DEN",
		NumSeats:           150,
		Cost:               199.5,
		AirplaneID:         "7",
	}, NewFlightCreatedEvent(f))
}

func TestReservationStatus_IsCanceled(t *testing.T) {
	assert.True(t, StatusCanceled.IsCanceled())
	assert.True(t, ReservationStatus("canceled").IsCanceled())
	assert.False(t, StatusActive.IsCanceled())
}

func TestNormalizeAirportCode(t *testing.T) {
	assert.Equal(t, "SFO", NormalizeAirportCode("  sfo "))
}
