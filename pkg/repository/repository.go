package repository

import (
	"context"
	"errors"

	"airline/pkg/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate key")
	ErrInsufficientSeats = errors.New("insufficient seats")
	ErrAlreadyCanceled   = errors.New("reservation already canceled")
)

// AirlineRepository owns every persisted entity. Failures other than the
// sentinels above come back as *apperror.DataAccessError.
type AirlineRepository interface {
	AirportExists(ctx context.Context, code string) (bool, error)
	AirplaneExists(ctx context.Context, id int) (bool, error)
	FlightExists(ctx context.Context, id int) (bool, error)
	CustomerExists(ctx context.Context, id int) (bool, error)
	ReservationExists(ctx context.Context, id int) (bool, error)

	GetAirplane(ctx context.Context, id int) (models.Airplane, error)
	GetAvailableSeats(ctx context.Context, flightID int) (int, error)
	GetReservation(ctx context.Context, id int) (models.Reservation, error)

	CreateAirplane(ctx context.Context, a models.Airplane) (models.Airplane, error)
	CreateAirport(ctx context.Context, a models.Airport) (models.Airport, error)
	CreateFlight(ctx context.Context, f models.Flight) (models.Flight, error)
	CreateCustomer(ctx context.Context, c models.Customer) (models.Customer, error)
	// CreateReservation decrements the flight's seats and inserts the row
	// atomically, or returns ErrInsufficientSeats.
	CreateReservation(ctx context.Context, r models.Reservation) (models.Reservation, error)
	// CancelReservation flips an ACTIVE reservation to CANCELED and restores
	// its seats atomically, or returns ErrAlreadyCanceled.
	CancelReservation(ctx context.Context, id int) (models.Reservation, error)

	GetAllAirplanes(ctx context.Context) ([]models.Airplane, error)
	GetAllAirports(ctx context.Context) ([]models.Airport, error)
	GetAllFlights(ctx context.Context) ([]models.Flight, error)
	GetAllCustomers(ctx context.Context) ([]models.Customer, error)
	GetAllReservations(ctx context.Context) ([]models.Reservation, error)
	Search(ctx context.Context, filters models.SearchFilters) ([]models.Flight, error)
}
