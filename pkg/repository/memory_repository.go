package repository

import (
	"context"
	"sort"
	"sync"

	"airline/pkg/models"
)

type memoryRepository struct {
	mu sync.RWMutex

	airplanes    map[int]models.Airplane
	airports     map[string]models.Airport
	flights      map[int]models.Flight
	customers    map[int]models.Customer
	reservations map[int]models.Reservation

	nextAirplane    int
	nextFlight      int
	nextCustomer    int
	nextReservation int
}

// NewMemoryRepository returns a process-local store. A single mutex guards all
// state, which makes seat updates serializable.
func NewMemoryRepository() AirlineRepository {
	return &memoryRepository{
		airplanes:    make(map[int]models.Airplane),
		airports:     make(map[string]models.Airport),
		flights:      make(map[int]models.Flight),
		customers:    make(map[int]models.Customer),
		reservations: make(map[int]models.Reservation),
	}
}

func (r *memoryRepository) AirportExists(ctx context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.airports[models.NormalizeAirportCode(code)]
	return ok, nil
}

func (r *memoryRepository) AirplaneExists(ctx context.Context, id int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.airplanes[id]
	return ok, nil
}

func (r *memoryRepository) FlightExists(ctx context.Context, id int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.flights[id]
	return ok, nil
}

func (r *memoryRepository) CustomerExists(ctx context.Context, id int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.customers[id]
	return ok, nil
}

func (r *memoryRepository) ReservationExists(ctx context.Context, id int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.reservations[id]
	return ok, nil
}

func (r *memoryRepository) GetAirplane(ctx context.Context, id int) (models.Airplane, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.airplanes[id]
	if !ok {
		return models.Airplane{}, ErrNotFound
	}
	return a, nil
}

func (r *memoryRepository) GetAvailableSeats(ctx context.Context, flightID int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flights[flightID]
	if !ok {
		return 0, ErrNotFound
	}
	return f.AvailableSeats, nil
}

func (r *memoryRepository) GetReservation(ctx context.Context, id int) (models.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.reservations[id]
	if !ok {
		return models.Reservation{}, ErrNotFound
	}
	return res, nil
}

func (r *memoryRepository) CreateAirplane(ctx context.Context, a models.Airplane) (models.Airplane, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextAirplane++
	a.ID = r.nextAirplane
	r.airplanes[a.ID] = a
	return a, nil
}

func (r *memoryRepository) CreateAirport(ctx context.Context, a models.Airport) (models.Airport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.Code = models.NormalizeAirportCode(a.Code)
	if _, ok := r.airports[a.Code]; ok {
		return models.Airport{}, ErrDuplicate
	}
	r.airports[a.Code] = a
	return a, nil
}

func (r *memoryRepository) CreateFlight(ctx context.Context, f models.Flight) (models.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextFlight++
	f.ID = r.nextFlight
	f.DepartureAirportCode = models.NormalizeAirportCode(f.DepartureAirportCode)
	f.DestinationAirportCode = models.NormalizeAirportCode(f.DestinationAirportCode)
	f.DepartureDate = models.DateOnly(f.DepartureDate)
	r.flights[f.ID] = f
	return f, nil
}

func (r *memoryRepository) CreateCustomer(ctx context.Context, c models.Customer) (models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID > 0 {
		if _, ok := r.customers[c.ID]; ok {
			return models.Customer{}, ErrDuplicate
		}
		if c.ID > r.nextCustomer {
			r.nextCustomer = c.ID
		}
	} else {
		r.nextCustomer++
		c.ID = r.nextCustomer
	}
	r.customers[c.ID] = c
	return c, nil
}

func (r *memoryRepository) CreateReservation(ctx context.Context, res models.Reservation) (models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[res.FlightID]
	if !ok {
		return models.Reservation{}, ErrNotFound
	}
	if f.AvailableSeats < res.NumSeats {
		return models.Reservation{}, ErrInsufficientSeats
	}
	f.AvailableSeats -= res.NumSeats
	r.flights[f.ID] = f

	r.nextReservation++
	res.ID = r.nextReservation
	res.Status = models.StatusActive
	r.reservations[res.ID] = res
	return res, nil
}

func (r *memoryRepository) CancelReservation(ctx context.Context, id int) (models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return models.Reservation{}, ErrNotFound
	}
	if res.Status.IsCanceled() {
		return models.Reservation{}, ErrAlreadyCanceled
	}
	res.Status = models.StatusCanceled
	r.reservations[id] = res

	if f, ok := r.flights[res.FlightID]; ok {
		f.AvailableSeats += res.NumSeats
		if f.AvailableSeats > f.TotalSeats {
			f.AvailableSeats = f.TotalSeats
		}
		r.flights[f.ID] = f
	}
	return res, nil
}

func (r *memoryRepository) GetAllAirplanes(ctx context.Context) ([]models.Airplane, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]models.Airplane, 0, len(r.airplanes))
	for _, a := range r.airplanes {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *memoryRepository) GetAllAirports(ctx context.Context) ([]models.Airport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]models.Airport, 0, len(r.airports))
	for _, a := range r.airports {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

func (r *memoryRepository) GetAllFlights(ctx context.Context) ([]models.Flight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]models.Flight, 0, len(r.flights))
	for _, f := range r.flights {
		list = append(list, f)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *memoryRepository) GetAllCustomers(ctx context.Context) ([]models.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]models.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *memoryRepository) GetAllReservations(ctx context.Context) ([]models.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]models.Reservation, 0, len(r.reservations))
	for _, res := range r.reservations {
		list = append(list, res)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *memoryRepository) Search(ctx context.Context, filters models.SearchFilters) ([]models.Flight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]models.Flight, 0)
	for _, f := range r.flights {
		if filters.Matches(f) {
			list = append(list, f)
		}
	}
	SortFlights(list)
	return list, nil
}

// SortFlights orders by departure code, then destination code, then date and id.
func SortFlights(list []models.Flight) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.DepartureAirportCode != b.DepartureAirportCode {
			return a.DepartureAirportCode < b.DepartureAirportCode
		}
		if a.DestinationAirportCode != b.DestinationAirportCode {
			return a.DestinationAirportCode < b.DestinationAirportCode
		}
		if !a.DepartureDate.Equal(b.DepartureDate) {
			return a.DepartureDate.Before(b.DepartureDate)
		}
		return a.ID < b.ID
	})
}
