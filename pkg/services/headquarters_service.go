package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"airline/pkg/apperror"
	"airline/pkg/logger"
	"airline/pkg/metrics"
	"airline/pkg/models"
	"airline/pkg/repository"
)

const (
	msgNoSearchFilters      = "No search filters were provided"
	msgAirplaneSeats        = "The number of seats on a plane may not be < 1"
	msgAirplaneType         = "The airplane type was not provided"
	msgAirportCodeMissing   = "The airport code was not provided"
	msgAirportCodeExists    = "The airport code provided already exists"
	msgNoFlight             = "No Flight information was provided"
	msgNoDepartureDate      = "No departure date was provided"
	msgDepartureDatePast    = "The departure date must be no earlier than tomorrow.  The provided date was %s."
	msgNoDepartureCode      = "No departing airport code was provided"
	msgDepartureCodeUnknown = "The provided departing airport code does not exist"
	msgNoDestinationCode    = "No destination airport code was provided"
	msgDestinationUnknown   = "The provided destination airport code does not exist"
	msgSameAirports         = "The destination and departure codes may not be the same"
	msgNegativeCost         = "The flight cost must be >= $0"
	msgAirplaneIDInvalid    = "The provided airplane Id is invalid.  The Id must be > 0"
	msgAirplaneIDUnknown    = "The provided airplane Id does not exist."
	msgNoCustomer           = "The provided Customer object was null."
	msgCustomerName         = "A name must be provided for the customer"
	msgCustomerAddress      = "An address must be provided for the customer"
	msgCustomerPhone        = "A phone number must be provided for the customer"
	msgCustomerIDExists     = "The provided Customer Id already exists"
	msgFlightIDInvalid      = "An invalid flight Id was provided, it must be >= 0"
	msgFlightIDUnknown      = "The provided flight Id does not exist"
	msgCustomerIDInvalid    = "An invalid Customer Id was provided, it must be >= 0"
	msgCustomerIDUnknown    = "The provided Customer Id does not exist"
	msgSeatCountInvalid     = "An invalid number of seats was provided, it must be >= 1"
	msgNotEnoughSeats       = "The flight does not have enough seats, it only has %d seats available"
	msgReservationIDInvalid = "An invalid reservation Id was provided, it must be >= 0"
	msgReservationIDUnknown = "The provided reservation Id does not exist"
	msgReservationCanceled  = "The reservation has already been canceled"
)

// FlightNotifier receives every successfully created flight.
type FlightNotifier interface {
	PublishFlightCreated(ctx context.Context, flight models.Flight) error
}

// TravelAgentService is the part of the engine exposed to travel agents.
type TravelAgentService interface {
	GetAllAirports(ctx context.Context) ([]models.Airport, error)
	Search(ctx context.Context, filters *models.SearchFilters) ([]models.Flight, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) (models.Customer, error)
	GetAllCustomers(ctx context.Context) ([]models.Customer, error)
	CreateReservation(ctx context.Context, flightID, customerID, numSeats int) (models.Reservation, error)
	GetReservation(ctx context.Context, reservationID int) (models.Reservation, error)
	CancelReservation(ctx context.Context, reservationID int) (models.Reservation, error)
}

// HeadquartersService is the full reservation engine. Every operation
// returns either its result, an *apperror.ValidationError listing every
// violated rule, or an *apperror.DataAccessError.
type HeadquartersService interface {
	TravelAgentService
	GetAllAirplanes(ctx context.Context) ([]models.Airplane, error)
	GetAllFlights(ctx context.Context) ([]models.Flight, error)
	GetAllReservations(ctx context.Context) ([]models.Reservation, error)
	CreateAirplane(ctx context.Context, numSeats int, planeType string) (models.Airplane, error)
	CreateAirport(ctx context.Context, code string) (models.Airport, error)
	CreateFlight(ctx context.Context, flight *models.Flight) (models.Flight, error)
}

type headquartersService struct {
	repo     repository.AirlineRepository
	notifier FlightNotifier
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*headquartersService)

func WithNotifier(n FlightNotifier) Option {
	return func(s *headquartersService) { s.notifier = n }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *headquartersService) { s.log = l.Named("headquarters") }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *headquartersService) { s.metrics = m }
}

// WithClock overrides the source of "today" used by the departure date rule.
func WithClock(now func() time.Time) Option {
	return func(s *headquartersService) { s.now = now }
}

func NewHeadquartersService(repo repository.AirlineRepository, opts ...Option) HeadquartersService {
	s := &headquartersService{
		repo: repo,
		log:  logger.NewNop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// observe records the outcome of op and hands err back unchanged.
func (s *headquartersService) observe(op string, err error) error {
	switch {
	case err == nil:
		s.metrics.Operation(op, metrics.OutcomeOK)
	case apperror.IsValidation(err):
		s.metrics.Operation(op, metrics.OutcomeInvalid)
		s.log.Debug("validation failed", logger.String("op", op), logger.Strings("errors", apperror.Messages(err)))
	default:
		s.metrics.Operation(op, metrics.OutcomeError)
		s.log.Error("storage failure", logger.String("op", op), logger.Error(err))
	}
	return err
}

// ---- Reads ----

func (s *headquartersService) GetAllAirplanes(ctx context.Context) ([]models.Airplane, error) {
	list, err := s.repo.GetAllAirplanes(ctx)
	return list, s.observe("get_all_airplanes", apperror.AsDataAccess("get airplanes", err))
}

func (s *headquartersService) GetAllAirports(ctx context.Context) ([]models.Airport, error) {
	list, err := s.repo.GetAllAirports(ctx)
	return list, s.observe("get_all_airports", apperror.AsDataAccess("get airports", err))
}

func (s *headquartersService) GetAllFlights(ctx context.Context) ([]models.Flight, error) {
	list, err := s.repo.GetAllFlights(ctx)
	return list, s.observe("get_all_flights", apperror.AsDataAccess("get flights", err))
}

func (s *headquartersService) GetAllCustomers(ctx context.Context) ([]models.Customer, error) {
	list, err := s.repo.GetAllCustomers(ctx)
	return list, s.observe("get_all_customers", apperror.AsDataAccess("get customers", err))
}

func (s *headquartersService) GetAllReservations(ctx context.Context) ([]models.Reservation, error) {
	list, err := s.repo.GetAllReservations(ctx)
	return list, s.observe("get_all_reservations", apperror.AsDataAccess("get reservations", err))
}

func (s *headquartersService) Search(ctx context.Context, filters *models.SearchFilters) ([]models.Flight, error) {
	if filters.IsEmpty() {
		return nil, s.observe("search", apperror.NewValidation(msgNoSearchFilters))
	}
	list, err := s.repo.Search(ctx, *filters)
	return list, s.observe("search", apperror.AsDataAccess("search flights", err))
}

// ---- Airplanes & airports ----

func (s *headquartersService) CreateAirplane(ctx context.Context, numSeats int, planeType string) (models.Airplane, error) {
	v := &apperror.ValidationError{}
	if numSeats < 1 {
		v.Add(msgAirplaneSeats)
	}
	planeType = strings.TrimSpace(planeType)
	if planeType == "" {
		v.Add(msgAirplaneType)
	}
	if err := v.Err(); err != nil {
		return models.Airplane{}, s.observe("create_airplane", err)
	}

	airplane, err := s.repo.CreateAirplane(ctx, models.Airplane{NumSeats: numSeats, PlaneType: planeType})
	if err != nil {
		return models.Airplane{}, s.observe("create_airplane", apperror.AsDataAccess("create airplane", err))
	}
	s.log.Info("airplane created", logger.Int("id", airplane.ID), logger.Int("seats", airplane.NumSeats))
	return airplane, s.observe("create_airplane", nil)
}

func (s *headquartersService) CreateAirport(ctx context.Context, code string) (models.Airport, error) {
	v := &apperror.ValidationError{}
	code = strings.TrimSpace(code)
	if code == "" {
		v.Add(msgAirportCodeMissing)
	} else {
		exists, err := s.repo.AirportExists(ctx, code)
		if err != nil {
			return models.Airport{}, s.observe("create_airport", apperror.AsDataAccess("airport exists", err))
		}
		if exists {
			v.Add(msgAirportCodeExists)
		}
	}
	if err := v.Err(); err != nil {
		return models.Airport{}, s.observe("create_airport", err)
	}

	airport, err := s.repo.CreateAirport(ctx, models.Airport{Code: code})
	if errors.Is(err, repository.ErrDuplicate) {
		return models.Airport{}, s.observe("create_airport", apperror.NewValidation(msgAirportCodeExists))
	}
	if err != nil {
		return models.Airport{}, s.observe("create_airport", apperror.AsDataAccess("create airport", err))
	}
	s.log.Info("airport created", logger.String("code", airport.Code))
	return airport, s.observe("create_airport", nil)
}

// ---- Flights ----

func (s *headquartersService) CreateFlight(ctx context.Context, flight *models.Flight) (models.Flight, error) {
	if flight == nil {
		return models.Flight{}, s.observe("create_flight", apperror.NewValidation(msgNoFlight))
	}

	v, err := s.validateFlight(ctx, flight)
	if err != nil {
		return models.Flight{}, s.observe("create_flight", err)
	}
	if err := v.Err(); err != nil {
		return models.Flight{}, s.observe("create_flight", err)
	}

	airplane, err := s.repo.GetAirplane(ctx, flight.AirplaneID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Flight{}, s.observe("create_flight", apperror.NewValidation(msgAirplaneIDUnknown))
	}
	if err != nil {
		return models.Flight{}, s.observe("create_flight", apperror.AsDataAccess("get airplane", err))
	}

	toStore := *flight
	toStore.ID = 0
	toStore.TotalSeats = airplane.NumSeats
	toStore.AvailableSeats = airplane.NumSeats

	created, err := s.repo.CreateFlight(ctx, toStore)
	if err != nil {
		return models.Flight{}, s.observe("create_flight", apperror.AsDataAccess("create flight", err))
	}
	s.log.Info("flight created",
		logger.Int("id", created.ID),
		logger.String("date", created.DisplayDate()),
		logger.String("from", created.DepartureAirportCode),
		logger.String("to", created.DestinationAirportCode),
	)

	s.notifyFlightCreated(ctx, created)
	return created, s.observe("create_flight", nil)
}

// validateFlight runs every flight rule. A non-nil error means storage failed
// while checking and the returned list is incomplete.
func (s *headquartersService) validateFlight(ctx context.Context, flight *models.Flight) (*apperror.ValidationError, error) {
	v := &apperror.ValidationError{}

	if flight.DepartureDate.IsZero() {
		v.Add(msgNoDepartureDate)
	} else if models.DateOnly(flight.DepartureDate).Before(models.DateOnly(s.now())) {
		v.Add(fmt.Sprintf(msgDepartureDatePast, flight.DisplayDate()))
	}

	departure := strings.TrimSpace(flight.DepartureAirportCode)
	if departure == "" {
		v.Add(msgNoDepartureCode)
	} else {
		exists, err := s.repo.AirportExists(ctx, departure)
		if err != nil {
			return nil, apperror.AsDataAccess("airport exists", err)
		}
		if !exists {
			v.Add(msgDepartureCodeUnknown)
		}
	}

	destination := strings.TrimSpace(flight.DestinationAirportCode)
	if destination == "" {
		v.Add(msgNoDestinationCode)
	} else {
		exists, err := s.repo.AirportExists(ctx, destination)
		if err != nil {
			return nil, apperror.AsDataAccess("airport exists", err)
		}
		if !exists {
			v.Add(msgDestinationUnknown)
		}
	}

	if departure != "" && destination != "" && strings.EqualFold(departure, destination) {
		v.Add(msgSameAirports)
	}

	if flight.Cost < 0 {
		v.Add(msgNegativeCost)
	}

	if flight.AirplaneID < 0 {
		v.Add(msgAirplaneIDInvalid)
	} else {
		exists, err := s.repo.AirplaneExists(ctx, flight.AirplaneID)
		if err != nil {
			return nil, apperror.AsDataAccess("airplane exists", err)
		}
		if !exists {
			v.Add(msgAirplaneIDUnknown)
		}
	}

	return v, nil
}

// notifyFlightCreated never fails the caller; the flight is already stored.
func (s *headquartersService) notifyFlightCreated(ctx context.Context, flight models.Flight) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishFlightCreated(ctx, flight); err != nil {
		s.metrics.NotificationFailed()
		s.log.Warn("flight notification failed", logger.Int("flight_id", flight.ID), logger.Error(err))
	}
}

// ---- Customers ----

func (s *headquartersService) CreateCustomer(ctx context.Context, customer *models.Customer) (models.Customer, error) {
	if customer == nil {
		return models.Customer{}, s.observe("create_customer", apperror.NewValidation(msgNoCustomer))
	}

	v := &apperror.ValidationError{}
	c := models.Customer{
		ID:      customer.ID,
		Name:    strings.TrimSpace(customer.Name),
		Address: strings.TrimSpace(customer.Address),
		Phone:   strings.TrimSpace(customer.Phone),
	}
	if c.Name == "" {
		v.Add(msgCustomerName)
	}
	if c.Address == "" {
		v.Add(msgCustomerAddress)
	}
	if c.Phone == "" {
		v.Add(msgCustomerPhone)
	}
	if c.ID < 0 {
		v.Add(msgCustomerIDInvalid)
	}
	if err := v.Err(); err != nil {
		return models.Customer{}, s.observe("create_customer", err)
	}

	created, err := s.repo.CreateCustomer(ctx, c)
	if errors.Is(err, repository.ErrDuplicate) {
		return models.Customer{}, s.observe("create_customer", apperror.NewValidation(msgCustomerIDExists))
	}
	if err != nil {
		return models.Customer{}, s.observe("create_customer", apperror.AsDataAccess("create customer", err))
	}
	s.log.Info("customer created", logger.Int("id", created.ID))
	return created, s.observe("create_customer", nil)
}

// ---- Reservations ----

func (s *headquartersService) CreateReservation(ctx context.Context, flightID, customerID, numSeats int) (models.Reservation, error) {
	v := &apperror.ValidationError{}
	flightFound := false

	if flightID < 0 {
		v.Add(msgFlightIDInvalid)
	} else {
		exists, err := s.repo.FlightExists(ctx, flightID)
		if err != nil {
			return models.Reservation{}, s.observe("create_reservation", apperror.AsDataAccess("flight exists", err))
		}
		if !exists {
			v.Add(msgFlightIDUnknown)
		}
		flightFound = exists
	}

	if customerID < 0 {
		v.Add(msgCustomerIDInvalid)
	} else {
		exists, err := s.repo.CustomerExists(ctx, customerID)
		if err != nil {
			return models.Reservation{}, s.observe("create_reservation", apperror.AsDataAccess("customer exists", err))
		}
		if !exists {
			v.Add(msgCustomerIDUnknown)
		}
	}

	if numSeats < 1 {
		v.Add(msgSeatCountInvalid)
	} else if flightFound {
		available, err := s.repo.GetAvailableSeats(ctx, flightID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return models.Reservation{}, s.observe("create_reservation", apperror.AsDataAccess("get available seats", err))
		}
		if available < numSeats {
			v.Add(fmt.Sprintf(msgNotEnoughSeats, available))
		}
	}

	if err := v.Err(); err != nil {
		return models.Reservation{}, s.observe("create_reservation", err)
	}

	res, err := s.repo.CreateReservation(ctx, models.Reservation{
		FlightID:   flightID,
		CustomerID: customerID,
		NumSeats:   numSeats,
	})
	switch {
	case errors.Is(err, repository.ErrInsufficientSeats):
		// Another reservation took the seats after validation.
		available, seatsErr := s.repo.GetAvailableSeats(ctx, flightID)
		if seatsErr != nil {
			return models.Reservation{}, s.observe("create_reservation", apperror.AsDataAccess("get available seats", seatsErr))
		}
		return models.Reservation{}, s.observe("create_reservation", apperror.NewValidation(fmt.Sprintf(msgNotEnoughSeats, available)))
	case errors.Is(err, repository.ErrNotFound):
		return models.Reservation{}, s.observe("create_reservation", apperror.NewValidation(msgFlightIDUnknown))
	case err != nil:
		return models.Reservation{}, s.observe("create_reservation", apperror.AsDataAccess("create reservation", err))
	}

	s.metrics.SeatsReserved(res.NumSeats)
	s.log.Info("reservation created",
		logger.Int("id", res.ID),
		logger.Int("flight_id", res.FlightID),
		logger.Int("customer_id", res.CustomerID),
		logger.Int("seats", res.NumSeats),
	)
	return res, s.observe("create_reservation", nil)
}

// validateReservationID appends the id rules shared by cancel and lookup.
func (s *headquartersService) validateReservationID(ctx context.Context, v *apperror.ValidationError, id int) error {
	if id < 0 {
		v.Add(msgReservationIDInvalid)
		return nil
	}
	exists, err := s.repo.ReservationExists(ctx, id)
	if err != nil {
		return apperror.AsDataAccess("reservation exists", err)
	}
	if !exists {
		v.Add(msgReservationIDUnknown)
	}
	return nil
}

func (s *headquartersService) GetReservation(ctx context.Context, reservationID int) (models.Reservation, error) {
	v := &apperror.ValidationError{}
	if err := s.validateReservationID(ctx, v, reservationID); err != nil {
		return models.Reservation{}, s.observe("get_reservation", err)
	}
	if err := v.Err(); err != nil {
		return models.Reservation{}, s.observe("get_reservation", err)
	}

	res, err := s.repo.GetReservation(ctx, reservationID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Reservation{}, s.observe("get_reservation", apperror.NewValidation(msgReservationIDUnknown))
	}
	if err != nil {
		return models.Reservation{}, s.observe("get_reservation", apperror.AsDataAccess("get reservation", err))
	}
	return res, s.observe("get_reservation", nil)
}

func (s *headquartersService) CancelReservation(ctx context.Context, reservationID int) (models.Reservation, error) {
	v := &apperror.ValidationError{}
	if err := s.validateReservationID(ctx, v, reservationID); err != nil {
		return models.Reservation{}, s.observe("cancel_reservation", err)
	}

	// The status rule runs even when the id rules already failed.
	stored, err := s.repo.GetReservation(ctx, reservationID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return models.Reservation{}, s.observe("cancel_reservation", apperror.AsDataAccess("get reservation", err))
	case stored.Status.IsCanceled():
		v.Add(msgReservationCanceled)
	}

	if err := v.Err(); err != nil {
		return models.Reservation{}, s.observe("cancel_reservation", err)
	}

	res, err := s.repo.CancelReservation(ctx, reservationID)
	switch {
	case errors.Is(err, repository.ErrAlreadyCanceled):
		return models.Reservation{}, s.observe("cancel_reservation", apperror.NewValidation(msgReservationCanceled))
	case errors.Is(err, repository.ErrNotFound):
		return models.Reservation{}, s.observe("cancel_reservation", apperror.NewValidation(msgReservationIDUnknown))
	case err != nil:
		return models.Reservation{}, s.observe("cancel_reservation", apperror.AsDataAccess("cancel reservation", err))
	}

	s.metrics.SeatsReleased(res.NumSeats)
	s.log.Info("reservation canceled", logger.Int("id", res.ID), logger.Int("flight_id", res.FlightID), logger.Int("seats", res.NumSeats))
	return res, s.observe("cancel_reservation", nil)
}
