package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"airline/pkg/apperror"
	"airline/pkg/metrics"
	"airline/pkg/models"
	"airline/pkg/repository"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2030, 3, 15, 13, 45, 0, 0, time.UTC)

func fixedClock() time.Time { return today }

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) PublishFlightCreated(ctx context.Context, flight models.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

// failingRepo reports a storage failure from the methods a test overrides.
type failingRepo struct {
	repository.AirlineRepository
	err error
}

func (r *failingRepo) GetAllFlights(ctx context.Context) ([]models.Flight, error) {
	return nil, r.err
}

func (r *failingRepo) AirportExists(ctx context.Context, code string) (bool, error) {
	return false, r.err
}

func (r *failingRepo) ReservationExists(ctx context.Context, id int) (bool, error) {
	return false, r.err
}

type fixture struct {
	svc  HeadquartersService
	repo repository.AirlineRepository
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	repo := repository.NewMemoryRepository()
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	return fixture{svc: NewHeadquartersService(repo, opts...), repo: repo}
}

// seedRoute creates SFO, JFK and a plane with the given capacity.
func (f fixture) seedRoute(t *testing.T, seats int) models.Airplane {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.CreateAirport(ctx, "SFO")
	require.NoError(t, err)
	_, err = f.svc.CreateAirport(ctx, "JFK")
	require.NoError(t, err)
	plane, err := f.svc.CreateAirplane(ctx, seats, "B737")
	require.NoError(t, err)
	return plane
}

func (f fixture) seedFlight(t *testing.T, seats int) models.Flight {
	t.Helper()
	plane := f.seedRoute(t, seats)
	flight, err := f.svc.CreateFlight(context.Background(), &models.Flight{
		DepartureDate:          today.AddDate(0, 0, 7),
		DepartureAirportCode:   "SFO",
		DestinationAirportCode: "JFK",
		Cost:                   300,
		AirplaneID:             plane.ID,
	})
	require.NoError(t, err)
	return flight
}

func (f fixture) seedCustomer(t *testing.T) models.Customer {
	t.Helper()
	c, err := f.svc.CreateCustomer(context.Background(), &models.Customer{Name: "Ada", Address: "1 Main St", Phone: "555-0100"})
	require.NoError(t, err)
	return c
}

func TestCreateAirplane(t *testing.T) {
	tests := []struct {
		name      string
		seats     int
		planeType string
		want      []string
	}{
		{"valid", 1, "A320", nil},
		{"zero seats", 0, "A320", []string{msgAirplaneSeats}},
		{"negative seats", -4, "A320", []string{msgAirplaneSeats}},
		{"blank type", 100, "   ", []string{msgAirplaneType}},
		{"both invalid", 0, "", []string{msgAirplaneSeats, msgAirplaneType}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			plane, err := f.svc.CreateAirplane(context.Background(), tt.seats, tt.planeType)
			if tt.want == nil {
				require.NoError(t, err)
				assert.Positive(t, plane.ID)
				assert.Equal(t, tt.seats, plane.NumSeats)
				return
			}
			require.True(t, apperror.IsValidation(err))
			assert.Equal(t, tt.want, apperror.Messages(err))

			all, err := f.svc.GetAllAirplanes(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestCreateAirport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateAirport(ctx, "")
	assert.Equal(t, []string{msgAirportCodeMissing}, apperror.Messages(err))

	_, err = f.svc.CreateAirport(ctx, "  ")
	assert.Equal(t, []string{msgAirportCodeMissing}, apperror.Messages(err))

	created, err := f.svc.CreateAirport(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "NEW", created.Code)

	for _, dup := range []string{"NEW", "new", " New "} {
		_, err = f.svc.CreateAirport(ctx, dup)
		assert.Equal(t, []string{msgAirportCodeExists}, apperror.Messages(err), dup)
	}

	all, err := f.svc.GetAllAirports(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Airport{{Code: "NEW"}}, all)
}

func TestCreateFlight_Nil(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateFlight(context.Background(), nil)
	assert.Equal(t, []string{msgNoFlight}, apperror.Messages(err))
}

func TestCreateFlight_AggregatesViolations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedRoute(t, 100)

	past := time.Date(2030, 3, 14, 23, 0, 0, 0, time.UTC)
	_, err := f.svc.CreateFlight(ctx, &models.Flight{
		DepartureDate:          past,
		DepartureAirportCode:   "ord",
		DestinationAirportCode: "ORD",
		Cost:                   -1,
		AirplaneID:             -1,
	})

	require.True(t, apperror.IsValidation(err))
	assert.Equal(t, []string{
		"The departure date must be no earlier than tomorrow.  The provided date was 03/14/2030.",
		msgDepartureCodeUnknown,
		msgDestinationUnknown,
		msgSameAirports,
		msgNegativeCost,
		msgAirplaneIDInvalid,
	}, apperror.Messages(err))

	flights, err := f.svc.GetAllFlights(ctx)
	require.NoError(t, err)
	assert.Empty(t, flights)
}

func TestCreateFlight_MissingFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateFlight(context.Background(), &models.Flight{AirplaneID: 99})

	assert.Equal(t, []string{
		msgNoDepartureDate,
		msgNoDepartureCode,
		msgNoDestinationCode,
		msgAirplaneIDUnknown,
	}, apperror.Messages(err))
}

func TestCreateFlight_TodayIsAccepted(t *testing.T) {
	ctx := context.Background()
	notifier := &mockNotifier{}
	f := newFixture(t, WithNotifier(notifier))
	plane := f.seedRoute(t, 180)

	notifier.On("PublishFlightCreated", mock.Anything, mock.AnythingOfType("models.Flight")).Return(nil).Once()

	created, err := f.svc.CreateFlight(ctx, &models.Flight{
		DepartureDate:          time.Date(2030, 3, 15, 0, 5, 0, 0, time.UTC),
		DepartureAirportCode:   "sfo",
		DestinationAirportCode: "jfk",
		Cost:                   0,
		AirplaneID:             plane.ID,
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, 180, created.TotalSeats)
	assert.Equal(t, 180, created.AvailableSeats)
	assert.Equal(t, "SFO", created.DepartureAirportCode)
	notifier.AssertExpectations(t)

	flights, err := f.svc.GetAllFlights(ctx)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, created.ID, flights[0].ID)
	assert.Equal(t, flights[0].TotalSeats, flights[0].AvailableSeats)

	found, err := f.svc.Search(ctx, &models.SearchFilters{DepartureAirportCode: "SFO"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)
}

func TestCreateFlight_NotificationFailureIsSwallowed(t *testing.T) {
	notifier := &mockNotifier{}
	m := metrics.New()
	f := newFixture(t, WithNotifier(notifier), WithMetrics(m))
	plane := f.seedRoute(t, 50)

	notifier.On("PublishFlightCreated", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	created, err := f.svc.CreateFlight(context.Background(), &models.Flight{
		DepartureDate:          today.AddDate(0, 1, 0),
		DepartureAirportCode:   "SFO",
		DestinationAirportCode: "JFK",
		Cost:                   99.99,
		AirplaneID:             plane.ID,
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	notifier.AssertNumberOfCalls(t, "PublishFlightCreated", 1)

	expected := `
# HELP airline_notifications_failed_total Flight-created notifications that could not be published.
# TYPE airline_notifications_failed_total counter
airline_notifications_failed_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "airline_notifications_failed_total"))

	exists, err := f.repo.FlightExists(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateFlight_NotifierReceivesStoredFlight(t *testing.T) {
	notifier := &mockNotifier{}
	f := newFixture(t, WithNotifier(notifier))
	plane := f.seedRoute(t, 20)

	var published models.Flight
	notifier.On("PublishFlightCreated", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(1).(models.Flight) }).
		Return(nil)

	created, err := f.svc.CreateFlight(context.Background(), &models.Flight{
		DepartureDate:          today.AddDate(0, 0, 1),
		DepartureAirportCode:   "SFO",
		DestinationAirportCode: "JFK",
		Cost:                   10,
		AirplaneID:             plane.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, created, published)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Search(ctx, nil)
	assert.Equal(t, []string{msgNoSearchFilters}, apperror.Messages(err))

	_, err = f.svc.Search(ctx, &models.SearchFilters{DepartureAirportCode: " "})
	assert.Equal(t, []string{msgNoSearchFilters}, apperror.Messages(err))

	flights, err := f.svc.Search(ctx, &models.SearchFilters{DestinationAirportCode: "XXX"})
	require.NoError(t, err)
	assert.Empty(t, flights)
}

func TestSearch_OrderedByRoute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, code := range []string{"SFO", "JFK", "LAX", "ATL"} {
		_, err := f.svc.CreateAirport(ctx, code)
		require.NoError(t, err)
	}
	plane, err := f.svc.CreateAirplane(ctx, 10, "CRJ")
	require.NoError(t, err)

	date := today.AddDate(0, 0, 3)
	for _, route := range [][2]string{{"SFO", "LAX"}, {"ATL", "SFO"}, {"SFO", "ATL"}, {"JFK", "LAX"}} {
		_, err := f.svc.CreateFlight(ctx, &models.Flight{
			DepartureDate:          date,
			DepartureAirportCode:   route[0],
			DestinationAirportCode: route[1],
			AirplaneID:             plane.ID,
		})
		require.NoError(t, err)
	}

	from := date
	got, err := f.svc.Search(ctx, &models.SearchFilters{DepartureDateFrom: &from})
	require.NoError(t, err)

	var routes [][2]string
	for _, fl := range got {
		routes = append(routes, [2]string{fl.DepartureAirportCode, fl.DestinationAirportCode})
	}
	assert.Equal(t, [][2]string{{"ATL", "SFO"}, {"JFK", "LAX"}, {"SFO", "ATL"}, {"SFO", "LAX"}}, routes)
}

func TestCreateCustomer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		customer *models.Customer
		want     []string
	}{
		{"nil", nil, []string{msgNoCustomer}},
		{"all blank", &models.Customer{Name: " ", Address: "", Phone: "\t"}, []string{msgCustomerName, msgCustomerAddress, msgCustomerPhone}},
		{"missing phone", &models.Customer{Name: "Ada", Address: "1 Main"}, []string{msgCustomerPhone}},
		{"negative id", &models.Customer{ID: -3, Name: "Ada", Address: "1 Main", Phone: "555"}, []string{msgCustomerIDInvalid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateCustomer(ctx, tt.customer)
			assert.Equal(t, tt.want, apperror.Messages(err))
		})
	}

	t.Run("assigned and explicit ids", func(t *testing.T) {
		f := newFixture(t)
		assigned, err := f.svc.CreateCustomer(ctx, &models.Customer{Name: " Ada ", Address: "1 Main", Phone: "555"})
		require.NoError(t, err)
		assert.Equal(t, 1, assigned.ID)
		assert.Equal(t, "Ada", assigned.Name)

		explicit, err := f.svc.CreateCustomer(ctx, &models.Customer{ID: 40, Name: "Bo", Address: "2 Main", Phone: "556"})
		require.NoError(t, err)
		assert.Equal(t, 40, explicit.ID)

		_, err = f.svc.CreateCustomer(ctx, &models.Customer{ID: 40, Name: "Cy", Address: "3 Main", Phone: "557"})
		assert.Equal(t, []string{msgCustomerIDExists}, apperror.Messages(err))

		all, err := f.svc.GetAllCustomers(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestCreateReservation_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	flight := f.seedFlight(t, 3)
	customer := f.seedCustomer(t)

	tests := []struct {
		name       string
		flightID   int
		customerID int
		seats      int
		want       []string
	}{
		{"all negative", -1, -1, 0, []string{msgFlightIDInvalid, msgCustomerIDInvalid, msgSeatCountInvalid}},
		{"unknown ids", 500, 600, 1, []string{msgFlightIDUnknown, msgCustomerIDUnknown}},
		{"unknown customer", flight.ID, 600, 2, []string{msgCustomerIDUnknown}},
		{"too many seats", flight.ID, customer.ID, 4, []string{"The flight does not have enough seats, it only has 3 seats available"}},
		{"zero seats skips availability", flight.ID, customer.ID, 0, []string{msgSeatCountInvalid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateReservation(ctx, tt.flightID, tt.customerID, tt.seats)
			require.True(t, apperror.IsValidation(err))
			assert.Equal(t, tt.want, apperror.Messages(err))
		})
	}

	seats, err := f.repo.GetAvailableSeats(ctx, flight.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, seats)
}

func TestCreateReservation_ExactCapacity(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	f := newFixture(t, WithMetrics(m))
	flight := f.seedFlight(t, 4)
	customer := f.seedCustomer(t)

	res, err := f.svc.CreateReservation(ctx, flight.ID, customer.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, res.Status)
	assert.Equal(t, 4, res.NumSeats)

	seats, err := f.repo.GetAvailableSeats(ctx, flight.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, seats)

	_, err = f.svc.CreateReservation(ctx, flight.ID, customer.ID, 1)
	assert.Equal(t, []string{"The flight does not have enough seats, it only has 0 seats available"}, apperror.Messages(err))

	expected := `
# HELP airline_seats_reserved_total Seats taken by successful reservations.
# TYPE airline_seats_reserved_total counter
airline_seats_reserved_total 4
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "airline_seats_reserved_total"))
}

func TestCreateReservation_ConcurrentRequestsNeverOversell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	flight := f.seedFlight(t, 5)
	customer := f.seedCustomer(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, rejected int
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateReservation(ctx, flight.ID, customer.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperror.IsValidation(err) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 15, rejected)
}

func TestCancelReservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	flight := f.seedFlight(t, 6)
	customer := f.seedCustomer(t)

	res, err := f.svc.CreateReservation(ctx, flight.ID, customer.ID, 2)
	require.NoError(t, err)

	canceled, err := f.svc.CancelReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, canceled.Status)

	seats, err := f.repo.GetAvailableSeats(ctx, flight.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, seats)

	_, err = f.svc.CancelReservation(ctx, res.ID)
	assert.Equal(t, []string{msgReservationCanceled}, apperror.Messages(err))

	seats, err = f.repo.GetAvailableSeats(ctx, flight.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, seats)

	_, err = f.svc.CancelReservation(ctx, -1)
	assert.Equal(t, []string{msgReservationIDInvalid}, apperror.Messages(err))

	_, err = f.svc.CancelReservation(ctx, 999)
	assert.Equal(t, []string{msgReservationIDUnknown}, apperror.Messages(err))
}

func TestGetReservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	flight := f.seedFlight(t, 6)
	customer := f.seedCustomer(t)

	res, err := f.svc.CreateReservation(ctx, flight.ID, customer.ID, 1)
	require.NoError(t, err)

	got, err := f.svc.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res, got)

	_, err = f.svc.GetReservation(ctx, -5)
	assert.Equal(t, []string{msgReservationIDInvalid}, apperror.Messages(err))

	_, err = f.svc.GetReservation(ctx, 77)
	assert.Equal(t, []string{msgReservationIDUnknown}, apperror.Messages(err))

	all, err := f.svc.GetAllReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Reservation{res}, all)
}

func TestDataAccessErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("connection reset")
	svc := NewHeadquartersService(&failingRepo{AirlineRepository: repository.NewMemoryRepository(), err: cause}, WithClock(fixedClock))

	_, err := svc.GetAllFlights(ctx)
	assert.True(t, apperror.IsDataAccess(err))
	assert.ErrorIs(t, err, cause)

	_, err = svc.CreateAirport(ctx, "SFO")
	assert.True(t, apperror.IsDataAccess(err))
	assert.False(t, apperror.IsValidation(err))

	_, err = svc.CancelReservation(ctx, 1)
	assert.True(t, apperror.IsDataAccess(err))

	// Blank codes never reach storage, so validation wins.
	_, err = svc.CreateAirport(ctx, "")
	assert.Equal(t, []string{msgAirportCodeMissing}, apperror.Messages(err))
}
