package handlers

import (
	"fmt"
	"strings"
	"time"

	"airline/pkg/logger"
	"airline/pkg/middleware"
	"airline/pkg/models"
	"airline/pkg/services"

	"github.com/gofiber/fiber/v2"
)

const (
	msgMalformedBody = "The request body is not valid JSON"
	msgMalformedID   = "The id in the path must be an integer"
	msgMalformedDate = "Dates must be formatted as YYYY-MM-DD, got %q"
)

type AirlineHandler struct {
	svc services.HeadquartersService
	log *logger.Logger
}

func NewAirline(svc services.HeadquartersService, log *logger.Logger) *AirlineHandler {
	return &AirlineHandler{svc: svc, log: log.Named("http")}
}

// Register mounts the airline routes on r behind bearer-token auth.
func (h *AirlineHandler) Register(r fiber.Router, parser middleware.TokenParser) {
	auth := middleware.Auth(parser)
	hq := middleware.RequireRole(models.RoleHQ)
	agent := middleware.RequireRole(models.RoleAgent)

	r.Get("/airplanes", auth, hq, h.ListAirplanes)
	r.Post("/airplanes", auth, hq, h.CreateAirplane)

	r.Get("/airports", auth, agent, h.ListAirports)
	r.Post("/airports", auth, hq, h.CreateAirport)

	r.Get("/flights/search", auth, agent, h.SearchFlights)
	r.Get("/flights", auth, hq, h.ListFlights)
	r.Post("/flights", auth, hq, h.CreateFlight)

	r.Get("/customers", auth, agent, h.ListCustomers)
	r.Post("/customers", auth, agent, h.CreateCustomer)

	r.Get("/reservations", auth, hq, h.ListReservations)
	r.Post("/reservations", auth, agent, h.CreateReservation)
	r.Get("/reservations/:id", auth, agent, h.GetReservation)
	r.Post("/reservations/:id/cancel", auth, agent, h.CancelReservation)
}

// GET /airplanes
func (h *AirlineHandler) ListAirplanes(c *fiber.Ctx) error {
	list, err := h.svc.GetAllAirplanes(c.UserContext())
	return respond(c, h.log, fiber.StatusOK, list, err)
}

// POST /airplanes
func (h *AirlineHandler) CreateAirplane(c *fiber.Ctx) error {
	var req models.CreateAirplaneRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, msgMalformedBody)
	}
	airplane, err := h.svc.CreateAirplane(c.UserContext(), req.NumSeats, req.PlaneType)
	return respond(c, h.log, fiber.StatusCreated, airplane, err)
}

// GET /airports
func (h *AirlineHandler) ListAirports(c *fiber.Ctx) error {
	list, err := h.svc.GetAllAirports(c.UserContext())
	return respond(c, h.log, fiber.StatusOK, list, err)
}

// POST /airports
func (h *AirlineHandler) CreateAirport(c *fiber.Ctx) error {
	var req models.CreateAirportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, msgMalformedBody)
	}
	airport, err := h.svc.CreateAirport(c.UserContext(), req.Code)
	return respond(c, h.log, fiber.StatusCreated, airport, err)
}

// GET /flights
func (h *AirlineHandler) ListFlights(c *fiber.Ctx) error {
	list, err := h.svc.GetAllFlights(c.UserContext())
	return respond(c, h.log, fiber.StatusOK, list, err)
}

// POST /flights
func (h *AirlineHandler) CreateFlight(c *fiber.Ctx) error {
	var req models.CreateFlightRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, msgMalformedBody)
	}

	flight := models.Flight{
		DepartureAirportCode:   req.DepartureAirportCode,
		DestinationAirportCode: req.DestinationAirportCode,
		Cost:                   req.Cost,
		AirplaneID:             req.AirplaneID,
	}
	if req.DepartureDate != "" {
		day, err := parseDay(req.DepartureDate)
		if err != nil {
			return badRequest(c, err.Error())
		}
		flight.DepartureDate = day
	}

	created, err := h.svc.CreateFlight(c.UserContext(), &flight)
	return respond(c, h.log, fiber.StatusCreated, created, err)
}

// GET /flights/search?departure=&destination=&from=&to=
func (h *AirlineHandler) SearchFlights(c *fiber.Ctx) error {
	filters := models.SearchFilters{
		DepartureAirportCode:   c.Query("departure"),
		DestinationAirportCode: c.Query("destination"),
	}
	for _, p := range []struct {
		key string
		dst **time.Time
	}{
		{"from", &filters.DepartureDateFrom},
		{"to", &filters.DepartureDateTo},
	} {
		raw := strings.TrimSpace(c.Query(p.key))
		if raw == "" {
			continue
		}
		day, err := parseDay(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		*p.dst = &day
	}

	list, err := h.svc.Search(c.UserContext(), &filters)
	return respond(c, h.log, fiber.StatusOK, list, err)
}

// GET /customers
func (h *AirlineHandler) ListCustomers(c *fiber.Ctx) error {
	list, err := h.svc.GetAllCustomers(c.UserContext())
	return respond(c, h.log, fiber.StatusOK, list, err)
}

// POST /customers
func (h *AirlineHandler) CreateCustomer(c *fiber.Ctx) error {
	var req models.Customer
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, msgMalformedBody)
	}
	customer, err := h.svc.CreateCustomer(c.UserContext(), &req)
	return respond(c, h.log, fiber.StatusCreated, customer, err)
}

// GET /reservations
func (h *AirlineHandler) ListReservations(c *fiber.Ctx) error {
	list, err := h.svc.GetAllReservations(c.UserContext())
	return respond(c, h.log, fiber.StatusOK, list, err)
}

// POST /reservations
func (h *AirlineHandler) CreateReservation(c *fiber.Ctx) error {
	var req models.CreateReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, msgMalformedBody)
	}
	reservation, err := h.svc.CreateReservation(c.UserContext(), req.FlightID, req.CustomerID, req.NumSeats)
	return respond(c, h.log, fiber.StatusCreated, reservation, err)
}

// GET /reservations/:id
func (h *AirlineHandler) GetReservation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, msgMalformedID)
	}
	reservation, err := h.svc.GetReservation(c.UserContext(), id)
	return respond(c, h.log, fiber.StatusOK, reservation, err)
}

// POST /reservations/:id/cancel
func (h *AirlineHandler) CancelReservation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, msgMalformedID)
	}
	reservation, err := h.svc.CancelReservation(c.UserContext(), id)
	return respond(c, h.log, fiber.StatusOK, reservation, err)
}

func parseDay(raw string) (time.Time, error) {
	day, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf(msgMalformedDate, raw)
	}
	return day, nil
}
