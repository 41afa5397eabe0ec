package models

const (
	RoleHQ    = "hq"
	RoleAgent = "agent"
)

type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
	ExpiresIn   int    `json:"expires_in"`
}

// CanAct reports whether a caller holding role may use an endpoint that
// requires required. Headquarters may do anything an agent can.
func CanAct(role, required string) bool {
	if role == RoleHQ {
		return true
	}
	return role == required
}

// Wire payloads for the HTTP API.

type CreateAirplaneRequest struct {
	NumSeats  int    `json:"num_seats"`
	PlaneType string `json:"plane_type"`
}

type CreateAirportRequest struct {
	Code string `json:"code"`
}

type CreateFlightRequest struct {
	DepartureDate          string  `json:"departure_date"`
	DepartureAirportCode   string  `json:"departure_airport_code"`
	DestinationAirportCode string  `json:"destination_airport_code"`
	Cost                   float64 `json:"cost"`
	AirplaneID             int     `json:"airplane_id"`
}

type CreateReservationRequest struct {
	FlightID   int `json:"flight_id"`
	CustomerID int `json:"customer_id"`
	NumSeats   int `json:"num_seats"`
}
