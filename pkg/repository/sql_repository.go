package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"airline/pkg/apperror"
	"airline/pkg/models"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type sqlRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLRepository stores entities in db. Queries are written with `?`
// placeholders and rebound for Postgres.
func NewSQLRepository(db *sql.DB, dialect Dialect) AirlineRepository {
	return &sqlRepository{db: db, dialect: dialect}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *sqlRepository) q(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func isDuplicate(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

func (r *sqlRepository) exists(ctx context.Context, db querier, op, query string, arg any) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, r.q(query), arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperror.NewDataAccess(op, err)
	}
	return true, nil
}

func (r *sqlRepository) AirportExists(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, r.db, "airport exists", `SELECT 1 FROM airports WHERE code = ?`, models.NormalizeAirportCode(code))
}

func (r *sqlRepository) AirplaneExists(ctx context.Context, id int) (bool, error) {
	return r.exists(ctx, r.db, "airplane exists", `SELECT 1 FROM airplanes WHERE id = ?`, id)
}

func (r *sqlRepository) FlightExists(ctx context.Context, id int) (bool, error) {
	return r.exists(ctx, r.db, "flight exists", `SELECT 1 FROM flights WHERE id = ?`, id)
}

func (r *sqlRepository) CustomerExists(ctx context.Context, id int) (bool, error) {
	return r.exists(ctx, r.db, "customer exists", `SELECT 1 FROM customers WHERE id = ?`, id)
}

func (r *sqlRepository) ReservationExists(ctx context.Context, id int) (bool, error) {
	return r.exists(ctx, r.db, "reservation exists", `SELECT 1 FROM reservations WHERE id = ?`, id)
}

func (r *sqlRepository) GetAirplane(ctx context.Context, id int) (models.Airplane, error) {
	var a models.Airplane
	err := r.db.QueryRowContext(ctx, r.q(`SELECT id, num_seats, plane_type FROM airplanes WHERE id = ?`), id).
		Scan(&a.ID, &a.NumSeats, &a.PlaneType)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Airplane{}, ErrNotFound
	}
	if err != nil {
		return models.Airplane{}, apperror.NewDataAccess("get airplane", err)
	}
	return a, nil
}

func (r *sqlRepository) GetAvailableSeats(ctx context.Context, flightID int) (int, error) {
	var seats int
	err := r.db.QueryRowContext(ctx, r.q(`SELECT available_seats FROM flights WHERE id = ?`), flightID).Scan(&seats)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, apperror.NewDataAccess("get available seats", err)
	}
	return seats, nil
}

func (r *sqlRepository) GetReservation(ctx context.Context, id int) (models.Reservation, error) {
	var res models.Reservation
	var status string
	err := r.db.QueryRowContext(ctx, r.q(`
		SELECT id, flight_id, customer_id, num_seats, status
		FROM reservations
		WHERE id = ?
	`), id).Scan(&res.ID, &res.FlightID, &res.CustomerID, &res.NumSeats, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reservation{}, ErrNotFound
	}
	if err != nil {
		return models.Reservation{}, apperror.NewDataAccess("get reservation", err)
	}
	res.Status = models.ReservationStatus(status)
	return res, nil
}

func (r *sqlRepository) CreateAirplane(ctx context.Context, a models.Airplane) (models.Airplane, error) {
	err := r.db.QueryRowContext(ctx, r.q(`
		INSERT INTO airplanes (num_seats, plane_type)
		VALUES (?, ?)
		RETURNING id
	`), a.NumSeats, a.PlaneType).Scan(&a.ID)
	if err != nil {
		return models.Airplane{}, apperror.NewDataAccess("create airplane", err)
	}
	return a, nil
}

func (r *sqlRepository) CreateAirport(ctx context.Context, a models.Airport) (models.Airport, error) {
	a.Code = models.NormalizeAirportCode(a.Code)
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO airports (code) VALUES (?)`), a.Code)
	if err != nil {
		if isDuplicate(err) {
			return models.Airport{}, ErrDuplicate
		}
		return models.Airport{}, apperror.NewDataAccess("create airport", err)
	}
	return a, nil
}

func (r *sqlRepository) CreateFlight(ctx context.Context, f models.Flight) (models.Flight, error) {
	f.DepartureAirportCode = models.NormalizeAirportCode(f.DepartureAirportCode)
	f.DestinationAirportCode = models.NormalizeAirportCode(f.DestinationAirportCode)
	f.DepartureDate = models.DateOnly(f.DepartureDate)

	err := r.db.QueryRowContext(ctx, r.q(`
		INSERT INTO flights (departure_date, departure_airport_code, destination_airport_code, cost, airplane_id, total_seats, available_seats)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), f.DepartureDate.Format(models.DateLayout), f.DepartureAirportCode, f.DestinationAirportCode,
		f.Cost, f.AirplaneID, f.TotalSeats, f.AvailableSeats).Scan(&f.ID)
	if err != nil {
		return models.Flight{}, apperror.NewDataAccess("create flight", err)
	}
	return f, nil
}

func (r *sqlRepository) CreateCustomer(ctx context.Context, c models.Customer) (models.Customer, error) {
	var err error
	if c.ID > 0 {
		_, err = r.db.ExecContext(ctx, r.q(`
			INSERT INTO customers (id, name, address, phone)
			VALUES (?, ?, ?, ?)
		`), c.ID, c.Name, c.Address, c.Phone)
		if err == nil && r.dialect == DialectPostgres {
			// Keep the serial ahead of explicitly assigned ids.
			_, err = r.db.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('customers', 'id'), (SELECT MAX(id) FROM customers))`)
		}
	} else {
		err = r.db.QueryRowContext(ctx, r.q(`
			INSERT INTO customers (name, address, phone)
			VALUES (?, ?, ?)
			RETURNING id
		`), c.Name, c.Address, c.Phone).Scan(&c.ID)
	}
	if err != nil {
		if isDuplicate(err) {
			return models.Customer{}, ErrDuplicate
		}
		return models.Customer{}, apperror.NewDataAccess("create customer", err)
	}
	return c, nil
}

func (r *sqlRepository) CreateReservation(ctx context.Context, res models.Reservation) (models.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Reservation{}, apperror.NewDataAccess("create reservation", err)
	}
	defer tx.Rollback()

	// Only succeeds while enough seats remain, so concurrent callers cannot oversell.
	result, err := tx.ExecContext(ctx, r.q(`
		UPDATE flights
		SET available_seats = available_seats - ?
		WHERE id = ? AND available_seats >= ?
	`), res.NumSeats, res.FlightID, res.NumSeats)
	if err != nil {
		return models.Reservation{}, apperror.NewDataAccess("reserve seats", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Reservation{}, apperror.NewDataAccess("reserve seats", err)
	}
	if affected == 0 {
		found, err := r.exists(ctx, tx, "flight exists", `SELECT 1 FROM flights WHERE id = ?`, res.FlightID)
		if err != nil {
			return models.Reservation{}, err
		}
		if !found {
			return models.Reservation{}, ErrNotFound
		}
		return models.Reservation{}, ErrInsufficientSeats
	}

	res.Status = models.StatusActive
	err = tx.QueryRowContext(ctx, r.q(`
		INSERT INTO reservations (flight_id, customer_id, num_seats, status)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), res.FlightID, res.CustomerID, res.NumSeats, string(res.Status)).Scan(&res.ID)
	if err != nil {
		return models.Reservation{}, apperror.NewDataAccess("create reservation", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Reservation{}, apperror.NewDataAccess("create reservation", err)
	}
	return res, nil
}

func (r *sqlRepository) CancelReservation(ctx context.Context, id int) (models.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Reservation{}, apperror.NewDataAccess("cancel reservation", err)
	}
	defer tx.Rollback()

	res := models.Reservation{ID: id, Status: models.StatusCanceled}
	err = tx.QueryRowContext(ctx, r.q(`
		UPDATE reservations
		SET status = ?
		WHERE id = ? AND UPPER(status) = ?
		RETURNING flight_id, customer_id, num_seats
	`), string(models.StatusCanceled), id, string(models.StatusActive)).Scan(&res.FlightID, &res.CustomerID, &res.NumSeats)
	if errors.Is(err, sql.ErrNoRows) {
		found, err := r.exists(ctx, tx, "reservation exists", `SELECT 1 FROM reservations WHERE id = ?`, id)
		if err != nil {
			return models.Reservation{}, err
		}
		if !found {
			return models.Reservation{}, ErrNotFound
		}
		return models.Reservation{}, ErrAlreadyCanceled
	}
	if err != nil {
		return models.Reservation{}, apperror.NewDataAccess("cancel reservation", err)
	}

	_, err = tx.ExecContext(ctx, r.q(`
		UPDATE flights
		SET available_seats = CASE
			WHEN available_seats + ? > total_seats THEN total_seats
			ELSE available_seats + ?
		END
		WHERE id = ?
	`), res.NumSeats, res.NumSeats, res.FlightID)
	if err != nil {
		return models.Reservation{}, apperror.NewDataAccess("restore seats", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Reservation{}, apperror.NewDataAccess("cancel reservation", err)
	}
	return res, nil
}

func (r *sqlRepository) GetAllAirplanes(ctx context.Context) ([]models.Airplane, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, num_seats, plane_type FROM airplanes ORDER BY id`)
	if err != nil {
		return nil, apperror.NewDataAccess("get airplanes", err)
	}
	defer rows.Close()

	list := make([]models.Airplane, 0)
	for rows.Next() {
		var a models.Airplane
		if err := rows.Scan(&a.ID, &a.NumSeats, &a.PlaneType); err != nil {
			return nil, apperror.NewDataAccess("get airplanes", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDataAccess("get airplanes", err)
	}
	return list, nil
}

func (r *sqlRepository) GetAllAirports(ctx context.Context) ([]models.Airport, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code FROM airports ORDER BY code`)
	if err != nil {
		return nil, apperror.NewDataAccess("get airports", err)
	}
	defer rows.Close()

	list := make([]models.Airport, 0)
	for rows.Next() {
		var a models.Airport
		if err := rows.Scan(&a.Code); err != nil {
			return nil, apperror.NewDataAccess("get airports", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDataAccess("get airports", err)
	}
	return list, nil
}

const flightColumns = `id, CAST(departure_date AS TEXT), departure_airport_code, destination_airport_code, cost, airplane_id, total_seats, available_seats`

func (r *sqlRepository) queryFlights(ctx context.Context, op, query string, args ...any) ([]models.Flight, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, apperror.NewDataAccess(op, err)
	}
	defer rows.Close()

	list := make([]models.Flight, 0)
	for rows.Next() {
		var f models.Flight
		var date string
		if err := rows.Scan(&f.ID, &date, &f.DepartureAirportCode, &f.DestinationAirportCode,
			&f.Cost, &f.AirplaneID, &f.TotalSeats, &f.AvailableSeats); err != nil {
			return nil, apperror.NewDataAccess(op, err)
		}
		if f.DepartureDate, err = parseDate(date); err != nil {
			return nil, apperror.NewDataAccess(op, err)
		}
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDataAccess(op, err)
	}
	return list, nil
}

// parseDate accepts both a bare date and a timestamp prefix.
func parseDate(s string) (time.Time, error) {
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	return time.ParseInLocation(models.DateLayout, s, time.UTC)
}

func (r *sqlRepository) GetAllFlights(ctx context.Context) ([]models.Flight, error) {
	return r.queryFlights(ctx, "get flights", `SELECT `+flightColumns+` FROM flights ORDER BY id`)
}

func (r *sqlRepository) Search(ctx context.Context, filters models.SearchFilters) ([]models.Flight, error) {
	var where []string
	var args []any

	if code := strings.TrimSpace(filters.DepartureAirportCode); code != "" {
		where = append(where, "departure_airport_code = ?")
		args = append(args, models.NormalizeAirportCode(code))
	}
	if code := strings.TrimSpace(filters.DestinationAirportCode); code != "" {
		where = append(where, "destination_airport_code = ?")
		args = append(args, models.NormalizeAirportCode(code))
	}
	if filters.DepartureDateFrom != nil {
		where = append(where, "departure_date >= ?")
		args = append(args, models.DateOnly(*filters.DepartureDateFrom).Format(models.DateLayout))
	}
	if filters.DepartureDateTo != nil {
		where = append(where, "departure_date <= ?")
		args = append(args, models.DateOnly(*filters.DepartureDateTo).Format(models.DateLayout))
	}

	query := `SELECT ` + flightColumns + ` FROM flights`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY departure_airport_code, destination_airport_code, departure_date, id`

	return r.queryFlights(ctx, "search flights", query, args...)
}

func (r *sqlRepository) GetAllCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, address, phone FROM customers ORDER BY id`)
	if err != nil {
		return nil, apperror.NewDataAccess("get customers", err)
	}
	defer rows.Close()

	list := make([]models.Customer, 0)
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Phone); err != nil {
			return nil, apperror.NewDataAccess("get customers", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDataAccess("get customers", err)
	}
	return list, nil
}

func (r *sqlRepository) GetAllReservations(ctx context.Context) ([]models.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, flight_id, customer_id, num_seats, status FROM reservations ORDER BY id`)
	if err != nil {
		return nil, apperror.NewDataAccess("get reservations", err)
	}
	defer rows.Close()

	list := make([]models.Reservation, 0)
	for rows.Next() {
		var res models.Reservation
		var status string
		if err := rows.Scan(&res.ID, &res.FlightID, &res.CustomerID, &res.NumSeats, &status); err != nil {
			return nil, apperror.NewDataAccess("get reservations", err)
		}
		res.Status = models.ReservationStatus(status)
		list = append(list, res)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDataAccess("get reservations", err)
	}
	return list, nil
}
