package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/aircargo/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightFilter struct {
	Origin      string
	Destination string
	Airline     string
	Date        *time.Time
}

type FlightRepository interface {
	List(ctx context.Context, filter FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Flight, error)
	Create(ctx context.Context, flight *domain.Flight) error
	FindDirect(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error)
	FindDepartures(ctx context.Context, origin string, date time.Time, excludeDestination string) ([]domain.Flight, error)
	FindConnections(ctx context.Context, origin, destination string, notBefore time.Time, dates []time.Time) ([]domain.Flight, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, airline_name, origin, destination, departure_time, arrival_time, aircraft_type, max_cargo_weight, available_cargo_weight, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.AirlineName, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime, &f.AircraftType, &f.MaxCargoWeightKg, &f.AvailableCargoWeight, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFlights(rows pgx.Rows) ([]domain.Flight, error) {
	defer rows.Close()
	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) List(ctx context.Context, filter FlightFilter) ([]domain.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights WHERE 1=1`
	args := []interface{}{}

	if filter.Origin != "" {
		args = append(args, filter.Origin)
		query += fmt.Sprintf(" AND origin=$%d", len(args))
	}
	if filter.Destination != "" {
		args = append(args, filter.Destination)
		query += fmt.Sprintf(" AND destination=$%d", len(args))
	}
	if filter.Airline != "" {
		args = append(args, "%"+filter.Airline+"%")
		query += fmt.Sprintf(" AND airline_name ILIKE $%d", len(args))
	}
	if filter.Date != nil {
		start := filter.Date.Truncate(24 * time.Hour)
		args = append(args, start, start.Add(24*time.Hour))
		query += fmt.Sprintf(" AND departure_time >= $%d AND departure_time < $%d", len(args)-1, len(args))
	}
	query += ` ORDER BY departure_time`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanFlights(rows)
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	f, err := scanFlight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return f, err
}

// GetByIDs resolves flight ids preserving the caller's order. Any unknown id
// fails the whole resolution with ErrInvalidFlightReference.
func (r *PGFlightRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Flight, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	found, err := scanFlights(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]domain.Flight, len(found))
	for _, f := range found {
		byID[f.ID] = f
	}

	flights := make([]domain.Flight, 0, len(ids))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			return nil, domain.ErrInvalidFlightReference
		}
		flights = append(flights, f)
	}
	return flights, nil
}

func (r *PGFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	return r.db.QueryRow(ctx, `INSERT INTO flights (flight_number, airline_name, origin, destination, departure_time, arrival_time, aircraft_type, max_cargo_weight, available_cargo_weight)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id, available_cargo_weight, created_at, updated_at`,
		flight.FlightNumber, flight.AirlineName, flight.Origin, flight.Destination, flight.DepartureTime, flight.ArrivalTime, flight.AircraftType, flight.MaxCargoWeightKg).
		Scan(&flight.ID, &flight.AvailableCargoWeight, &flight.CreatedAt, &flight.UpdatedAt)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the reserve and
// release statements can run standalone or inside a booking transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// reserveCargo decrements available capacity iff enough remains. The
// conditional update is the whole point: the store enforces the invariant
// under concurrent reservations, not in-memory state.
func reserveCargo(ctx context.Context, q querier, flightID int64, weightKg int) error {
	tag, err := q.Exec(ctx, `UPDATE flights SET available_cargo_weight = available_cargo_weight - $2, updated_at = now() WHERE id=$1 AND available_cargo_weight >= $2`, flightID, weightKg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var number string
	var available int
	err = q.QueryRow(ctx, `SELECT flight_number, available_cargo_weight FROM flights WHERE id=$1`, flightID).Scan(&number, &available)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return &domain.InsufficientCapacityError{FlightNumber: number, AvailableKg: available, RequiredKg: weightKg}
}

// releaseCargo returns capacity, clamped at max_cargo_weight so a double
// release can never inflate the flight beyond its original maximum.
func releaseCargo(ctx context.Context, q querier, flightID int64, weightKg int) error {
	tag, err := q.Exec(ctx, `UPDATE flights SET available_cargo_weight = LEAST(max_cargo_weight, available_cargo_weight + $2), updated_at = now() WHERE id=$1`, flightID, weightKg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGFlightRepository) FindDirect(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error) {
	start := date.Truncate(24 * time.Hour)
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE origin=$1 AND destination=$2 AND departure_time >= $3 AND departure_time < $4 AND available_cargo_weight > 0
		ORDER BY departure_time`, origin, destination, start, start.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	return scanFlights(rows)
}

func (r *PGFlightRepository) FindDepartures(ctx context.Context, origin string, date time.Time, excludeDestination string) ([]domain.Flight, error) {
	start := date.Truncate(24 * time.Hour)
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE origin=$1 AND destination <> $2 AND departure_time >= $3 AND departure_time < $4 AND available_cargo_weight > 0
		ORDER BY departure_time`, origin, excludeDestination, start, start.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	return scanFlights(rows)
}

// FindConnections lists onward flights departing on any of the given dates
// and not earlier than notBefore. Connection-time filtering is done by the
// caller.
func (r *PGFlightRepository) FindConnections(ctx context.Context, origin, destination string, notBefore time.Time, dates []time.Time) ([]domain.Flight, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	starts := make([]time.Time, 0, len(dates))
	ends := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		start := d.Truncate(24 * time.Hour)
		starts = append(starts, start)
		ends = append(ends, start.Add(24*time.Hour))
	}
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights f
		WHERE f.origin=$1 AND f.destination=$2 AND f.departure_time > $3 AND f.available_cargo_weight > 0
		AND EXISTS (
			SELECT 1 FROM unnest($4::timestamptz[], $5::timestamptz[]) AS w(day_start, day_end)
			WHERE f.departure_time >= w.day_start AND f.departure_time < w.day_end
		)
		ORDER BY f.departure_time`, origin, destination, notBefore, starts, ends)
	if err != nil {
		return nil, err
	}
	return scanFlights(rows)
}

var _ FlightRepository = (*PGFlightRepository)(nil)
