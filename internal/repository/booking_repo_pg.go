package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/aircargo/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

type BookingFilter struct {
	Status      string
	Origin      string
	Destination string
}

type BookingRepository interface {
	CreateWithReservation(ctx context.Context, booking *domain.Booking, flightIDs []int64) error
	GetByRefID(ctx context.Context, refID string) (*domain.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	TransitionStatus(ctx context.Context, refID string, status domain.BookingStatus, location string, event *domain.BookingEvent) (*domain.Booking, error)
	CancelWithRelease(ctx context.Context, refID string, event *domain.BookingEvent) (*domain.Booking, error)
	ListDepartedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
	AppendEvent(ctx context.Context, event *domain.BookingEvent) error
	ListEvents(ctx context.Context, bookingID int64) ([]domain.BookingEvent, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, ref_id, origin, destination, pieces, weight_kg, status, current_location, customer_name, customer_email, customer_phone, description, special_instructions, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var location *string
	if err := row.Scan(&b.ID, &b.RefID, &b.Origin, &b.Destination, &b.Pieces, &b.WeightKg, &b.Status, &location, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone, &b.Description, &b.SpecialInstructions, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if location != nil {
		b.CurrentLocation = *location
	}
	return &b, nil
}

// CreateWithReservation persists the booking, its leg associations and the
// cargo reservations on every leg inside one transaction. Reservations run
// in the caller's flight order; the first failure rolls the whole
// transaction back so no partial booking and no partial reservation ever
// becomes visible.
func (r *PGBookingRepository) CreateWithReservation(ctx context.Context, booking *domain.Booking, flightIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.insertBooking(ctx, tx, booking); err != nil {
		return err
	}

	for i, flightID := range flightIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO booking_flights (booking_id, flight_id, leg_order) VALUES ($1, $2, $3)`, booking.ID, flightID, i); err != nil {
			return err
		}
		if err := reserveCargo(ctx, tx, flightID, booking.WeightKg); err != nil {
			return err
		}
	}

	// Initial BOOKED event commits together with the booking and its
	// reservations: observers never see one without the others.
	if _, err := tx.Exec(ctx, `INSERT INTO booking_events (booking_id, event_type, location, description, created_by)
		VALUES ($1, $2, $3, $4, 'system')`,
		booking.ID, domain.EventTypeBooked, booking.Origin,
		fmt.Sprintf("Booking created for %d pieces, %dkg", booking.Pieces, booking.WeightKg)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// insertBooking inserts the row, regenerating the reference id on the rare
// unique-constraint collision. Each attempt runs in a nested transaction
// (savepoint): a unique violation would otherwise abort the surrounding
// transaction and make every retry fail with SQLSTATE 25P02.
func (r *PGBookingRepository) insertBooking(ctx context.Context, tx pgx.Tx, booking *domain.Booking) error {
	const attempts = 3
	var err error
	for i := 0; i < attempts; i++ {
		sp, spErr := tx.Begin(ctx)
		if spErr != nil {
			return spErr
		}
		err = sp.QueryRow(ctx, `INSERT INTO bookings (ref_id, origin, destination, pieces, weight_kg, status, customer_name, customer_email, customer_phone, description, special_instructions)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at, updated_at`,
			booking.RefID, booking.Origin, booking.Destination, booking.Pieces, booking.WeightKg, booking.Status,
			booking.CustomerName, booking.CustomerEmail, booking.CustomerPhone, booking.Description, booking.SpecialInstructions).
			Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
		if err == nil {
			return sp.Commit(ctx)
		}

		_ = sp.Rollback(ctx)
		if !isUniqueViolation(err) {
			return err
		}
		booking.RefID = domain.NewRefID(time.Now())
	}
	return fmt.Errorf("generate unique ref id: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func (r *PGBookingRepository) GetByRefID(ctx context.Context, refID string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE ref_id=$1`, refID)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights
		JOIN booking_flights bf ON bf.flight_id = flights.id
		WHERE bf.booking_id=$1 ORDER BY bf.leg_order`, b.ID)
	if err != nil {
		return nil, err
	}
	if b.Flights, err = scanFlights(rows); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	args := []interface{}{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = UPPER($%d)", len(args))
	}
	if filter.Origin != "" {
		args = append(args, filter.Origin)
		query += fmt.Sprintf(" AND origin = UPPER($%d)", len(args))
	}
	if filter.Destination != "" {
		args = append(args, filter.Destination)
		query += fmt.Sprintf(" AND destination = UPPER($%d)", len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// TransitionStatus updates the booking's status and location and appends the
// transition's event in one transaction: the status change and its audit
// trail commit together or not at all.
func (r *PGBookingRepository) TransitionStatus(ctx context.Context, refID string, status domain.BookingStatus, location string, event *domain.BookingEvent) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := updateStatus(ctx, tx, refID, status, location)
	if err != nil {
		return nil, err
	}

	event.BookingID = b.ID
	if err := insertEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("append %s event: %w", event.Type, err)
	}
	return b, tx.Commit(ctx)
}

// CancelWithRelease cancels the booking, returns its reserved weight to every
// associated flight and appends the cancellation event, all in one
// transaction. A failed release leaves the booking uncancelled.
func (r *PGBookingRepository) CancelWithRelease(ctx context.Context, refID string, event *domain.BookingEvent) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := updateStatus(ctx, tx, refID, domain.BookingStatusCancelled, "")
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT flight_id FROM booking_flights WHERE booking_id=$1`, b.ID)
	if err != nil {
		return nil, err
	}
	var flightIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		flightIDs = append(flightIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, flightID := range flightIDs {
		if err := releaseCargo(ctx, tx, flightID, b.WeightKg); err != nil {
			return nil, fmt.Errorf("release cargo on flight %d: %w", flightID, err)
		}
	}

	event.BookingID = b.ID
	if err := insertEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("append %s event: %w", event.Type, err)
	}
	return b, tx.Commit(ctx)
}

func updateStatus(ctx context.Context, tx pgx.Tx, refID string, status domain.BookingStatus, location string) (*domain.Booking, error) {
	row := tx.QueryRow(ctx, `UPDATE bookings
		SET status=$1, current_location=COALESCE(NULLIF($2, ''), current_location), updated_at=now()
		WHERE ref_id=$3
		RETURNING `+bookingColumns, status, location, refID)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// ListDepartedBefore finds bookings still DEPARTED whose last status change
// is older than the deadline and that have no DELAYED event newer than it.
// Used by the worker's delay sweep; the NOT EXISTS keeps sweeps from piling
// duplicate DELAYED events onto the same booking.
func (r *PGBookingRepository) ListDepartedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings b
		WHERE b.status=$1 AND b.updated_at <= $2
		AND NOT EXISTS (
			SELECT 1 FROM booking_events e
			WHERE e.booking_id = b.id AND e.event_type = 'DELAYED' AND e.timestamp > $2
		)
		ORDER BY b.updated_at`, domain.BookingStatusDeparted, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) AppendEvent(ctx context.Context, event *domain.BookingEvent) error {
	return insertEvent(ctx, r.db, event)
}

func insertEvent(ctx context.Context, q querier, event *domain.BookingEvent) error {
	if event.CreatedBy == "" {
		event.CreatedBy = "system"
	}
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return err
	}
	return q.QueryRow(ctx, `INSERT INTO booking_events (booking_id, event_type, location, flight_id, description, created_by, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, timestamp`,
		event.BookingID, event.Type, event.Location, event.FlightID, event.Description, event.CreatedBy, metadata).
		Scan(&event.ID, &event.Timestamp)
}

func (r *PGBookingRepository) ListEvents(ctx context.Context, bookingID int64) ([]domain.BookingEvent, error) {
	rows, err := r.db.Query(ctx, `SELECT id, booking_id, event_type, location, flight_id, description, timestamp, created_by, metadata
		FROM booking_events WHERE booking_id=$1 ORDER BY timestamp, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.BookingEvent, 0)
	for rows.Next() {
		var ev domain.BookingEvent
		var metadata []byte
		if err := rows.Scan(&ev.ID, &ev.BookingID, &ev.Type, &ev.Location, &ev.FlightID, &ev.Description, &ev.Timestamp, &ev.CreatedBy, &metadata); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &ev.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
