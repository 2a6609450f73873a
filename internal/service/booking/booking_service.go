package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/aircargo/internal/cache"
	"github.com/Domenick1991/aircargo/internal/domain"
	"github.com/Domenick1991/aircargo/internal/kafka"
	"github.com/Domenick1991/aircargo/internal/repository"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, refID string) (*domain.Booking, error)
	ListBookings(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, error)
	GetBookingEvents(ctx context.Context, refID string) ([]domain.BookingEvent, error)
	DepartBooking(ctx context.Context, refID string, input TransitionInput) (*domain.Booking, error)
	ArriveBooking(ctx context.Context, refID string, input TransitionInput) (*domain.Booking, error)
	DeliverBooking(ctx context.Context, refID, description string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, refID string) (*domain.Booking, error)
	MarkDelayed(ctx context.Context, refID, location, description string) (*domain.Booking, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries int) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	flights            repository.FlightRepository
	locker             cache.Locker
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	lockTTL            time.Duration
	lockAttempts       int
	lockBackoff        time.Duration
}

type CreateBookingInput struct {
	Origin              string  `json:"origin"`
	Destination         string  `json:"destination"`
	Pieces              int     `json:"pieces"`
	WeightKg            int     `json:"weight_kg"`
	CustomerName        string  `json:"customer_name"`
	CustomerEmail       string  `json:"customer_email"`
	CustomerPhone       string  `json:"customer_phone"`
	Description         string  `json:"description"`
	SpecialInstructions string  `json:"special_instructions"`
	FlightIDs           []int64 `json:"flight_ids"`
}

type TransitionInput struct {
	Location    string `json:"location"`
	FlightID    *int64 `json:"flight_id"`
	Description string `json:"description"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithLockPolicy(ttl time.Duration, attempts int, backoff time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.lockTTL = ttl
		s.lockAttempts = attempts
		s.lockBackoff = backoff
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	locker cache.Locker,
	producer Producer,
	eventsTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		flights:      flights,
		locker:       locker,
		producer:     producer,
		eventsTopic:  eventsTopic,
		lockTTL:      30 * time.Second,
		lockAttempts: 5,
		lockBackoff:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking reserves cargo capacity on every requested flight with
// all-or-nothing semantics. Flight locks are taken in sorted id order so two
// requests over overlapping flight sets cannot deadlock; the reservations
// themselves run in the caller's leg order inside one transaction.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	flights, err := s.flights.GetByIDs(ctx, input.FlightIDs)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockFlights(ctx, input.FlightIDs)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := time.Now()
	booking := &domain.Booking{
		RefID:               domain.NewRefID(now),
		Origin:              strings.ToUpper(input.Origin),
		Destination:         strings.ToUpper(input.Destination),
		Pieces:              input.Pieces,
		WeightKg:            input.WeightKg,
		Status:              domain.BookingStatusBooked,
		CustomerName:        input.CustomerName,
		CustomerEmail:       input.CustomerEmail,
		CustomerPhone:       input.CustomerPhone,
		Description:         input.Description,
		SpecialInstructions: input.SpecialInstructions,
	}

	if err := s.bookings.CreateWithReservation(ctx, booking, input.FlightIDs); err != nil {
		return nil, err
	}
	booking.Flights = flights

	s.publish(ctx, "booking_created", booking, booking.Origin)
	return booking, nil
}

func (input CreateBookingInput) validate() error {
	if strings.TrimSpace(input.Origin) == "" || strings.TrimSpace(input.Destination) == "" {
		return errors.New("origin and destination are required")
	}
	if input.Pieces < 1 {
		return errors.New("pieces must be at least 1")
	}
	if input.WeightKg < 1 {
		return errors.New("weight_kg must be at least 1")
	}
	if input.CustomerName == "" || input.CustomerEmail == "" {
		return errors.New("customer name and email are required")
	}
	return nil
}

// lockFlights acquires a per-flight advisory lock for every distinct flight,
// each with bounded retry, and returns a release func for all acquired keys.
// On partial acquisition the already-held locks are released before the
// error surfaces.
func (s *BookingService) lockFlights(ctx context.Context, flightIDs []int64) (func(), error) {
	distinct := make([]int64, 0, len(flightIDs))
	seen := make(map[int64]bool, len(flightIDs))
	for _, id := range flightIDs {
		if !seen[id] {
			seen[id] = true
			distinct = append(distinct, id)
		}
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i] < distinct[j] })

	acquired := make([]string, 0, len(distinct))
	release := func() {
		releaseCtx := context.WithoutCancel(ctx)
		for _, key := range acquired {
			if err := s.locker.Release(releaseCtx, key); err != nil {
				log.Printf("release lock %s: %v", key, err)
			}
		}
	}

	for _, id := range distinct {
		key := cache.FlightLockKey(id)
		if err := cache.AcquireWithRetry(ctx, s.locker, key, s.lockTTL, s.lockAttempts, s.lockBackoff); err != nil {
			release()
			return nil, err
		}
		acquired = append(acquired, key)
	}
	return release, nil
}

func (s *BookingService) GetBooking(ctx context.Context, refID string) (*domain.Booking, error) {
	return s.bookings.GetByRefID(ctx, strings.ToUpper(refID))
}

func (s *BookingService) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, error) {
	return s.bookings.List(ctx, filter)
}

func (s *BookingService) GetBookingEvents(ctx context.Context, refID string) ([]domain.BookingEvent, error) {
	booking, err := s.bookings.GetByRefID(ctx, strings.ToUpper(refID))
	if err != nil {
		return nil, err
	}
	return s.bookings.ListEvents(ctx, booking.ID)
}

func (s *BookingService) DepartBooking(ctx context.Context, refID string, input TransitionInput) (*domain.Booking, error) {
	location := strings.ToUpper(strings.TrimSpace(input.Location))
	if location == "" {
		return nil, errors.New("location is required")
	}
	flight, err := s.resolveFlight(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}

	return s.withBookingLock(ctx, refID, func(current *domain.Booking) (*domain.Booking, error) {
		if !current.CanDepart() {
			return nil, domain.ErrInvalidTransition
		}

		description := input.Description
		if description == "" {
			description = fmt.Sprintf("Departed from %s", location)
			if flight != nil {
				description += fmt.Sprintf(" on flight %s", flight.FlightNumber)
			}
		}
		updated, err := s.bookings.TransitionStatus(ctx, current.RefID, domain.BookingStatusDeparted, location,
			newEvent(domain.EventTypeDeparted, location, flight, description))
		if err != nil {
			return nil, err
		}
		updated.Flights = current.Flights

		s.publish(ctx, "booking_departed", updated, location)
		return updated, nil
	})
}

func (s *BookingService) ArriveBooking(ctx context.Context, refID string, input TransitionInput) (*domain.Booking, error) {
	location := strings.ToUpper(strings.TrimSpace(input.Location))
	if location == "" {
		return nil, errors.New("location is required")
	}
	flight, err := s.resolveFlight(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}

	return s.withBookingLock(ctx, refID, func(current *domain.Booking) (*domain.Booking, error) {
		if !current.CanArrive() {
			return nil, domain.ErrInvalidTransition
		}

		description := input.Description
		if description == "" {
			description = fmt.Sprintf("Arrived at %s", location)
			if flight != nil {
				description += fmt.Sprintf(" on flight %s", flight.FlightNumber)
			}
		}
		updated, err := s.bookings.TransitionStatus(ctx, current.RefID, domain.BookingStatusArrived, location,
			newEvent(domain.EventTypeArrived, location, flight, description))
		if err != nil {
			return nil, err
		}
		updated.Flights = current.Flights

		s.publish(ctx, "booking_arrived", updated, location)
		return updated, nil
	})
}

func (s *BookingService) DeliverBooking(ctx context.Context, refID, description string) (*domain.Booking, error) {
	return s.withBookingLock(ctx, refID, func(current *domain.Booking) (*domain.Booking, error) {
		if !current.CanDeliver() {
			return nil, domain.ErrInvalidTransition
		}

		if description == "" {
			description = fmt.Sprintf("Delivered at %s", current.Destination)
		}
		updated, err := s.bookings.TransitionStatus(ctx, current.RefID, domain.BookingStatusDelivered, current.Destination,
			newEvent(domain.EventTypeDelivered, current.Destination, nil, description))
		if err != nil {
			return nil, err
		}
		updated.Flights = current.Flights

		s.publish(ctx, "booking_delivered", updated, current.Destination)
		return updated, nil
	})
}

// CancelBooking cancels the booking and returns its reserved weight to every
// currently associated flight. Release is clamped per flight, so a repeated
// or concurrent release can never push capacity above the maximum.
func (s *BookingService) CancelBooking(ctx context.Context, refID string) (*domain.Booking, error) {
	return s.withBookingLock(ctx, refID, func(current *domain.Booking) (*domain.Booking, error) {
		if !current.CanBeCancelled() {
			return nil, domain.ErrInvalidTransition
		}
		oldStatus := current.Status

		location := current.CurrentLocation
		if location == "" {
			location = current.Origin
		}
		updated, err := s.bookings.CancelWithRelease(ctx, current.RefID,
			newEvent(domain.EventTypeCancelled, location, nil,
				fmt.Sprintf("Booking cancelled from %s status", oldStatus)))
		if err != nil {
			return nil, err
		}
		updated.Flights = current.Flights

		s.publish(ctx, "booking_cancelled", updated, location)
		return updated, nil
	})
}

// MarkDelayed appends a DELAYED event without changing the booking's status.
func (s *BookingService) MarkDelayed(ctx context.Context, refID, location, description string) (*domain.Booking, error) {
	return s.withBookingLock(ctx, refID, func(current *domain.Booking) (*domain.Booking, error) {
		if current.IsTerminal() {
			return nil, domain.ErrInvalidTransition
		}
		if location == "" {
			location = current.CurrentLocation
			if location == "" {
				location = current.Origin
			}
		}
		if description == "" {
			description = fmt.Sprintf("Shipment delayed at %s", location)
		}
		event := newEvent(domain.EventTypeDelayed, strings.ToUpper(location), nil, description)
		event.BookingID = current.ID
		if err := s.bookings.AppendEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("append delayed event for %s: %w", current.RefID, err)
		}
		s.publish(ctx, "booking_delayed", current, location)
		return current, nil
	})
}

// withBookingLock serializes lifecycle transitions on one booking. A held
// lock means another operation is in flight; that is a retryable Conflict,
// not an invalid state.
func (s *BookingService) withBookingLock(ctx context.Context, refID string, fn func(*domain.Booking) (*domain.Booking, error)) (*domain.Booking, error) {
	refID = strings.ToUpper(refID)
	current, err := s.bookings.GetByRefID(ctx, refID)
	if err != nil {
		return nil, err
	}

	key := cache.BookingLockKey(refID)
	ok, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrConflict
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			log.Printf("release lock %s: %v", key, err)
		}
	}()

	// Re-read under the lock: the pre-lock read only resolved NotFound.
	current, err = s.bookings.GetByRefID(ctx, refID)
	if err != nil {
		return nil, err
	}
	return fn(current)
}

func (s *BookingService) resolveFlight(ctx context.Context, flightID *int64) (*domain.Flight, error) {
	if flightID == nil {
		return nil, nil
	}
	flight, err := s.flights.GetByID(ctx, *flightID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidFlightReference
	}
	return flight, err
}

func newEvent(eventType domain.EventType, location string, flight *domain.Flight, description string) *domain.BookingEvent {
	event := &domain.BookingEvent{
		Type:        eventType,
		Location:    location,
		Description: description,
	}
	if flight != nil {
		event.FlightID = &flight.ID
	}
	return event
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking, location string) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.CargoEvent{
		Type:          eventType,
		RefID:         booking.RefID,
		Status:        string(booking.Status),
		Origin:        booking.Origin,
		Destination:   booking.Destination,
		Location:      location,
		Pieces:        booking.Pieces,
		WeightKg:      booking.WeightKg,
		CustomerEmail: booking.CustomerEmail,
		OccurredAt:    time.Now(),
	}
	// Event stream publishes retry; notifications are best-effort.
	if err := s.producer.PublishWithRetry(ctx, s.eventsTopic, booking.RefID, event, 3); err != nil {
		log.Printf("WARNING: failed to publish %s event for booking %s: %v", eventType, booking.RefID, err)
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.RefID, event); err != nil {
			log.Printf("WARNING: failed to publish notification for booking %s: %v", booking.RefID, err)
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
