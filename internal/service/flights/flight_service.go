package flights

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Domenick1991/aircargo/internal/domain"
	"github.com/Domenick1991/aircargo/internal/repository"
)

type FlightUseCase interface {
	List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, flight *domain.Flight) (*domain.Flight, error)
	SearchRoutes(ctx context.Context, origin, destination string, date time.Time) (*domain.RouteOptions, error)
}

// Cache holds flight lists and route-search results with short TTLs.
type Cache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	GetRoutes(ctx context.Context, origin, destination string, date time.Time) (*domain.RouteOptions, error)
	SetRoutes(ctx context.Context, origin, destination string, date time.Time, routes *domain.RouteOptions) error
	InvalidateFlights(ctx context.Context) error
}

type FlightService struct {
	repo             repository.FlightRepository
	cache            Cache
	maxTransitRoutes int
	minConnection    time.Duration
}

type FlightServiceOption func(*FlightService)

func WithSearchBounds(maxTransitRoutes int, minConnection time.Duration) FlightServiceOption {
	return func(s *FlightService) {
		s.maxTransitRoutes = maxTransitRoutes
		s.minConnection = minConnection
	}
}

func NewFlightService(repo repository.FlightRepository, cache Cache, opts ...FlightServiceOption) *FlightService {
	service := &FlightService{
		repo:             repo,
		cache:            cache,
		maxTransitRoutes: 5,
		minConnection:    2 * time.Hour,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *FlightService) List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error) {
	// Only the unfiltered list is cached; filtered queries hit the store.
	cacheable := filter == repository.FlightFilter{}
	if cacheable && s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if cacheable && s.cache != nil {
		_ = s.cache.SetFlights(ctx, flights)
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) Create(ctx context.Context, flight *domain.Flight) (*domain.Flight, error) {
	if err := validateFlight(flight); err != nil {
		return nil, err
	}
	flight.Origin = strings.ToUpper(flight.Origin)
	flight.Destination = strings.ToUpper(flight.Destination)
	if err := s.repo.Create(ctx, flight); err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateFlights(ctx)
	}
	return flight, nil
}

func validateFlight(flight *domain.Flight) error {
	if flight.FlightNumber == "" {
		return errors.New("flight_number is required")
	}
	if flight.Origin == "" || flight.Destination == "" {
		return errors.New("origin and destination are required")
	}
	if !flight.ArrivalTime.After(flight.DepartureTime) {
		return errors.New("arrival_time must be after departure_time")
	}
	if flight.MaxCargoWeightKg < 1 {
		return errors.New("max_cargo_weight must be at least 1")
	}
	return nil
}

// SearchRoutes finds direct flights and bounded one-transit connections for
// the given day. A connection is valid when the second leg departs on the
// same day or the next one, no earlier than the minimum connection time
// after the first leg lands, and both legs have spare capacity. The transit
// list is capped; this is deliberately not general pathfinding.
func (s *FlightService) SearchRoutes(ctx context.Context, origin, destination string, date time.Time) (*domain.RouteOptions, error) {
	origin = strings.ToUpper(origin)
	destination = strings.ToUpper(destination)

	if s.cache != nil {
		if cached, err := s.cache.GetRoutes(ctx, origin, destination, date); err == nil && cached != nil {
			return cached, nil
		}
	}

	direct, err := s.repo.FindDirect(ctx, origin, destination, date)
	if err != nil {
		return nil, err
	}

	firstLegs, err := s.repo.FindDepartures(ctx, origin, date, destination)
	if err != nil {
		return nil, err
	}

	transit := make([]domain.Route, 0, s.maxTransitRoutes)
	for _, first := range firstLegs {
		if len(transit) >= s.maxTransitRoutes {
			break
		}
		connections, err := s.repo.FindConnections(ctx, first.Destination, destination,
			first.ArrivalTime, []time.Time{date, date.Add(24 * time.Hour)})
		if err != nil {
			return nil, err
		}
		for _, second := range connections {
			if second.DepartureTime.Sub(first.ArrivalTime) < s.minConnection {
				continue
			}
			transit = append(transit, domain.Route{Legs: []domain.Flight{first, second}})
			if len(transit) >= s.maxTransitRoutes {
				break
			}
		}
	}

	routes := &domain.RouteOptions{Direct: direct, Transit: transit}
	if s.cache != nil {
		_ = s.cache.SetRoutes(ctx, origin, destination, date, routes)
	}
	return routes, nil
}

var _ FlightUseCase = (*FlightService)(nil)
