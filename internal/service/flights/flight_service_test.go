package flights

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/aircargo/internal/domain"
	"github.com/Domenick1991/aircargo/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Flight, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightRepository) FindDirect(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error) {
	args := m.Called(ctx, origin, destination, date)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) FindDepartures(ctx context.Context, origin string, date time.Time, excludeDestination string) ([]domain.Flight, error) {
	args := m.Called(ctx, origin, date, excludeDestination)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) FindConnections(ctx context.Context, origin, destination string, notBefore time.Time, dates []time.Time) ([]domain.Flight, error) {
	args := m.Called(ctx, origin, destination, notBefore, dates)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func (m *MockCache) GetRoutes(ctx context.Context, origin, destination string, date time.Time) (*domain.RouteOptions, error) {
	args := m.Called(ctx, origin, destination, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RouteOptions), args.Error(1)
}

func (m *MockCache) SetRoutes(ctx context.Context, origin, destination string, date time.Time, routes *domain.RouteOptions) error {
	args := m.Called(ctx, origin, destination, date, routes)
	return args.Error(0)
}

func (m *MockCache) InvalidateFlights(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var searchDate = time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

func flightAt(id int64, number, origin, destination string, depHour, arrHour int) domain.Flight {
	return domain.Flight{
		ID:                   id,
		FlightNumber:         number,
		Origin:               origin,
		Destination:          destination,
		DepartureTime:        searchDate.Add(time.Duration(depHour) * time.Hour),
		ArrivalTime:          searchDate.Add(time.Duration(arrHour) * time.Hour),
		MaxCargoWeightKg:     10000,
		AvailableCargoWeight: 5000,
	}
}

func TestFlightService_List_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache)

	ctx := context.Background()
	cached := []domain.Flight{flightAt(1, "AC101", "DEL", "BLR", 8, 11)}
	mockCache.On("GetFlights", ctx).Return(cached, nil).Once()

	flights, err := service.List(ctx, repository.FlightFilter{})

	assert.NoError(t, err)
	assert.Equal(t, cached, flights)
	mockRepo.AssertNotCalled(t, "List")
}

func TestFlightService_List_CacheMissFillsCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache)

	ctx := context.Background()
	stored := []domain.Flight{flightAt(1, "AC101", "DEL", "BLR", 8, 11)}
	mockCache.On("GetFlights", ctx).Return(nil, nil).Once()
	mockRepo.On("List", ctx, repository.FlightFilter{}).Return(stored, nil).Once()
	mockCache.On("SetFlights", ctx, stored).Return(nil).Once()

	flights, err := service.List(ctx, repository.FlightFilter{})

	assert.NoError(t, err)
	assert.Equal(t, stored, flights)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_List_FilteredSkipsCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache)

	ctx := context.Background()
	filter := repository.FlightFilter{Origin: "DEL"}
	stored := []domain.Flight{flightAt(1, "AC101", "DEL", "BLR", 8, 11)}
	mockRepo.On("List", ctx, filter).Return(stored, nil).Once()

	flights, err := service.List(ctx, filter)

	assert.NoError(t, err)
	assert.Equal(t, stored, flights)
	mockCache.AssertNotCalled(t, "GetFlights")
	mockCache.AssertNotCalled(t, "SetFlights")
}

func TestFlightService_Create_Validation(t *testing.T) {
	service := NewFlightService(&MockFlightRepository{}, nil)
	ctx := context.Background()

	testCases := []struct {
		name        string
		flight      domain.Flight
		expectedErr string
	}{
		{
			name:        "missing flight number",
			flight:      domain.Flight{Origin: "DEL", Destination: "BLR", DepartureTime: searchDate, ArrivalTime: searchDate.Add(time.Hour), MaxCargoWeightKg: 100},
			expectedErr: "flight_number is required",
		},
		{
			name:        "arrival before departure",
			flight:      domain.Flight{FlightNumber: "AC1", Origin: "DEL", Destination: "BLR", DepartureTime: searchDate.Add(time.Hour), ArrivalTime: searchDate, MaxCargoWeightKg: 100},
			expectedErr: "arrival_time must be after departure_time",
		},
		{
			name:        "zero capacity",
			flight:      domain.Flight{FlightNumber: "AC1", Origin: "DEL", Destination: "BLR", DepartureTime: searchDate, ArrivalTime: searchDate.Add(time.Hour)},
			expectedErr: "max_cargo_weight must be at least 1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			created, err := service.Create(ctx, &tc.flight)
			assert.Error(t, err)
			assert.Nil(t, created)
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}

func TestFlightService_Create_InvalidatesFlightsCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache)

	ctx := context.Background()
	flight := &domain.Flight{FlightNumber: "AC1", Origin: "del", Destination: "blr", DepartureTime: searchDate, ArrivalTime: searchDate.Add(time.Hour), MaxCargoWeightKg: 100}
	mockRepo.On("Create", ctx, flight).Return(nil).Once()
	mockCache.On("InvalidateFlights", ctx).Return(nil).Once()

	created, err := service.Create(ctx, flight)

	assert.NoError(t, err)
	assert.Equal(t, "DEL", created.Origin)
	assert.Equal(t, "BLR", created.Destination)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_SearchRoutes_DirectOnly(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil)

	ctx := context.Background()
	direct := []domain.Flight{flightAt(1, "AC101", "DEL", "BLR", 8, 11)}
	mockRepo.On("FindDirect", ctx, "DEL", "BLR", searchDate).Return(direct, nil).Once()
	mockRepo.On("FindDepartures", ctx, "DEL", searchDate, "BLR").Return([]domain.Flight{}, nil).Once()

	routes, err := service.SearchRoutes(ctx, "del", "blr", searchDate)

	assert.NoError(t, err)
	assert.Equal(t, direct, routes.Direct)
	assert.Empty(t, routes.Transit)
}

func TestFlightService_SearchRoutes_TransitRespectsConnectionTime(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil)

	ctx := context.Background()
	first := flightAt(1, "AC201", "DEL", "BOM", 8, 10)
	tight := flightAt(2, "AC301", "BOM", "BLR", 11, 13)  // 1h connection, too tight
	viable := flightAt(3, "AC302", "BOM", "BLR", 13, 15) // 3h connection

	mockRepo.On("FindDirect", ctx, "DEL", "BLR", searchDate).Return([]domain.Flight{}, nil).Once()
	mockRepo.On("FindDepartures", ctx, "DEL", searchDate, "BLR").Return([]domain.Flight{first}, nil).Once()
	mockRepo.On("FindConnections", ctx, "BOM", "BLR", first.ArrivalTime,
		[]time.Time{searchDate, searchDate.Add(24 * time.Hour)}).
		Return([]domain.Flight{tight, viable}, nil).Once()

	routes, err := service.SearchRoutes(ctx, "DEL", "BLR", searchDate)

	assert.NoError(t, err)
	assert.Empty(t, routes.Direct)
	assert.Len(t, routes.Transit, 1)
	assert.Equal(t, []domain.Flight{first, viable}, routes.Transit[0].Legs)
}

func TestFlightService_SearchRoutes_CapsTransitRoutes(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, WithSearchBounds(2, 2*time.Hour))

	ctx := context.Background()
	first := flightAt(1, "AC201", "DEL", "BOM", 6, 8)
	connections := []domain.Flight{
		flightAt(2, "AC301", "BOM", "BLR", 11, 13),
		flightAt(3, "AC302", "BOM", "BLR", 12, 14),
		flightAt(4, "AC303", "BOM", "BLR", 13, 15),
	}

	mockRepo.On("FindDirect", ctx, "DEL", "BLR", searchDate).Return([]domain.Flight{}, nil).Once()
	mockRepo.On("FindDepartures", ctx, "DEL", searchDate, "BLR").Return([]domain.Flight{first}, nil).Once()
	mockRepo.On("FindConnections", ctx, "BOM", "BLR", first.ArrivalTime, mock.Anything).
		Return(connections, nil).Once()

	routes, err := service.SearchRoutes(ctx, "DEL", "BLR", searchDate)

	assert.NoError(t, err)
	assert.Len(t, routes.Transit, 2)
	assert.Equal(t, "AC301", routes.Transit[0].Legs[1].FlightNumber)
	assert.Equal(t, "AC302", routes.Transit[1].Legs[1].FlightNumber)
}

func TestFlightService_SearchRoutes_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache)

	ctx := context.Background()
	cached := &domain.RouteOptions{Direct: []domain.Flight{flightAt(1, "AC101", "DEL", "BLR", 8, 11)}}
	mockCache.On("GetRoutes", ctx, "DEL", "BLR", searchDate).Return(cached, nil).Once()

	routes, err := service.SearchRoutes(ctx, "DEL", "BLR", searchDate)

	assert.NoError(t, err)
	assert.Equal(t, cached, routes)
	mockRepo.AssertNotCalled(t, "FindDirect")
}
