package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/aircargo/internal/domain"
	"github.com/Domenick1991/aircargo/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockFlightUseCase is a mock implementation of flights.FlightUseCase
type MockFlightUseCase struct {
	mock.Mock
}

func (m *MockFlightUseCase) List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) Create(ctx context.Context, flight *domain.Flight) (*domain.Flight, error) {
	args := m.Called(ctx, flight)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) SearchRoutes(ctx context.Context, origin, destination string, date time.Time) (*domain.RouteOptions, error) {
	args := m.Called(ctx, origin, destination, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RouteOptions), args.Error(1)
}

func TestFlightHandler_list(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/flights?origin=DEL", nil)

	list := []domain.Flight{
		{ID: 1, FlightNumber: "AC101", Origin: "DEL", Destination: "BLR", MaxCargoWeightKg: 5000, AvailableCargoWeight: 4200},
	}
	mockService.On("List", c.Request.Context(), repository.FlightFilter{Origin: "DEL"}).Return(list, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []flightResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
	assert.Equal(t, "AC101", resp[0].FlightNumber)
	assert.Equal(t, 4200, resp[0].AvailableCargoWeight)

	mockService.AssertExpectations(t)
}

func TestFlightHandler_list_invalidDate(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/flights?date=15-08-2026", nil)

	handler.list(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "List")
}

func TestFlightHandler_get_notFound(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "77"}}
	c.Request = httptest.NewRequest("GET", "/flights/77", nil)

	mockService.On("GetByID", c.Request.Context(), int64(77)).Return(nil, domain.ErrNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlightHandler_create(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := `{"flight_number":"AC101","airline_name":"AirCargo","origin":"DEL","destination":"BLR","departure_time":"2026-08-15T10:00:00Z","arrival_time":"2026-08-15T13:00:00Z","max_cargo_weight":5000}`
	c.Request = httptest.NewRequest("POST", "/flights", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	created := &domain.Flight{ID: 1, FlightNumber: "AC101", Origin: "DEL", Destination: "BLR", MaxCargoWeightKg: 5000, AvailableCargoWeight: 5000}
	mockService.On("Create", c.Request.Context(), mock.Anything).Return(created, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp flightResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, 5000, resp.AvailableCargoWeight)
}

func TestFlightHandler_routes(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/flights/routes", strings.NewReader(`{"origin":"DEL","destination":"BLR","departure_date":"2026-08-15"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	options := &domain.RouteOptions{
		Direct: []domain.Flight{{ID: 1, FlightNumber: "AC101", Origin: "DEL", Destination: "BLR"}},
		Transit: []domain.Route{{Legs: []domain.Flight{
			{ID: 2, FlightNumber: "AC201", Origin: "DEL", Destination: "BOM"},
			{ID: 3, FlightNumber: "AC202", Origin: "BOM", Destination: "BLR"},
		}}},
	}
	mockService.On("SearchRoutes", c.Request.Context(), "DEL", "BLR", date).Return(options, nil)

	handler.routes(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp routeOptionsResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.DirectFlights, 1)
	assert.Len(t, resp.TransitRoutes, 1)
	assert.Len(t, resp.TransitRoutes[0], 2)
	assert.Equal(t, "AC202", resp.TransitRoutes[0][1].FlightNumber)
}

func TestFlightHandler_routes_invalidDate(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/flights/routes", strings.NewReader(`{"origin":"DEL","destination":"BLR","departure_date":"tomorrow"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.routes(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "SearchRoutes")
}
