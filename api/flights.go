package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/aircargo/internal/domain"
	"github.com/Domenick1991/aircargo/internal/repository"
	"github.com/Domenick1991/aircargo/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.POST("/", h.create)
	router.GET("/:id", h.get)
	router.POST("/routes", h.routes)
}

type createFlightRequest struct {
	FlightNumber   string    `json:"flight_number"`
	AirlineName    string    `json:"airline_name"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	AircraftType   string    `json:"aircraft_type"`
	MaxCargoWeight int       `json:"max_cargo_weight"`
}

type routeSearchRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
}

type flightResponse struct {
	ID                   int64  `json:"id"`
	FlightNumber         string `json:"flight_number"`
	AirlineName          string `json:"airline_name"`
	Origin               string `json:"origin"`
	Destination          string `json:"destination"`
	DepartureTime        string `json:"departure_time"`
	ArrivalTime          string `json:"arrival_time"`
	AircraftType         string `json:"aircraft_type,omitempty"`
	DurationMinutes      int    `json:"duration_minutes"`
	MaxCargoWeight       int    `json:"max_cargo_weight"`
	AvailableCargoWeight int    `json:"available_cargo_weight"`
}

type routeOptionsResponse struct {
	DirectFlights []flightResponse   `json:"direct_flights"`
	TransitRoutes [][]flightResponse `json:"transit_routes"`
}

func toFlightResponse(f *domain.Flight) flightResponse {
	return flightResponse{
		ID:                   f.ID,
		FlightNumber:         f.FlightNumber,
		AirlineName:          f.AirlineName,
		Origin:               f.Origin,
		Destination:          f.Destination,
		DepartureTime:        f.DepartureTime.Format(time.RFC3339),
		ArrivalTime:          f.ArrivalTime.Format(time.RFC3339),
		AircraftType:         f.AircraftType,
		DurationMinutes:      int(f.Duration().Minutes()),
		MaxCargoWeight:       f.MaxCargoWeightKg,
		AvailableCargoWeight: f.AvailableCargoWeight,
	}
}

func (h *FlightHandler) list(c *gin.Context) {
	filter := repository.FlightFilter{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		Airline:     c.Query("airline"),
	}
	if date := c.Query("date"); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
			return
		}
		filter.Date = &parsed
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]flightResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toFlightResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *FlightHandler) create(c *gin.Context) {
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Create(c.Request.Context(), &domain.Flight{
		FlightNumber:     req.FlightNumber,
		AirlineName:      req.AirlineName,
		Origin:           req.Origin,
		Destination:      req.Destination,
		DepartureTime:    req.DepartureTime,
		ArrivalTime:      req.ArrivalTime,
		AircraftType:     req.AircraftType,
		MaxCargoWeightKg: req.MaxCargoWeight,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toFlightResponse(created))
}

func (h *FlightHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(flight))
}

func (h *FlightHandler) routes(c *gin.Context) {
	var req routeSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Origin == "" || req.Destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin and destination are required"})
		return
	}
	date, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid departure_date, use YYYY-MM-DD"})
		return
	}

	routes, err := h.service.SearchRoutes(c.Request.Context(), req.Origin, req.Destination, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := routeOptionsResponse{
		DirectFlights: make([]flightResponse, 0, len(routes.Direct)),
		TransitRoutes: make([][]flightResponse, 0, len(routes.Transit)),
	}
	for i := range routes.Direct {
		resp.DirectFlights = append(resp.DirectFlights, toFlightResponse(&routes.Direct[i]))
	}
	for _, route := range routes.Transit {
		legs := make([]flightResponse, 0, len(route.Legs))
		for i := range route.Legs {
			legs = append(legs, toFlightResponse(&route.Legs[i]))
		}
		resp.TransitRoutes = append(resp.TransitRoutes, legs)
	}
	c.JSON(http.StatusOK, resp)
}
