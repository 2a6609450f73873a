package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/aircargo/internal/domain"
	"github.com/Domenick1991/aircargo/internal/repository"
	"github.com/Domenick1991/aircargo/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/", h.list)
	router.GET("/:ref_id", h.get)
	router.GET("/:ref_id/events", h.events)
	router.GET("/:ref_id/history", h.history)
	router.POST("/:ref_id/depart", h.depart)
	router.POST("/:ref_id/arrive", h.arrive)
	router.POST("/:ref_id/deliver", h.deliver)
	router.POST("/:ref_id/cancel", h.cancel)
}

type transitionRequest struct {
	Location    string `json:"location"`
	FlightID    *int64 `json:"flight_id"`
	Description string `json:"description"`
}

type bookingResponse struct {
	RefID               string           `json:"ref_id"`
	Origin              string           `json:"origin"`
	Destination         string           `json:"destination"`
	Pieces              int              `json:"pieces"`
	WeightKg            int              `json:"weight_kg"`
	Status              string           `json:"status"`
	CurrentLocation     string           `json:"current_location,omitempty"`
	CustomerName        string           `json:"customer_name"`
	CustomerEmail       string           `json:"customer_email"`
	CustomerPhone       string           `json:"customer_phone"`
	Description         string           `json:"description,omitempty"`
	SpecialInstructions string           `json:"special_instructions,omitempty"`
	Flights             []flightResponse `json:"flights"`
	CreatedAt           string           `json:"created_at"`
	UpdatedAt           string           `json:"updated_at"`
}

type eventResponse struct {
	ID          int64             `json:"id"`
	Type        string            `json:"event_type"`
	Location    string            `json:"location"`
	FlightID    *int64            `json:"flight_id,omitempty"`
	Description string            `json:"description"`
	Timestamp   string            `json:"timestamp"`
	CreatedBy   string            `json:"created_by"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type bookingHistoryResponse struct {
	bookingResponse
	Events []eventResponse `json:"events"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	flights := make([]flightResponse, 0, len(b.Flights))
	for i := range b.Flights {
		flights = append(flights, toFlightResponse(&b.Flights[i]))
	}
	return bookingResponse{
		RefID:               b.RefID,
		Origin:              b.Origin,
		Destination:         b.Destination,
		Pieces:              b.Pieces,
		WeightKg:            b.WeightKg,
		Status:              string(b.Status),
		CurrentLocation:     b.CurrentLocation,
		CustomerName:        b.CustomerName,
		CustomerEmail:       b.CustomerEmail,
		CustomerPhone:       b.CustomerPhone,
		Description:         b.Description,
		SpecialInstructions: b.SpecialInstructions,
		Flights:             flights,
		CreatedAt:           b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           b.UpdatedAt.Format(time.RFC3339),
	}
}

func toEventResponse(ev *domain.BookingEvent) eventResponse {
	return eventResponse{
		ID:          ev.ID,
		Type:        string(ev.Type),
		Location:    ev.Location,
		FlightID:    ev.FlightID,
		Description: ev.Description,
		Timestamp:   ev.Timestamp.Format(time.RFC3339Nano),
		CreatedBy:   ev.CreatedBy,
		Metadata:    ev.Metadata,
	}
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) list(c *gin.Context) {
	filter := repository.BookingFilter{
		Status:      c.Query("status"),
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
	}
	bookings, err := h.service.ListBookings(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		resp = append(resp, toBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) get(c *gin.Context) {
	found, err := h.service.GetBooking(c.Request.Context(), c.Param("ref_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(found))
}

func (h *BookingHandler) events(c *gin.Context) {
	events, err := h.service.GetBookingEvents(c.Request.Context(), c.Param("ref_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]eventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, toEventResponse(&events[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) history(c *gin.Context) {
	refID := c.Param("ref_id")
	found, err := h.service.GetBooking(c.Request.Context(), refID)
	if err != nil {
		writeError(c, err)
		return
	}
	events, err := h.service.GetBookingEvents(c.Request.Context(), refID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := bookingHistoryResponse{bookingResponse: toBookingResponse(found)}
	resp.Events = make([]eventResponse, 0, len(events))
	for i := range events {
		resp.Events = append(resp.Events, toEventResponse(&events[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) depart(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.DepartBooking(c.Request.Context(), c.Param("ref_id"), booking.TransitionInput{
		Location:    req.Location,
		FlightID:    req.FlightID,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) arrive(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.ArriveBooking(c.Request.Context(), c.Param("ref_id"), booking.TransitionInput{
		Location:    req.Location,
		FlightID:    req.FlightID,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) deliver(c *gin.Context) {
	var req transitionRequest
	// Body is optional for delivery.
	_ = c.ShouldBindJSON(&req)

	updated, err := h.service.DeliverBooking(c.Request.Context(), c.Param("ref_id"), req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	updated, err := h.service.CancelBooking(c.Request.Context(), c.Param("ref_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}
