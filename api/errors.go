package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/aircargo/internal/domain"
	"github.com/gin-gonic/gin"
)

// writeError maps service errors onto HTTP statuses. Conflicts and lock
// timeouts are retryable; the request gave up without mutating anything.
func writeError(c *gin.Context, err error) {
	var capErr *domain.InsufficientCapacityError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &capErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         capErr.Error(),
			"flight_number": capErr.FlightNumber,
			"available_kg":  capErr.AvailableKg,
			"required_kg":   capErr.RequiredKg,
		})
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidFlightReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrLockTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
