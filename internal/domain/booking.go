package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "BOOKED"
	BookingStatusDeparted  BookingStatus = "DEPARTED"
	BookingStatusArrived   BookingStatus = "ARRIVED"
	BookingStatusDelivered BookingStatus = "DELIVERED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusBooked, BookingStatusDeparted, BookingStatusArrived,
		BookingStatusDelivered, BookingStatusCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID                  int64
	RefID               string
	Origin              string
	Destination         string
	Pieces              int
	WeightKg            int
	Status              BookingStatus
	CurrentLocation     string
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       string
	Description         string
	SpecialInstructions string
	Flights             []Flight
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewRefID builds a human-friendly booking reference: AC + creation date +
// an 8-char uppercase random suffix, e.g. AC20260831A1B2C3D4.
func NewRefID(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("AC%s%s", now.UTC().Format("20060102"), suffix)
}

// Lifecycle guards. Transitions not allowed here must fail without mutating
// the booking or appending an event.

func (b *Booking) CanDepart() bool {
	return b.Status == BookingStatusBooked
}

func (b *Booking) CanArrive() bool {
	return b.Status == BookingStatusBooked || b.Status == BookingStatusDeparted
}

func (b *Booking) CanDeliver() bool {
	return b.Status == BookingStatusArrived
}

func (b *Booking) CanBeCancelled() bool {
	switch b.Status {
	case BookingStatusArrived, BookingStatusDelivered, BookingStatusCancelled:
		return false
	}
	return true
}

// IsTerminal reports whether no further lifecycle transition can succeed.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusDelivered || b.Status == BookingStatusCancelled
}
