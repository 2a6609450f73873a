package domain

import "time"

type EventType string

const (
	EventTypeBooked    EventType = "BOOKED"
	EventTypeDeparted  EventType = "DEPARTED"
	EventTypeArrived   EventType = "ARRIVED"
	EventTypeDelivered EventType = "DELIVERED"
	EventTypeCancelled EventType = "CANCELLED"
	EventTypeInTransit EventType = "IN_TRANSIT"
	EventTypeDelayed   EventType = "DELAYED"
	EventTypeCustom    EventType = "CUSTOM"
)

// BookingEvent is one entry of a booking's append-only history.
// Rows are never updated or deleted; corrections append new events.
type BookingEvent struct {
	ID          int64
	BookingID   int64
	Type        EventType
	Location    string
	FlightID    *int64
	Description string
	Timestamp   time.Time
	CreatedBy   string
	Metadata    map[string]string
}
