package domain

import "time"

type Flight struct {
	ID                   int64
	FlightNumber         string
	AirlineName          string
	Origin               string
	Destination          string
	DepartureTime        time.Time
	ArrivalTime          time.Time
	AircraftType         string
	MaxCargoWeightKg     int
	AvailableCargoWeight int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (f *Flight) Duration() time.Duration {
	return f.ArrivalTime.Sub(f.DepartureTime)
}

func (f *Flight) IsAvailableForBooking() bool {
	return f.AvailableCargoWeight > 0
}

// Route is an ordered list of flight legs between two airports.
// Direct routes have one leg, transit routes two.
type Route struct {
	Legs []Flight
}

// ArrivalTime of the last leg; zero for an empty route.
func (r Route) ArrivalTime() time.Time {
	if len(r.Legs) == 0 {
		return time.Time{}
	}
	return r.Legs[len(r.Legs)-1].ArrivalTime
}

// RouteOptions is the result of a route search: direct flights plus
// bounded one-transit connections.
type RouteOptions struct {
	Direct  []Flight
	Transit []Route
}
