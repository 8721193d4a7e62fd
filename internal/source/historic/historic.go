// Package historic models the external historic store's typed object graph
// collaborator (out of scope per the system boundary): flight-plan
// predictions reachable by planId, with lazily-loaded route geometry.
package historic

import "context"

// RoutePoint is one geometry vertex as the historic store exposes it:
// either a primary (lat, lon) pair or, failing that, free-form coordinate
// text the prediction ingester must fall back to.
type RoutePoint struct {
	Indicative     string
	ElementType    string
	HasLatLon      bool
	Latitude       float64
	Longitude      float64
	CoordinateText string
	LevelMeters    float64
	Altitude       float64
	SpeedMPS       float64
	EETMinutes     float64
	SequenceNumber int
}

// PredictedFlightGraph is the lazily-loaded object graph for one planId, as
// the historic store would hand it over before flattening.
type PredictedFlightGraph struct {
	InstanceID               int64
	RouteID                  int64
	Indicative               string
	AircraftType             string
	Airline                  string
	StartPointIndicative     string
	EndPointIndicative       string
	CruiseLevel              int
	CruiseSpeed              int
	Time                     string
	FlightPlanDate           string
	CurrentDateTimeOfArrival string
	Route                    []RoutePoint
}

// Store fetches the predicted-flight object graph for a planId. A nil graph
// with a nil error means "not found"; a non-nil error that unwraps to a
// deserialization fault is also treated as "not found" by the caller (C7),
// per the serialization-fault policy.
type Store interface {
	FetchByPlanID(ctx context.Context, planID int64) (*PredictedFlightGraph, error)
}
