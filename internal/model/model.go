// Package model holds the value types shared by the ingestion, storage, and
// analytics packages: the observed-flight side (FlightIntention,
// RealPathPoint, ReplayPath, Flight, TrackingPoint) and the predicted-flight
// side (RouteElement, RouteSegment, PredictedFlight), plus the audit record
// (ProcessingHistory).
package model

import "time"

// FlightIntention is embedded in a ReplayPath packet.
type FlightIntention struct {
	PlanID                   int64
	Indicative               string
	AircraftType             string
	Airline                  string
	StartPointIndicative     string
	EndPointIndicative       string
	CruiseLevel              int
	CruiseSpeed              int
	EOBT                     string
	ETA                      string
	FlightPlanDate           string
	CurrentDateTimeOfArrival string
	Finished                 bool
	FlightRules              string
	SSRCode                  string
}

// RealPathPoint is embedded in a ReplayPath packet. Latitude/Longitude are
// in radians; FlightLevel is in hundreds of feet.
type RealPathPoint struct {
	PlanID         int64
	IndicativeSafe string
	Latitude       float64
	Longitude      float64
	FlightLevel    float64
	TrackSpeed     float64
	SeqNum         int64
	DetectorSource string
	Simulating     bool
}

// ReplayPath is one packet from the replay store stream.
type ReplayPath struct {
	PacketStoredTimestamp   time.Time
	ListFlightIntention     []FlightIntention
	ListRealPath            []RealPathPoint
}

// TrackingPoint is an appended, deduplicated observation on a Flight.
type TrackingPoint struct {
	Timestamp      time.Time
	Latitude       float64 // radians
	Longitude      float64 // radians
	FlightLevel    float64 // hundreds of feet
	Speed          float64 // knots
	IndicativeSafe string
	DetectorSource string
}

// EnhancedDedupKey is the (timestamp, round6(lat), round6(lon), indicativeSafe)
// tuple used by C4's append dedup policy.
type EnhancedDedupKey struct {
	TimestampUnixMilli int64
	LatRounded         float64
	LonRounded         float64
	IndicativeSafe     string
}

// LegacyDedupKey is the (round6(lat), round6(lon), indicativeSafe) tuple used
// by the cleanup maintenance operation.
type LegacyDedupKey struct {
	LatRounded     float64
	LonRounded     float64
	IndicativeSafe string
}

// Flight is the C4 per-planId document.
type Flight struct {
	PlanID  int64
	TrackID string
	FlightIntention

	TrackingPoints      []TrackingPoint
	HasTrackingData     bool
	TotalTrackingPoints int
	LastPacketTimestamp time.Time
}

// EnhancedKey returns the enhanced dedup key for this TrackingPoint.
func (tp TrackingPoint) EnhancedKey() EnhancedDedupKey {
	return EnhancedDedupKey{
		TimestampUnixMilli: tp.Timestamp.UnixMilli(),
		LatRounded:         round6(tp.Latitude),
		LonRounded:         round6(tp.Longitude),
		IndicativeSafe:     tp.IndicativeSafe,
	}
}

// LegacyKey returns the legacy uniqueness key for a TrackingPoint.
func (tp TrackingPoint) LegacyKey() LegacyDedupKey {
	return LegacyDedupKey{
		LatRounded:     round6(tp.Latitude),
		LonRounded:     round6(tp.Longitude),
		IndicativeSafe: tp.IndicativeSafe,
	}
}

func round6(v float64) float64 {
	const scale = 1e6
	if v >= 0 {
		return float64(int64(v*scale+0.5)) / scale
	}
	return float64(int64(v*scale-0.5)) / scale
}

// RouteElementType enumerates the kinds of RouteElement.
type RouteElementType string

const (
	ElementAerodrome          RouteElementType = "AERODROME"
	ElementWaypoint           RouteElementType = "WAYPOINT"
	ElementNavaid             RouteElementType = "NAVAID"
	ElementInterpolated       RouteElementType = "INTERPOLATED"
	ElementInterpolatedLinear RouteElementType = "INTERPOLATED_LINEAR"
)

// RouteElement is one vertex of a predicted route polyline.
type RouteElement struct {
	Indicative          string
	ElementType         RouteElementType
	Latitude            float64 // degrees
	Longitude           float64 // degrees
	LevelMeters         float64
	Altitude            float64
	SpeedMeterPerSecond float64
	EETMinutes          float64
	SequenceNumber      int
	Interpolated        bool
	CoordinateText      string
}

// RouteSegment references two RouteElements by index within the owning
// PredictedFlight's RouteElements slice.
type RouteSegment struct {
	ID         int64
	Distance   float64
	ElementAID int
	ElementBID int
}

// PredictedFlight is the C5 per-instanceId document.
type PredictedFlight struct {
	InstanceID               int64
	RouteID                  int64
	Indicative               string
	AircraftType             string
	Airline                  string
	StartPointIndicative     string
	EndPointIndicative       string
	CruiseLevel              int
	CruiseSpeed              int
	Time                     string // bracketed range literal "[depart,arrive]", halves like "Thu Jul 10 22:25:00 UTC 2025"
	FlightPlanDate           string
	CurrentDateTimeOfArrival string
	RouteElements            []RouteElement
	RouteSegments            []RouteSegment
	TotalRouteElements       int
}

// Operation enumerates the ProcessingHistory operation kinds.
type Operation string

const (
	OpProcessRealData     Operation = "PROCESS_REAL_DATA"
	OpSyncPredictedData   Operation = "SYNC_PREDICTED_DATA"
	OpDensifyPredictedData Operation = "DENSIFY_PREDICTED_DATA"
)

// Status enumerates ProcessingHistory terminal/non-terminal statuses.
type Status string

const (
	StatusInProgress     Status = "IN_PROGRESS"
	StatusSuccess        Status = "SUCCESS"
	StatusPartialSuccess Status = "PARTIAL_SUCCESS"
	StatusFailure        Status = "FAILURE"
)

// ProcessingHistory is one C12 audit record.
type ProcessingHistory struct {
	ID                string
	Timestamp         time.Time
	Operation         Operation
	Endpoint          string
	Status            Status
	DurationMs        int64
	RecordsProcessed  int
	RecordsWithErrors int
	Details           string
	ErrorMessage      string
	RequestParameters string
}
