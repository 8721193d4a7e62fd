// Package deserialize adapts opaque replay-store packet bytes into the
// internal ReplayPath value (C3). The wire format itself is out of scope
// (the Oracle source schemas and binary serializer are external
// collaborators); this adapter treats the payload as a JSON envelope, the
// shape every other internal component already exchanges, and fails soft.
package deserialize

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/flightfusion/fusion/internal/model"
)

// ErrSkip indicates the byte sequence could not be deserialized. The caller
// (C6) must treat this as non-fatal: increment packetsSkipped and continue
// the stream.
var ErrSkip = errors.New("packet skipped: could not deserialize")

type wireIntention struct {
	PlanID                   int64  `json:"planId"`
	Indicative               string `json:"indicative"`
	AircraftType             string `json:"aircraftType"`
	Airline                  string `json:"airline"`
	StartPointIndicative     string `json:"startPointIndicative"`
	EndPointIndicative       string `json:"endPointIndicative"`
	CruiseLevel              int    `json:"cruiseLevel"`
	CruiseSpeed              int    `json:"cruiseSpeed"`
	EOBT                     string `json:"eobt"`
	ETA                      string `json:"eta"`
	FlightPlanDate           string `json:"flightPlanDate"`
	CurrentDateTimeOfArrival string `json:"currentDateTimeOfArrival"`
	Finished                 bool   `json:"finished"`
	FlightRules              string `json:"flightRules"`
	SSRCode                  string `json:"ssrCode"`
}

type wireRealPathPoint struct {
	PlanID         int64   `json:"planId"`
	IndicativeSafe string  `json:"indicativeSafe"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	FlightLevel    float64 `json:"flightLevel"`
	TrackSpeed     float64 `json:"trackSpeed"`
	SeqNum         int64   `json:"seqNum"`
	Kinematic      struct {
		DetectorSource string `json:"detectorSource"`
	} `json:"kinematic"`
	Simulating bool `json:"simulating"`
}

type wirePacket struct {
	ListFlightIntention []wireIntention     `json:"listFlightIntention"`
	ListRealPath        []wireRealPathPoint `json:"listRealPath"`
}

// Deserialize converts raw packet bytes plus the source store's stored-at
// timestamp into a ReplayPath, or returns ErrSkip if raw cannot be parsed.
func Deserialize(raw []byte, storedAt time.Time) (model.ReplayPath, error) {
	var wp wirePacket
	if err := json.Unmarshal(raw, &wp); err != nil {
		return model.ReplayPath{}, ErrSkip
	}

	out := model.ReplayPath{
		PacketStoredTimestamp: storedAt,
		ListFlightIntention:   make([]model.FlightIntention, 0, len(wp.ListFlightIntention)),
		ListRealPath:          make([]model.RealPathPoint, 0, len(wp.ListRealPath)),
	}
	for _, wi := range wp.ListFlightIntention {
		out.ListFlightIntention = append(out.ListFlightIntention, model.FlightIntention{
			PlanID:                   wi.PlanID,
			Indicative:               wi.Indicative,
			AircraftType:             wi.AircraftType,
			Airline:                  wi.Airline,
			StartPointIndicative:     wi.StartPointIndicative,
			EndPointIndicative:       wi.EndPointIndicative,
			CruiseLevel:              wi.CruiseLevel,
			CruiseSpeed:              wi.CruiseSpeed,
			EOBT:                     wi.EOBT,
			ETA:                      wi.ETA,
			FlightPlanDate:           wi.FlightPlanDate,
			CurrentDateTimeOfArrival: wi.CurrentDateTimeOfArrival,
			Finished:                 wi.Finished,
			FlightRules:              wi.FlightRules,
			SSRCode:                  wi.SSRCode,
		})
	}
	for _, wr := range wp.ListRealPath {
		out.ListRealPath = append(out.ListRealPath, model.RealPathPoint{
			PlanID:         wr.PlanID,
			IndicativeSafe: wr.IndicativeSafe,
			Latitude:       wr.Latitude,
			Longitude:      wr.Longitude,
			FlightLevel:    wr.FlightLevel,
			TrackSpeed:     wr.TrackSpeed,
			SeqNum:         wr.SeqNum,
			DetectorSource: wr.Kinematic.DetectorSource,
			Simulating:     wr.Simulating,
		})
	}
	return out, nil
}
