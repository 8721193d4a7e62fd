// Package match implements qualification and matching (C9): which
// predictions are eligible SBSP<->SBRJ routes, which eligible predictions
// pair with an observed Flight, and the geographic gate that must pass
// before a pair reaches the KPI or trajectory-accuracy engines.
package match

import (
	"github.com/flightfusion/fusion/internal/geodesy"
	"github.com/flightfusion/fusion/internal/model"
)

const (
	gateNauticalMiles = 2.0
	kmPerNauticalMile = 1.852
	gateMaxFlightLevel = 4.0
)

// Qualifies reports whether pf is a usable SBSP<->SBRJ route.
func Qualifies(pf *model.PredictedFlight) bool {
	if pf == nil || len(pf.RouteElements) < 2 {
		return false
	}
	first := pf.RouteElements[0]
	last := pf.RouteElements[len(pf.RouteElements)-1]
	if first.ElementType != model.ElementAerodrome || last.ElementType != model.ElementAerodrome {
		return false
	}
	pair := map[string]bool{first.Indicative: true, last.Indicative: true}
	return len(pair) == 2 && pair["SBSP"] && pair["SBRJ"]
}

// Matches reports whether a qualified prediction pairs with flight.
func Matches(pf *model.PredictedFlight, flight *model.Flight) bool {
	if pf == nil || flight == nil {
		return false
	}
	return pf.InstanceID == flight.PlanID
}

// Pair is a qualified, matched (prediction, flight) pair.
type Pair struct {
	Prediction *model.PredictedFlight
	Flight     *model.Flight
}

// PassesGeographicGate applies the 2NM / FL<=4 bound to a matched pair that
// carries tracking points. Predictions or flights without tracking points or
// route elements never pass.
func PassesGeographicGate(p Pair) bool {
	if len(p.Flight.TrackingPoints) == 0 || len(p.Prediction.RouteElements) < 2 {
		return false
	}

	firstTP := p.Flight.TrackingPoints[0]
	lastTP := p.Flight.TrackingPoints[len(p.Flight.TrackingPoints)-1]

	if firstTP.FlightLevel > gateMaxFlightLevel || lastTP.FlightLevel > gateMaxFlightLevel {
		return false
	}

	firstRE := p.Prediction.RouteElements[0]
	lastRE := p.Prediction.RouteElements[len(p.Prediction.RouteElements)-1]

	maxKm := gateNauticalMiles * kmPerNauticalMile

	dStart := geodesy.DistanceKm(
		geodesy.ToDegrees(firstTP.Latitude), geodesy.ToDegrees(firstTP.Longitude),
		firstRE.Latitude, firstRE.Longitude)
	dEnd := geodesy.DistanceKm(
		geodesy.ToDegrees(lastTP.Latitude), geodesy.ToDegrees(lastTP.Longitude),
		lastRE.Latitude, lastRE.Longitude)

	return dStart <= maxKm && dEnd <= maxKm
}

// QualifiedMatches filters predictions and flights down to geographically
// valid pairs ready for the KPI and trajectory-accuracy engines.
func QualifiedMatches(predictions []*model.PredictedFlight, flights []*model.Flight) []Pair {
	byPlanID := make(map[int64]*model.Flight, len(flights))
	for _, f := range flights {
		byPlanID[f.PlanID] = f
	}

	var pairs []Pair
	for _, pf := range predictions {
		if !Qualifies(pf) {
			continue
		}
		flight, ok := byPlanID[pf.InstanceID]
		if !ok {
			continue
		}
		pair := Pair{Prediction: pf, Flight: flight}
		if PassesGeographicGate(pair) {
			pairs = append(pairs, pair)
		}
	}
	return pairs
}
