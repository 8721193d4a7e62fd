package match

import (
	"testing"
	"time"

	"github.com/flightfusion/fusion/internal/model"
)

func sbspRJPrediction(instanceID int64) *model.PredictedFlight {
	return &model.PredictedFlight{
		InstanceID: instanceID,
		RouteElements: []model.RouteElement{
			{Indicative: "SBSP", ElementType: model.ElementAerodrome, Latitude: -23.5505, Longitude: -46.6333},
			{Indicative: "SBRJ", ElementType: model.ElementAerodrome, Latitude: -22.9068, Longitude: -43.1729},
		},
	}
}

func TestQualifiesRequiresSBSPRJPair(t *testing.T) {
	if !Qualifies(sbspRJPrediction(1)) {
		t.Fatalf("expected SBSP<->SBRJ route to qualify")
	}

	notQualified := &model.PredictedFlight{
		RouteElements: []model.RouteElement{
			{Indicative: "SBSP", ElementType: model.ElementAerodrome},
			{Indicative: "SBGR", ElementType: model.ElementAerodrome},
		},
	}
	if Qualifies(notQualified) {
		t.Fatalf("expected non SBSP/SBRJ route to not qualify")
	}
}

func TestQualifiesRequiresAerodromeEndpoints(t *testing.T) {
	pf := &model.PredictedFlight{
		RouteElements: []model.RouteElement{
			{Indicative: "SBSP", ElementType: model.ElementWaypoint},
			{Indicative: "SBRJ", ElementType: model.ElementAerodrome},
		},
	}
	if Qualifies(pf) {
		t.Fatalf("expected non-aerodrome endpoint to fail qualification")
	}
}

func TestMatchesByInstanceIDEqualsPlanID(t *testing.T) {
	pf := sbspRJPrediction(42)
	flight := &model.Flight{PlanID: 42}
	if !Matches(pf, flight) {
		t.Fatalf("expected match on equal ids")
	}
	if Matches(pf, &model.Flight{PlanID: 43}) {
		t.Fatalf("expected no match on differing ids")
	}
}

func TestGeographicGatePassesWithinTolerance(t *testing.T) {
	pf := sbspRJPrediction(1)
	flight := &model.Flight{
		PlanID: 1,
		TrackingPoints: []model.TrackingPoint{
			{Latitude: -23.5505 * 3.14159265358979 / 180, Longitude: -46.6333 * 3.14159265358979 / 180, FlightLevel: 0, Timestamp: time.Now()},
			{Latitude: -22.9068 * 3.14159265358979 / 180, Longitude: -43.1729 * 3.14159265358979 / 180, FlightLevel: 2, Timestamp: time.Now()},
		},
	}
	if !PassesGeographicGate(Pair{Prediction: pf, Flight: flight}) {
		t.Fatalf("expected gate to pass for coincident endpoints")
	}
}

func TestGeographicGateFailsAboveFlightLevel(t *testing.T) {
	pf := sbspRJPrediction(1)
	flight := &model.Flight{
		PlanID: 1,
		TrackingPoints: []model.TrackingPoint{
			{Latitude: -23.5505 * 3.14159265358979 / 180, Longitude: -46.6333 * 3.14159265358979 / 180, FlightLevel: 10},
			{Latitude: -22.9068 * 3.14159265358979 / 180, Longitude: -43.1729 * 3.14159265358979 / 180, FlightLevel: 2},
		},
	}
	if PassesGeographicGate(Pair{Prediction: pf, Flight: flight}) {
		t.Fatalf("expected gate to fail above FL4")
	}
}
