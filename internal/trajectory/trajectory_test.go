package trajectory

import (
	"testing"

	"github.com/flightfusion/fusion/internal/match"
	"github.com/flightfusion/fusion/internal/model"
)

func TestRunSkipsUnequalPointCounts(t *testing.T) {
	flight := &model.Flight{
		PlanID:         1,
		TrackingPoints: make([]model.TrackingPoint, 60),
	}
	pf := &model.PredictedFlight{
		InstanceID:    1,
		RouteElements: make([]model.RouteElement, 20),
	}

	report := Run([]match.Pair{{Flight: flight, Prediction: pf}})

	if report.TotalSkippedFlights != 1 {
		t.Fatalf("TotalSkippedFlights = %d, want 1", report.TotalSkippedFlights)
	}
	if len(report.FlightResults) != 0 {
		t.Fatalf("expected no per-flight result for skipped flight")
	}
}

func TestRunComputesErrorsForEqualPointCounts(t *testing.T) {
	flight := &model.Flight{
		PlanID: 1,
		TrackingPoints: []model.TrackingPoint{
			{Latitude: 0.1, Longitude: 0.2, FlightLevel: 100},
			{Latitude: 0.11, Longitude: 0.21, FlightLevel: 101},
		},
	}
	pf := &model.PredictedFlight{
		InstanceID: 1,
		RouteElements: []model.RouteElement{
			{Latitude: 5.7, Longitude: 11.4, LevelMeters: 3048}, // ~degrees(0.1 rad)
			{Latitude: 6.3, Longitude: 12.0, LevelMeters: 3078},
		},
	}

	report := Run([]match.Pair{{Flight: flight, Prediction: pf}})
	if report.TotalAnalyzedFlights != 1 || report.TotalSkippedFlights != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.FlightResults) != 1 {
		t.Fatalf("expected one flight result")
	}
	fr := report.FlightResults[0]
	if fr.PointCount != 2 {
		t.Fatalf("PointCount = %d, want 2", fr.PointCount)
	}
	if fr.HorizontalRMSE < 0 || fr.VerticalRMSE < 0 {
		t.Fatalf("RMSE must be non-negative: %+v", fr)
	}
}

func TestHorizontalRMSEMetersConvertsAtReportLayer(t *testing.T) {
	got := HorizontalRMSEMeters(1.0)
	want := 6371.0 * 1000.0
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}
