// Package kpi implements the punctuality KPI engine (C10, "KPI14"):
// percentage of flights whose executed duration falls within +-3/+-5/+-15
// minute tolerance windows of the predicted duration.
package kpi

import (
	"math"

	"github.com/flightfusion/fusion/internal/match"
	"github.com/flightfusion/fusion/internal/tsparse"
)

const (
	window3Min  = 3 * 60 * 1000
	window5Min  = 5 * 60 * 1000
	window15Min = 15 * 60 * 1000
)

// Detail is one flight's punctuality row.
type Detail struct {
	PlanID                int64
	FlightIndicative      string
	ActualDurationMs      int64
	PredictedDurationMs   int64
	TimeDifferenceMs      int64
	TimeDifferenceMinutes float64
	Within3Min            bool
	Within5Min            bool
	Within15Min           bool
}

// Report is the aggregate result of Run.
type Report struct {
	TotalAnalyzed     int
	Within3MinCount   int
	Within3MinPercent float64
	Within5MinCount   int
	Within5MinPercent float64
	Within15MinCount  int
	Within15MinPercent float64
	DetailedResults   []Detail
	Errors            int
}

// Run computes punctuality over geographically valid matched pairs.
func Run(pairs []match.Pair) Report {
	var report Report

	for _, p := range pairs {
		if len(p.Flight.TrackingPoints) < 2 {
			report.Errors++
			continue
		}
		actualMs := p.Flight.TrackingPoints[len(p.Flight.TrackingPoints)-1].Timestamp.Sub(
			p.Flight.TrackingPoints[0].Timestamp).Milliseconds()

		predictedMs, err := tsparse.ParseRange(p.Prediction.Time)
		if err != nil {
			report.Errors++
			continue
		}

		delta := actualMs - predictedMs
		if delta < 0 {
			delta = -delta
		}

		d := Detail{
			PlanID:                p.Flight.PlanID,
			FlightIndicative:      p.Flight.Indicative,
			ActualDurationMs:      actualMs,
			PredictedDurationMs:   predictedMs,
			TimeDifferenceMs:      delta,
			TimeDifferenceMinutes: float64(delta) / 60000.0,
			Within3Min:            delta < window3Min,
			Within5Min:            delta < window5Min,
			Within15Min:           delta < window15Min,
		}

		report.TotalAnalyzed++
		if d.Within3Min {
			report.Within3MinCount++
		}
		if d.Within5Min {
			report.Within5MinCount++
		}
		if d.Within15Min {
			report.Within15MinCount++
		}
		report.DetailedResults = append(report.DetailedResults, d)
	}

	if report.TotalAnalyzed > 0 {
		report.Within3MinPercent = roundToOneDecimal(100 * float64(report.Within3MinCount) / float64(report.TotalAnalyzed))
		report.Within5MinPercent = roundToOneDecimal(100 * float64(report.Within5MinCount) / float64(report.TotalAnalyzed))
		report.Within15MinPercent = roundToOneDecimal(100 * float64(report.Within15MinCount) / float64(report.TotalAnalyzed))
	}

	return report
}

func roundToOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
