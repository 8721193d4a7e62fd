// Package trajectory implements the 4D trajectory accuracy engine (C11):
// per-flight and aggregate horizontal/vertical MSE and RMSE between
// predicted route elements and observed tracking points, index-aligned
// after densification.
package trajectory

import (
	"math"

	"github.com/flightfusion/fusion/internal/geodesy"
	"github.com/flightfusion/fusion/internal/match"
)

const feetToMeters = 30.48

// FlightResult is one flight's trajectory accuracy metrics.
type FlightResult struct {
	PlanID                 int64
	PredictedIndicative    string
	PointCount             int
	HorizontalMSE          float64 // radians^2, kept raw per the analysis's existing numeric contract
	HorizontalRMSE         float64 // radians
	VerticalMSE            float64 // meters^2
	VerticalRMSE           float64 // meters
	AverageHorizontalError float64
	AverageVerticalError   float64
	MaxHorizontalError     float64
	MaxVerticalError       float64
}

// Aggregate summarizes all analyzed flights.
type Aggregate struct {
	HorizontalRMSE        float64 // radians; convert at report layer
	VerticalRMSE          float64 // meters
	MinHorizontalRMSE     float64
	MaxHorizontalRMSE     float64
	MinVerticalRMSE       float64
	MaxVerticalRMSE       float64
	TotalPointsAnalyzed   int
	AveragePointsPerFlight float64
}

// Report is the result of Run.
type Report struct {
	TotalAnalyzedFlights   int
	TotalQualifiedFlights  int
	TotalSkippedFlights    int
	FlightResults          []FlightResult
	Aggregate              Aggregate
}

// HorizontalRMSEMeters converts a raw radian RMSE to meters using Earth
// radius, a report-layer concern kept separate from the core metric per the
// design notes: the core accumulator must stay in radians^2.
func HorizontalRMSEMeters(radianRMSE float64) float64 {
	return radianRMSE * geodesy.EarthRadiusKm * 1000.0
}

// Run computes trajectory accuracy over geographically valid matched pairs.
// Only pairs with equal point counts (after densification) are analyzed;
// others are counted as skipped.
func Run(pairs []match.Pair) Report {
	var report Report
	report.TotalQualifiedFlights = len(pairs)

	var weightedHorizontalSum, weightedVerticalSum float64
	var totalPoints int
	var minH, maxH, minV, maxV float64
	first := true

	for _, p := range pairs {
		n := len(p.Flight.TrackingPoints)
		if n != len(p.Prediction.RouteElements) {
			report.TotalSkippedFlights++
			continue
		}
		if n == 0 {
			report.TotalSkippedFlights++
			continue
		}

		var sumH, sumV, sumVAbs, maxHErr, maxVErr float64
		for i := 0; i < n; i++ {
			tp := p.Flight.TrackingPoints[i]
			re := p.Prediction.RouteElements[i]

			predLatRad := geodesy.ToRadians(re.Latitude)
			predLonRad := geodesy.ToRadians(re.Longitude)
			dLat := tp.Latitude - predLatRad
			dLon := tp.Longitude - predLonRad
			hErr := dLat*dLat + dLon*dLon

			predictedAltMeters := re.LevelMeters
			realAltMeters := tp.FlightLevel * feetToMeters // FlightLevel is hundreds of feet
			vErr := realAltMeters - predictedAltMeters

			sumH += hErr
			sumV += vErr * vErr
			sumVAbs += math.Abs(vErr)
			if hErr > maxHErr {
				maxHErr = hErr
			}
			if math.Abs(vErr) > maxVErr {
				maxVErr = math.Abs(vErr)
			}
		}

		horizontalMSE := sumH / float64(n)
		verticalMSE := sumV / float64(n)

		fr := FlightResult{
			PlanID:                 p.Flight.PlanID,
			PredictedIndicative:    p.Prediction.Indicative,
			PointCount:             n,
			HorizontalMSE:          horizontalMSE,
			HorizontalRMSE:         math.Sqrt(horizontalMSE),
			VerticalMSE:            verticalMSE,
			VerticalRMSE:           math.Sqrt(verticalMSE),
			AverageHorizontalError: sumH / float64(n),
			AverageVerticalError:   sumVAbs / float64(n),
			MaxHorizontalError:     maxHErr,
			MaxVerticalError:       maxVErr,
		}
		report.FlightResults = append(report.FlightResults, fr)
		report.TotalAnalyzedFlights++

		weightedHorizontalSum += horizontalMSE * float64(n)
		weightedVerticalSum += verticalMSE * float64(n)
		totalPoints += n

		if first {
			minH, maxH = fr.HorizontalRMSE, fr.HorizontalRMSE
			minV, maxV = fr.VerticalRMSE, fr.VerticalRMSE
			first = false
		} else {
			if fr.HorizontalRMSE < minH {
				minH = fr.HorizontalRMSE
			}
			if fr.HorizontalRMSE > maxH {
				maxH = fr.HorizontalRMSE
			}
			if fr.VerticalRMSE < minV {
				minV = fr.VerticalRMSE
			}
			if fr.VerticalRMSE > maxV {
				maxV = fr.VerticalRMSE
			}
		}
	}

	if totalPoints > 0 {
		report.Aggregate = Aggregate{
			HorizontalRMSE:         math.Sqrt(weightedHorizontalSum / float64(totalPoints)),
			VerticalRMSE:           math.Sqrt(weightedVerticalSum / float64(totalPoints)),
			MinHorizontalRMSE:      minH,
			MaxHorizontalRMSE:      maxH,
			MinVerticalRMSE:        minV,
			MaxVerticalRMSE:        maxV,
			TotalPointsAnalyzed:    totalPoints,
			AveragePointsPerFlight: float64(totalPoints) / float64(report.TotalAnalyzedFlights),
		}
	}

	return report
}
