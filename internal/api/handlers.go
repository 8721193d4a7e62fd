package api

import (
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flightfusion/fusion/internal/apperr"
	"github.com/flightfusion/fusion/internal/densify"
	"github.com/flightfusion/fusion/internal/kpi"
	"github.com/flightfusion/fusion/internal/model"
	"github.com/flightfusion/fusion/internal/trajectory"
)

// ProcessOracle handles POST /api/oracle/process (step 1): consumes the
// replay store for the requested date/time window through the C6 ingester.
func (h *Handler) ProcessOracle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		date = h.defaultDate
	}
	startTime := q.Get("startTime")
	endTime := q.Get("endTime")
	if (startTime == "") != (endTime == "") {
		writeJSON(w, http.StatusBadRequest, errorBody("startTime and endTime must both be present or both absent"))
		return
	}
	var startPtr, endPtr *string
	if startTime != "" {
		startPtr, endPtr = &startTime, &endTime
	}

	handle, err := h.auditLog.Start(ctx, model.OpProcessRealData, r.URL.Path, q.Encode())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	src, err := h.openReplay(ctx, date, startPtr, endPtr)
	if err != nil {
		h.auditLog.Finish(ctx, handle, false, 0, 0, "", err.Error())
		writeJSON(w, apperr.StatusCode(err), errorBody(err.Error()))
		return
	}
	defer src.Close()

	totals, err := h.streamIngester().Run(ctx, src)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		h.auditLog.Finish(ctx, handle, false, totals.PacketsProcessed, totals.PacketsSkipped, totals.Message(), err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":  "FAILURE",
			"message": err.Error(),
		})
		return
	}

	h.auditLog.Finish(ctx, handle, true, totals.PacketsProcessed, totals.PacketsSkipped, totals.Message(), "")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                 "SUCCESS",
		"totalFlightsExtracted":  totals.NewFlights,
		"totalFlightsProcessed":  totals.NewFlights + totals.UpdatedFlights,
		"totalTrackingPoints":    totals.PacketsProcessed,
		"processingTimeMs":       elapsed,
		"message":                totals.Message(),
	})
}

// SyncPredictedFlights handles POST /api/predicted-flights/auto-sync (step
// 2): runs the C7 prediction ingester for every planId currently known to
// the flight store.
func (h *Handler) SyncPredictedFlights(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	handle, err := h.auditLog.Start(ctx, model.OpSyncPredictedData, r.URL.Path, "")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	flights, err := h.flights.FindAll(ctx, 0, 1_000_000)
	if err != nil {
		h.auditLog.Finish(ctx, handle, false, 0, 0, "", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	planIDs := make([]int64, len(flights))
	for i, f := range flights {
		planIDs[i] = f.PlanID
	}

	result, err := h.predictionIngester().Ingest(ctx, planIDs)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		h.auditLog.Finish(ctx, handle, false, result.TotalExtracted, result.TotalErrors, "", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	h.auditLog.Finish(ctx, handle, true, result.TotalExtracted, result.TotalErrors,
		fmt.Sprintf("requested=%d extracted=%d notFound=%d errors=%d", result.TotalRequested, result.TotalExtracted, result.TotalNotFound, result.TotalErrors), "")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalRequested":   result.TotalRequested,
		"totalProcessed":   result.TotalExtracted,
		"totalNotFound":    result.TotalNotFound,
		"totalErrors":      result.TotalErrors,
		"processingTimeMs": elapsed,
		"summary":          fmt.Sprintf("%d/%d predictions extracted", result.TotalExtracted, result.TotalRequested),
	})
}

// DensifyTrajectories handles POST /api/trajectory-densification/auto-sync
// (step 3): runs the C8 densifier over every qualified, matched pair.
func (h *Handler) DensifyTrajectories(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	handle, err := h.auditLog.Start(ctx, model.OpDensifyPredictedData, r.URL.Path, "")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	pairs, err := h.loadQualifiedPairs(ctx)
	if err != nil {
		h.auditLog.Finish(ctx, handle, false, 0, 0, "", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	var processed, densifiedElements, errored int
	for _, p := range pairs {
		res := densify.Densify(p.Flight, p.Prediction, h.simulator)
		switch res.Status {
		case densify.Success:
			processed++
			densifiedElements += res.TotalPoints
			if err := h.predictions.Save(ctx, p.Prediction); err != nil {
				errored++
				continue
			}
		case densify.ErrorStatus:
			errored++
		}
	}

	elapsed := time.Since(start).Milliseconds()
	h.auditLog.Finish(ctx, handle, true, processed, errored,
		fmt.Sprintf("processed=%d densifiedElements=%d errors=%d", processed, densifiedElements, errored), "")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalRequested": len(pairs),
		"totalProcessed": processed,
		"summary": map[string]interface{}{
			"totalDensifiedElements": densifiedElements,
		},
		"processingTimeMs": elapsed,
	})
}

// RunPunctualityKPIs handles POST /api/punctuality/kpis.
func (h *Handler) RunPunctualityKPIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pairs, err := h.loadQualifiedPairs(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	report := kpi.Run(pairs)

	sample := report.DetailedResults
	if len(sample) > 10 {
		sample = sample[:10]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalAnalyzed":         report.TotalAnalyzed,
		"within3MinCount":       report.Within3MinCount,
		"within3MinPercentage":  percentString(report.Within3MinPercent),
		"within5MinCount":       report.Within5MinCount,
		"within5MinPercentage":  percentString(report.Within5MinPercent),
		"within15MinCount":      report.Within15MinCount,
		"within15MinPercentage": percentString(report.Within15MinPercent),
		"detailedResults":       report.DetailedResults,
		"sampleDetailedResults": sample,
	})
}

// RunTrajectoryAccuracy handles POST /api/trajectory-accuracy/run.
func (h *Handler) RunTrajectoryAccuracy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	pairs, err := h.loadQualifiedPairs(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	report := trajectory.Run(pairs)
	elapsed := time.Since(start).Milliseconds()

	flightResults := make([]map[string]interface{}, 0, len(report.FlightResults))
	for _, fr := range report.FlightResults {
		flightResults = append(flightResults, map[string]interface{}{
			"planId":                 fr.PlanID,
			"predictedIndicative":    fr.PredictedIndicative,
			"pointCount":             fr.PointCount,
			"horizontalRMSEMeters":   trajectory.HorizontalRMSEMeters(fr.HorizontalRMSE),
			"verticalRMSE":           fr.VerticalRMSE,
			"maxHorizontalErrorMeters": trajectory.HorizontalRMSEMeters(math.Sqrt(fr.MaxHorizontalError)),
			"maxVerticalError":       fr.MaxVerticalError,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalAnalyzedFlights":  report.TotalAnalyzedFlights,
		"totalQualifiedFlights": report.TotalQualifiedFlights,
		"aggregateMetrics": map[string]interface{}{
			"horizontalRMSEMeters":    trajectory.HorizontalRMSEMeters(report.Aggregate.HorizontalRMSE),
			"verticalRMSE":            report.Aggregate.VerticalRMSE,
			"minHorizontalRMSEMeters": trajectory.HorizontalRMSEMeters(report.Aggregate.MinHorizontalRMSE),
			"maxHorizontalRMSEMeters": trajectory.HorizontalRMSEMeters(report.Aggregate.MaxHorizontalRMSE),
			"minVerticalRMSE":         report.Aggregate.MinVerticalRMSE,
			"maxVerticalRMSE":         report.Aggregate.MaxVerticalRMSE,
			"totalPointsAnalyzed":     report.Aggregate.TotalPointsAnalyzed,
		},
		"flightResults":    flightResults,
		"processingTimeMs": elapsed,
	})
}

// SearchFlights handles GET /api/flight-search/by-{kind}?q=...
func (h *Handler) SearchFlights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := chi.URLParam(r, "kind")
	q := r.URL.Query().Get("q")

	pattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(q))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid search query"))
		return
	}

	flights, err := h.flights.FindAll(ctx, 0, 1_000_000)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	preds, err := h.predictions.FindAll(ctx, 0, 1_000_000)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	const limit = 50
	var matchedFlights []*model.Flight
	var matchedPreds []*model.PredictedFlight

	flightField := func(f *model.Flight) string {
		switch kind {
		case "planId":
			return strconv.FormatInt(f.PlanID, 10)
		case "indicative":
			return f.Indicative
		case "origin":
			return f.StartPointIndicative
		case "destination":
			return f.EndPointIndicative
		}
		return ""
	}
	predField := func(p *model.PredictedFlight) string {
		switch kind {
		case "planId":
			return strconv.FormatInt(p.InstanceID, 10)
		case "indicative":
			return p.Indicative
		case "origin":
			return p.StartPointIndicative
		case "destination":
			return p.EndPointIndicative
		}
		return ""
	}

	for _, f := range flights {
		if len(matchedFlights) >= limit {
			break
		}
		if pattern.MatchString(flightField(f)) {
			matchedFlights = append(matchedFlights, f)
		}
	}
	for _, p := range preds {
		if len(matchedPreds) >= limit {
			break
		}
		if pattern.MatchString(predField(p)) {
			matchedPreds = append(matchedPreds, p)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"realFlights":      matchedFlights,
		"predictedFlights": matchedPreds,
		"totalReal":        len(matchedFlights),
		"totalPredicted":   len(matchedPreds),
		"searchType":       kind,
		"query":            q,
	})
}

// FlightDetails handles GET /api/flight-search/details/{planId}.
func (h *Handler) FlightDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	planID, err := strconv.ParseInt(chi.URLParam(r, "planId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid planId"))
		return
	}

	flight, err := h.flights.FindByPlanID(ctx, planID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	prediction, err := h.predictions.FindByInstanceID(ctx, planID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if flight == nil && prediction == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no real or predicted flight for this planId"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"realFlight":      flight,
		"predictedFlight": prediction,
	})
}

// DeleteRealFlight handles DELETE /api/flight-search/real/{planId}.
func (h *Handler) DeleteRealFlight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	planID, err := strconv.ParseInt(chi.URLParam(r, "planId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid planId"))
		return
	}
	deleted, err := h.flights.DeleteByPlanID(ctx, planID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorBody("no real flight for this planId"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

// DeletePredictedFlight handles DELETE /api/flight-search/predicted/{instanceId}.
func (h *Handler) DeletePredictedFlight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, err := strconv.ParseInt(chi.URLParam(r, "instanceId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid instanceId"))
		return
	}
	deleted, err := h.predictions.Delete(ctx, instanceID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorBody("no predicted flight for this instanceId"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

type bulkDeleteRequest struct {
	RealFlightIDs      []int64 `json:"realFlightIds"`
	PredictedFlightIDs []int64 `json:"predictedFlightIds"`
	DeleteMatching     bool    `json:"deleteMatching"`
}

// BulkDelete handles POST /api/flight-search/bulk-delete.
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	realDeleted, predictedDeleted := 0, 0

	for _, id := range req.RealFlightIDs {
		if ok, _ := h.flights.DeleteByPlanID(ctx, id); ok {
			realDeleted++
		}
		if req.DeleteMatching {
			if ok, _ := h.predictions.Delete(ctx, id); ok {
				predictedDeleted++
			}
		}
	}
	for _, id := range req.PredictedFlightIDs {
		if ok, _ := h.predictions.Delete(ctx, id); ok {
			predictedDeleted++
		}
		if req.DeleteMatching {
			if ok, _ := h.flights.DeleteByPlanID(ctx, id); ok {
				realDeleted++
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"realDeleted":      realDeleted,
		"predictedDeleted": predictedDeleted,
	})
}

// FlightSearchStats handles GET /api/flight-search/stats.
func (h *Handler) FlightSearchStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flights, err := h.flights.FindAll(ctx, 0, 1_000_000)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	preds, err := h.predictions.FindAll(ctx, 0, 1_000_000)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	uniqueReal := make(map[string]bool)
	for _, f := range flights {
		uniqueReal[f.Indicative] = true
	}
	uniquePredicted := make(map[string]bool)
	for _, p := range preds {
		uniquePredicted[p.Indicative] = true
	}

	pairs := matchedCount(flights, preds)
	denom := len(flights)
	if len(preds) > denom {
		denom = len(preds)
	}
	matchingRate := 0.0
	if denom > 0 {
		matchingRate = float64(pairs) / float64(denom)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalRealFlights":           len(flights),
		"totalPredictedFlights":      len(preds),
		"uniqueRealIndicatives":      len(uniqueReal),
		"uniquePredictedIndicatives": len(uniquePredicted),
		"matchingRate":               matchingRate,
	})
}

func matchedCount(flights []*model.Flight, preds []*model.PredictedFlight) int {
	byPlanID := make(map[int64]bool, len(flights))
	for _, f := range flights {
		byPlanID[f.PlanID] = true
	}
	n := 0
	for _, p := range preds {
		if byPlanID[p.InstanceID] {
			n++
		}
	}
	return n
}

// ProcessingHistory handles GET /api/processing-history?limit=...
func (h *Handler) ProcessingHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := h.auditLog.Recent(r.Context(), limit, 0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.flights.Count(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "DOWN"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func percentString(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
