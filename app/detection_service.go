package app

import (
	"context"
	"sort"
	"sync"

	"gridwatch/domain/anomaly"
	"gridwatch/domain/core"
	"gridwatch/domain/customer"
	"gridwatch/domain/reading"
	"gridwatch/internal"
	"gridwatch/ports"
)

// DetectionRequest describes one scoring run.
type DetectionRequest struct {
	Month           int      `json:"month"`
	Year            int      `json:"year"`
	Zone            string   `json:"zone,omitempty"`
	ThresholdFactor float64  `json:"threshold_factor"`
	Features        []string `json:"features,omitempty"` // empty selects AllFeatureColumns
}

// DetectionService orchestrates one-shot batch detection runs: build
// features, fit, score, threshold, KPIs. Completed runs are cached keyed by
// (filter, feature selection, threshold factor), so re-requesting the same
// view reuses the fitted result instead of refitting.
type DetectionService struct {
	customers ports.CustomerRepository
	readings  ports.ReadingRepository
	runs      ports.RunRepository
	detector  func() ports.AnomalyDetector
	logger    *internal.Logger

	mu    sync.RWMutex
	cache map[core.Hash]*anomaly.Run
}

// NewDetectionService wires the detection orchestrator. detectorFactory must
// return a fresh unfitted detector per call; fitted detectors are never
// shared across runs.
func NewDetectionService(
	customers ports.CustomerRepository,
	readings ports.ReadingRepository,
	runs ports.RunRepository,
	detectorFactory func() ports.AnomalyDetector,
	logger *internal.Logger,
) *DetectionService {
	return &DetectionService{
		customers: customers,
		readings:  readings,
		runs:      runs,
		detector:  detectorFactory,
		logger:    logger,
		cache:     make(map[core.Hash]*anomaly.Run),
	}
}

// RunDetection executes a full fit-then-score batch for the requested view.
func (s *DetectionService) RunDetection(ctx context.Context, req DetectionRequest) (*anomaly.Run, error) {
	policy, err := anomaly.NewThresholdPolicy(req.ThresholdFactor)
	if err != nil {
		return nil, err
	}

	selection := req.Features
	if len(selection) == 0 {
		selection = AllFeatureColumns
	}

	key := core.RunKey(req.Month, req.Year, req.Zone, selection, policy.Factor)
	s.mu.RLock()
	if cached, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		s.logger.Debug("detection run cache hit for key %s", key)
		return cached, nil
	}
	s.mu.RUnlock()

	customers, err := s.loadCustomers(ctx, req.Zone)
	if err != nil {
		return nil, err
	}
	consumption, err := s.readings.ListConsumption(ctx)
	if err != nil {
		return nil, err
	}

	filter := Filter{
		Period: reading.Period{Month: req.Month, Year: req.Year},
		Zone:   req.Zone,
	}
	weather := s.loadWeather(ctx, filter.Period, consumption)

	table, err := BuildFeatures(customers, consumption, weather, filter)
	if err != nil {
		return nil, err
	}

	subset, err := table.Matrix.Select(selection)
	if err != nil {
		return nil, err
	}

	detector := s.detector()
	if err := detector.Fit(subset); err != nil {
		return nil, err
	}
	scores, err := detector.ScoreSamples(subset)
	if err != nil {
		return nil, err
	}

	threshold := policy.Threshold(scores)
	mask := anomaly.Mask(scores, threshold)
	kpis := anomaly.ComputeKPIs(mask, groundTruth(table.Customers))

	rawImportance, err := detector.FeatureImportance()
	if err != nil {
		return nil, err
	}
	importance := make([]anomaly.FeatureImportance, len(selection))
	for i, name := range selection {
		importance[i] = anomaly.FeatureImportance{Feature: name, Importance: rawImportance[i]}
	}

	flagged, err := s.buildFlagged(table, scores, mask)
	if err != nil {
		return nil, err
	}

	run := &anomaly.Run{
		ID:              core.RunID(core.NewID()),
		Period:          table.Period,
		ZoneCode:        req.Zone,
		Features:        selection,
		ThresholdFactor: policy.Factor,
		Threshold:       threshold,
		Scores:          scores,
		CustomerIDs:     table.CustomerIDs,
		Flagged:         flagged,
		Importance:      importance,
		KPIs:            kpis,
		CreatedAt:       core.Now(),
	}

	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.cache[key] = run
	s.mu.Unlock()

	s.logger.Info("detection run %s: %d customers, %d flagged (threshold %.3f, k=%.1f)",
		run.ID, kpis.TotalCustomers, kpis.AnomaliesDetected, threshold, policy.Factor)
	return run, nil
}

// GetRun returns a persisted run by ID.
func (s *DetectionService) GetRun(ctx context.Context, id core.RunID) (*anomaly.Run, error) {
	return s.runs.GetByID(ctx, id)
}

// ListRuns returns recent persisted runs.
func (s *DetectionService) ListRuns(ctx context.Context, limit int) ([]anomaly.Run, error) {
	return s.runs.List(ctx, limit)
}

func (s *DetectionService) loadCustomers(ctx context.Context, zone string) ([]customer.Customer, error) {
	if zone != "" {
		return s.customers.ListByZone(ctx, zone)
	}
	return s.customers.List(ctx)
}

// loadWeather fetches the period's weather profile; a missing reading falls
// back to the builder's default profile, so errors here are non-fatal.
func (s *DetectionService) loadWeather(ctx context.Context, period reading.Period, consumption []reading.Consumption) []reading.Weather {
	if period.IsZero() {
		if latest, ok := reading.LatestPeriod(consumption); ok {
			period = latest
		}
	}
	w, err := s.readings.WeatherForPeriod(ctx, period)
	if err != nil || w == nil {
		if err != nil && !core.IsNotFound(err) {
			s.logger.Warn("weather lookup failed for %d/%d: %v", period.Month, period.Year, err)
		}
		return nil
	}
	return []reading.Weather{*w}
}

// buildFlagged assembles the investigator-facing table of flagged customers,
// sorted by score descending. The builder always emits the full feature set,
// so the consumption columns are read from the unselected table even when the
// run scored a narrower selection.
func (s *DetectionService) buildFlagged(table *FeatureTable, scores []float64, mask []bool) ([]anomaly.FlaggedCustomer, error) {
	curCol, err := table.Matrix.Column("consumption_current")
	if err != nil {
		return nil, err
	}
	prevCol, err := table.Matrix.Column("consumption_prev")
	if err != nil {
		return nil, err
	}

	flagged := make([]anomaly.FlaggedCustomer, 0)
	for i, isAnomaly := range mask {
		if !isAnomaly {
			continue
		}
		c := table.Customers[i]
		percentChange := 0.0
		if prevCol[i] != 0 {
			percentChange = (curCol[i] - prevCol[i]) / prevCol[i] * 100
		}
		flagged = append(flagged, anomaly.FlaggedCustomer{
			CustomerID:         c.ID,
			ZoneCode:           c.ZoneCode,
			Stratum:            c.Stratum,
			ConsumptionCurrent: curCol[i],
			ConsumptionPrev:    prevCol[i],
			PercentChange:      percentChange,
			Score:              scores[i],
		})
	}

	sort.Slice(flagged, func(i, j int) bool {
		return flagged[i].Score > flagged[j].Score
	})
	return flagged, nil
}

// groundTruth extracts aligned fraud labels, or nil when no customer in the
// batch carries one.
func groundTruth(customers []customer.Customer) []bool {
	if !customer.HasGroundTruth(customers) {
		return nil
	}
	truth := make([]bool, len(customers))
	for i, c := range customers {
		truth[i] = c.Fraudulent != nil && *c.Fraudulent
	}
	return truth
}
