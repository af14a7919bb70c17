package app

import (
	"math"
	"testing"

	"gridwatch/domain/core"
	"gridwatch/domain/reading"
)

func TestDetectConsumptionChanges_FlagsSpikeAgainstMovingAverage(t *testing.T) {
	// Three flat months, then a doubling.
	readings := []reading.Consumption{
		monthlyReading("C1", 2024, 1, 100),
		monthlyReading("C1", 2024, 2, 100),
		monthlyReading("C1", 2024, 3, 100),
		monthlyReading("C1", 2024, 4, 200),
	}

	changes := DetectConsumptionChanges(readings, nil, 50, 3)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	ch := changes[0]
	if ch.CustomerID != "C1" {
		t.Errorf("customer = %s, want C1", ch.CustomerID)
	}
	if ch.Direction != "increase" {
		t.Errorf("direction = %s, want increase", ch.Direction)
	}
	if math.Abs(ch.PercentChange-100) > 1e-9 {
		t.Errorf("percent change = %v, want 100", ch.PercentChange)
	}
	if math.Abs(ch.PreviousAvg-100) > 1e-9 {
		t.Errorf("previous avg = %v, want 100", ch.PreviousAvg)
	}
}

func TestDetectConsumptionChanges_FlagsDrop(t *testing.T) {
	readings := []reading.Consumption{
		monthlyReading("C1", 2024, 1, 100),
		monthlyReading("C1", 2024, 2, 100),
		monthlyReading("C1", 2024, 3, 30),
	}

	changes := DetectConsumptionChanges(readings, nil, 50, 2)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0].Direction != "decrease" {
		t.Errorf("direction = %s, want decrease", changes[0].Direction)
	}
	if math.Abs(changes[0].PercentChange+70) > 1e-9 {
		t.Errorf("percent change = %v, want -70", changes[0].PercentChange)
	}
}

func TestDetectConsumptionChanges_BelowThresholdIsQuiet(t *testing.T) {
	readings := []reading.Consumption{
		monthlyReading("C1", 2024, 1, 100),
		monthlyReading("C1", 2024, 2, 100),
		monthlyReading("C1", 2024, 3, 120),
	}
	if changes := DetectConsumptionChanges(readings, nil, 50, 2); len(changes) != 0 {
		t.Errorf("expected no changes at 20%% drift, got %d", len(changes))
	}
}

func TestDetectConsumptionChanges_ShortHistorySkipped(t *testing.T) {
	readings := []reading.Consumption{
		monthlyReading("C1", 2024, 1, 100),
		monthlyReading("C1", 2024, 2, 500),
	}
	// Window of 3 needs at least 4 months of history.
	if changes := DetectConsumptionChanges(readings, nil, 50, 3); len(changes) != 0 {
		t.Errorf("expected no changes with short history, got %d", len(changes))
	}
}

func TestDetectConsumptionChanges_RestrictsToRequestedCustomers(t *testing.T) {
	readings := []reading.Consumption{
		monthlyReading("C1", 2024, 1, 100),
		monthlyReading("C1", 2024, 2, 100),
		monthlyReading("C1", 2024, 3, 300),
		monthlyReading("C2", 2024, 1, 100),
		monthlyReading("C2", 2024, 2, 100),
		monthlyReading("C2", 2024, 3, 300),
	}

	changes := DetectConsumptionChanges(readings, []core.CustomerID{"C2"}, 50, 2)
	if len(changes) != 1 || changes[0].CustomerID != "C2" {
		t.Errorf("expected only C2's change, got %+v", changes)
	}
}
