package app

import (
	"sort"
	"time"

	"gridwatch/domain/core"
	"gridwatch/domain/reading"

	"github.com/montanaflynn/stats"
)

// ConsumptionChange is one month where a customer's consumption jumped or
// dropped sharply against their own recent moving average. This is a
// secondary screening signal alongside the Gaussian model: cheap, per
// customer, and independent of the peer distribution.
type ConsumptionChange struct {
	CustomerID    core.CustomerID `json:"customer_id"`
	Date          time.Time       `json:"date"`
	Consumption   float64         `json:"consumption"`
	PreviousAvg   float64         `json:"previous_avg"`
	PercentChange float64         `json:"percent_change"`
	Direction     string          `json:"direction"` // "increase" or "decrease"
}

// DetectConsumptionChanges flags months where consumption deviates from the
// trailing moving average by at least thresholdPct percent. customerIDs nil
// screens every customer in the readings. window is the moving-average span
// in months.
func DetectConsumptionChanges(readings []reading.Consumption, customerIDs []core.CustomerID, thresholdPct float64, window int) []ConsumptionChange {
	if len(readings) == 0 || window < 1 {
		return nil
	}

	byCustomer := make(map[core.CustomerID][]reading.Consumption)
	for _, r := range readings {
		byCustomer[r.CustomerID] = append(byCustomer[r.CustomerID], r)
	}

	ids := customerIDs
	if ids == nil {
		ids = make([]core.CustomerID, 0, len(byCustomer))
		for id := range byCustomer {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	var changes []ConsumptionChange
	for _, id := range ids {
		history := byCustomer[id]
		if len(history) < window+1 {
			continue
		}
		sort.Slice(history, func(i, j int) bool { return history[i].Date.Before(history[j].Date) })

		// Trailing moving average per month, defined from index window-1 on.
		for i := window; i < len(history); i++ {
			windowValues := make([]float64, window)
			for k := 0; k < window; k++ {
				windowValues[k] = history[i-window+k].Consumed
			}
			prevAvg, _ := stats.Mean(windowValues)
			if prevAvg <= 0 {
				continue
			}

			percentChange := (history[i].Consumed - prevAvg) / prevAvg * 100
			if percentChange >= thresholdPct || percentChange <= -thresholdPct {
				direction := "increase"
				if percentChange < 0 {
					direction = "decrease"
				}
				changes = append(changes, ConsumptionChange{
					CustomerID:    id,
					Date:          history[i].Date,
					Consumption:   history[i].Consumed,
					PreviousAvg:   prevAvg,
					PercentChange: percentChange,
					Direction:     direction,
				})
			}
		}
	}
	return changes
}
