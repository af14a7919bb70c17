package app

import (
	"fmt"
	"sort"
	"time"

	"gridwatch/domain/core"
	"gridwatch/domain/customer"
	"gridwatch/domain/reading"

	"github.com/montanaflynn/stats"
)

// GroupBy selects the customer attribute monthly aggregates are grouped on.
type GroupBy string

const (
	GroupByStratum GroupBy = "stratum"
	GroupByZone    GroupBy = "zone"
)

// MonthlyStat is one (month, group) consumption aggregate.
type MonthlyStat struct {
	Date   time.Time `json:"date"`
	Group  string    `json:"group"`
	Mean   float64   `json:"mean"`
	Median float64   `json:"median"`
	Std    float64   `json:"std"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Count  int       `json:"count"`
}

// MonthlyGroupStats aggregates consumption per month per customer group.
// Output is sorted by date, then group, for stable presentation.
func MonthlyGroupStats(consumption []reading.Consumption, customers []customer.Customer, groupBy GroupBy) ([]MonthlyStat, error) {
	if groupBy != GroupByStratum && groupBy != GroupByZone {
		return nil, fmt.Errorf("unsupported group-by attribute: %q", groupBy)
	}
	if len(consumption) == 0 {
		return nil, nil
	}

	groupOf := make(map[core.CustomerID]string, len(customers))
	for _, c := range customers {
		if groupBy == GroupByStratum {
			groupOf[c.ID] = fmt.Sprintf("%d", c.Stratum)
		} else {
			groupOf[c.ID] = c.ZoneCode
		}
	}

	type bucketKey struct {
		date  time.Time
		group string
	}
	buckets := make(map[bucketKey][]float64)
	for _, r := range consumption {
		group, ok := groupOf[r.CustomerID]
		if !ok {
			continue
		}
		key := bucketKey{date: r.Date, group: group}
		buckets[key] = append(buckets[key], r.Consumed)
	}

	out := make([]MonthlyStat, 0, len(buckets))
	for key, values := range buckets {
		mean, _ := stats.Mean(values)
		median, _ := stats.Median(values)
		std, _ := stats.StandardDeviation(values)
		min, _ := stats.Min(values)
		max, _ := stats.Max(values)

		out = append(out, MonthlyStat{
			Date:   key.date,
			Group:  key.group,
			Mean:   mean,
			Median: median,
			Std:    std,
			Min:    min,
			Max:    max,
			Count:  len(values),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Group < out[j].Group
	})
	return out, nil
}
