package app

import (
	"fmt"

	"gridwatch/domain/core"
	"gridwatch/domain/customer"
	"gridwatch/domain/features"
	"gridwatch/domain/reading"
)

// Canonical feature column order. Callers may select any ordered subset;
// this list is what a detection run uses when no explicit selection is given.
var AllFeatureColumns = []string{
	"consumption_current",
	"consumption_prev",
	"consumption_ratio",
	"consumption_diff",
	"stratum",
	"sanctioned_load",
	"per_capita_consumption",
	"temperature",
	"humidity",
	"uv_index",
}

// Fallback weather profile when no reading exists for the selected period.
const (
	defaultTemperature = 22.0
	defaultHumidity    = 80.0
	defaultUVIndex     = 10.0
)

// Filter narrows a detection run to one billing period and optionally one zone.
type Filter struct {
	Period reading.Period // zero value selects the latest period on record
	Zone   string         // empty selects all zones
}

// FeatureTable is the feature builder's output: a numeric matrix plus the
// customer identifiers and metadata aligned index-for-index with its rows.
// The three slices are produced together and must never be reordered or
// filtered independently.
type FeatureTable struct {
	Matrix      *features.Matrix
	CustomerIDs []core.CustomerID
	Customers   []customer.Customer
	Period      reading.Period
}

// BuildFeatures joins customer, consumption and weather records into one
// engineered feature row per customer for the selected period. Current
// consumption is compared against the same month of the previous year;
// customers without both readings are excluded by the inner join before
// the matrix is built, so matrix rows and customer metadata stay aligned.
func BuildFeatures(customers []customer.Customer, consumption []reading.Consumption, weather []reading.Weather, filter Filter) (*FeatureTable, error) {
	if len(customers) == 0 || len(consumption) == 0 {
		return nil, fmt.Errorf("%w: no customers or consumption records", core.ErrInsufficientData)
	}

	period := filter.Period
	if period.IsZero() {
		latest, ok := reading.LatestPeriod(consumption)
		if !ok {
			return nil, fmt.Errorf("%w: no consumption dates on record", core.ErrInsufficientData)
		}
		period = latest
	}
	prevPeriod := period.PreviousYear()

	// Zone restriction applies to customers first; readings follow.
	eligible := make(map[core.CustomerID]customer.Customer, len(customers))
	for _, c := range customers {
		if filter.Zone != "" && c.ZoneCode != filter.Zone {
			continue
		}
		eligible[c.ID] = c
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: no customers in zone %q", core.ErrInsufficientData, filter.Zone)
	}

	current := make(map[core.CustomerID]float64)
	previous := make(map[core.CustomerID]float64)
	for _, r := range consumption {
		if _, ok := eligible[r.CustomerID]; !ok {
			continue
		}
		switch {
		case r.Month == period.Month && r.Year == period.Year:
			current[r.CustomerID] = r.Consumed
		case r.Month == prevPeriod.Month && r.Year == prevPeriod.Year:
			previous[r.CustomerID] = r.Consumed
		}
	}
	if len(current) == 0 || len(previous) == 0 {
		return nil, fmt.Errorf("%w: no readings for period %d/%d or its previous year",
			core.ErrInsufficientData, period.Month, period.Year)
	}

	temperature, humidity, uvIndex := weatherForPeriod(weather, period)

	// Inner join in deterministic customer order.
	ids := make([]core.CustomerID, 0, len(current))
	meta := make([]customer.Customer, 0, len(current))
	rows := make([][]float64, 0, len(current))

	for _, c := range customers {
		cur, hasCur := current[c.ID]
		prev, hasPrev := previous[c.ID]
		if !hasCur || !hasPrev {
			continue
		}

		ratio := 1.0
		if prev > 0 {
			ratio = cur / prev
		}
		perCapita := cur
		if c.SanctionedLoad > 0 {
			perCapita = cur / c.SanctionedLoad
		}

		rows = append(rows, []float64{
			cur,
			prev,
			ratio,
			cur - prev,
			float64(c.Stratum),
			c.SanctionedLoad,
			perCapita,
			temperature,
			humidity,
			uvIndex,
		})
		ids = append(ids, c.ID)
		meta = append(meta, c)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no customer has readings in both %d/%d and %d/%d",
			core.ErrInsufficientData, period.Month, period.Year, prevPeriod.Month, prevPeriod.Year)
	}

	matrix, err := features.New(AllFeatureColumns, rows)
	if err != nil {
		return nil, err
	}

	return &FeatureTable{
		Matrix:      matrix,
		CustomerIDs: ids,
		Customers:   meta,
		Period:      period,
	}, nil
}

func weatherForPeriod(weather []reading.Weather, period reading.Period) (temperature, humidity, uvIndex float64) {
	for _, w := range weather {
		if int(w.Date.Month()) == period.Month && w.Date.Year() == period.Year {
			return w.Temperature, w.Humidity, w.UVIndex
		}
	}
	return defaultTemperature, defaultHumidity, defaultUVIndex
}
