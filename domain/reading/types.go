package reading

import (
	"time"

	"gridwatch/domain/core"
)

// Period identifies one billing month.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// PreviousYear returns the same month one year earlier, the comparison
// period used for consumption ratio/difference features.
func (p Period) PreviousYear() Period {
	return Period{Month: p.Month, Year: p.Year - 1}
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Month == 0 && p.Year == 0
}

// Consumption is one monthly meter reading for a customer.
type Consumption struct {
	CustomerID core.CustomerID `json:"customer_id" db:"customer_id"`
	Date       time.Time       `json:"date" db:"reading_date"`
	Consumed   float64         `json:"consumption" db:"consumption"`
	Month      int             `json:"month" db:"month"`
	Year       int             `json:"year" db:"year"`
}

// Weather is the ambient weather profile for one billing month. The same
// profile applies to every customer scored in that month.
type Weather struct {
	Date        time.Time `json:"date" db:"reading_date"`
	Temperature float64   `json:"temperature" db:"temperature"`
	Humidity    float64   `json:"humidity" db:"humidity"`
	UVIndex     float64   `json:"uv_index" db:"uv_index"`
}

// LatestPeriod returns the most recent billing period present in the
// readings, used when a caller does not select a period explicitly.
func LatestPeriod(readings []Consumption) (Period, bool) {
	var latest time.Time
	found := false
	for _, r := range readings {
		if r.Date.After(latest) {
			latest = r.Date
			found = true
		}
	}
	if !found {
		return Period{}, false
	}
	return Period{Month: int(latest.Month()), Year: latest.Year()}, true
}
