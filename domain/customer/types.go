package customer

import (
	"gridwatch/domain/core"
)

// Stratum is the socioeconomic classification tier of a customer (1-6,
// 6 being highest). Consumption baselines differ strongly across strata,
// which is why stratum is itself a model feature.
type Stratum int

// Valid reports whether the stratum is inside the classification scale.
func (s Stratum) Valid() bool {
	return s >= 1 && s <= 6
}

// Customer represents one metered power/gas customer.
type Customer struct {
	ID             core.CustomerID `json:"customer_id" db:"customer_id"`
	Stratum        Stratum         `json:"stratum" db:"stratum"`
	Latitude       float64         `json:"latitude" db:"latitude"`
	Longitude      float64         `json:"longitude" db:"longitude"`
	ZoneCode       string          `json:"zone_code" db:"zone_code"`
	SanctionedLoad float64         `json:"sanctioned_load" db:"sanctioned_load"`

	// Fraudulent is the ground-truth fraud label when one exists (audited
	// datasets, synthetic demo data). Nil means no ground truth: precision,
	// recall and F1 are then not computable, which is distinct from zero.
	Fraudulent *bool `json:"is_fraudulent,omitempty" db:"is_fraudulent"`
}

// HasGroundTruth reports whether any customer in the set carries a fraud label.
func HasGroundTruth(customers []Customer) bool {
	for _, c := range customers {
		if c.Fraudulent != nil {
			return true
		}
	}
	return false
}
