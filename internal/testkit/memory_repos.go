package testkit

import (
	"context"
	"sync"
	"time"

	"gridwatch/domain/anomaly"
	"gridwatch/domain/core"
	"gridwatch/domain/customer"
	"gridwatch/domain/reading"
	"gridwatch/ports"
)

// InMemoryStore backs the demo mode and tests with repository
// implementations that never touch a database.
type InMemoryStore struct {
	mu          sync.RWMutex
	customers   []customer.Customer
	consumption []reading.Consumption
	weather     []reading.Weather
	runs        map[core.RunID]*anomaly.Run
	runOrder    []core.RunID
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{runs: make(map[core.RunID]*anomaly.Run)}
}

// NewSampleStore creates a store pre-filled by the sample generator.
func NewSampleStore(seed int64, nCustomers, months, startYear, startMonth int) *InMemoryStore {
	gen := NewSampleGenerator(seed)
	store := NewInMemoryStore()

	startDate := time.Date(startYear, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	customers := gen.GenerateCustomers(nCustomers)

	store.customers = customers
	store.consumption = gen.GenerateConsumption(customers, startDate, months)
	store.weather = gen.GenerateWeather(startDate, months)
	return store
}

// Customers returns the store as a ports.CustomerRepository.
func (s *InMemoryStore) Customers() ports.CustomerRepository { return (*customerRepo)(s) }

// Readings returns the store as a ports.ReadingRepository.
func (s *InMemoryStore) Readings() ports.ReadingRepository { return (*readingRepo)(s) }

// Runs returns the store as a ports.RunRepository.
func (s *InMemoryStore) Runs() ports.RunRepository { return (*runRepo)(s) }

type customerRepo InMemoryStore

func (r *customerRepo) Save(_ context.Context, customers []customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers = append(r.customers, customers...)
	return nil
}

func (r *customerRepo) List(_ context.Context) ([]customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]customer.Customer, len(r.customers))
	copy(out, r.customers)
	return out, nil
}

func (r *customerRepo) ListByZone(_ context.Context, zoneCode string) ([]customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []customer.Customer
	for _, c := range r.customers {
		if c.ZoneCode == zoneCode {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *customerRepo) GetByID(_ context.Context, id core.CustomerID) (*customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.customers {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, core.ErrCustomerNotFound
}

type readingRepo InMemoryStore

func (r *readingRepo) SaveConsumption(_ context.Context, readings []reading.Consumption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumption = append(r.consumption, readings...)
	return nil
}

func (r *readingRepo) SaveWeather(_ context.Context, readings []reading.Weather) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weather = append(r.weather, readings...)
	return nil
}

func (r *readingRepo) ListConsumption(_ context.Context) ([]reading.Consumption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]reading.Consumption, len(r.consumption))
	copy(out, r.consumption)
	return out, nil
}

func (r *readingRepo) ConsumptionForPeriod(_ context.Context, period reading.Period) ([]reading.Consumption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []reading.Consumption
	for _, c := range r.consumption {
		if c.Month == period.Month && c.Year == period.Year {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *readingRepo) WeatherForPeriod(_ context.Context, period reading.Period) (*reading.Weather, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.weather {
		if int(w.Date.Month()) == period.Month && w.Date.Year() == period.Year {
			found := w
			return &found, nil
		}
	}
	return nil, core.ErrNotFound
}

type runRepo InMemoryStore

func (r *runRepo) Save(_ context.Context, run *anomaly.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	r.runOrder = append(r.runOrder, run.ID)
	return nil
}

func (r *runRepo) GetByID(_ context.Context, id core.RunID) (*anomaly.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	return run, nil
}

func (r *runRepo) List(_ context.Context, limit int) ([]anomaly.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []anomaly.Run
	// Newest first.
	for i := len(r.runOrder) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, *r.runs[r.runOrder[i]])
	}
	return out, nil
}
