package excel

import (
	"path/filepath"
	"testing"
	"time"

	"gridwatch/domain/customer"
	"gridwatch/domain/reading"
)

func sampleDataset() *Dataset {
	fraud := true
	return &Dataset{
		Customers: []customer.Customer{
			{ID: "C0001", Stratum: 2, Latitude: 6.24, Longitude: -75.58, ZoneCode: "Z1", SanctionedLoad: 12.5},
			{ID: "C0002", Stratum: 5, Latitude: 6.21, Longitude: -75.57, ZoneCode: "Z2", SanctionedLoad: 20, Fraudulent: &fraud},
		},
		Consumption: []reading.Consumption{
			{CustomerID: "C0001", Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Consumed: 150.5, Month: 3, Year: 2024},
			{CustomerID: "C0002", Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Consumed: 420, Month: 3, Year: 2024},
		},
		Weather: []reading.Weather{
			{Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Temperature: 23.5, Humidity: 78, UVIndex: 11},
		},
	}
}

func TestWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.xlsx")

	if err := NewWorkbookWriter(path).Write(sampleDataset()); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	ds, err := NewWorkbookReader(path).Read()
	if err != nil {
		t.Fatalf("read workbook: %v", err)
	}

	if len(ds.Customers) != 2 {
		t.Fatalf("customers = %d, want 2", len(ds.Customers))
	}
	c1 := ds.Customers[0]
	if c1.ID != "C0001" || c1.Stratum != 2 || c1.ZoneCode != "Z1" || c1.SanctionedLoad != 12.5 {
		t.Errorf("customer 1 round-trip mismatch: %+v", c1)
	}
	if c1.Fraudulent != nil {
		t.Errorf("customer 1 should have no fraud label, got %v", *c1.Fraudulent)
	}
	c2 := ds.Customers[1]
	if c2.Fraudulent == nil || !*c2.Fraudulent {
		t.Errorf("customer 2 fraud label lost in round trip")
	}

	if len(ds.Consumption) != 2 {
		t.Fatalf("readings = %d, want 2", len(ds.Consumption))
	}
	r1 := ds.Consumption[0]
	if r1.CustomerID != "C0001" || r1.Consumed != 150.5 || r1.Month != 3 || r1.Year != 2024 {
		t.Errorf("reading round-trip mismatch: %+v", r1)
	}

	if len(ds.Weather) != 1 {
		t.Fatalf("weather = %d, want 1", len(ds.Weather))
	}
	if ds.Weather[0].Temperature != 23.5 || ds.Weather[0].UVIndex != 11 {
		t.Errorf("weather round-trip mismatch: %+v", ds.Weather[0])
	}
}

func TestWorkbookReader_MissingFile(t *testing.T) {
	if _, err := NewWorkbookReader(filepath.Join(t.TempDir(), "missing.xlsx")).Read(); err == nil {
		t.Error("expected error for missing workbook")
	}
}

func TestWorkbookReader_RejectsInvalidStratum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	ds := sampleDataset()
	ds.Customers[0].Stratum = 9

	if err := NewWorkbookWriter(path).Write(ds); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	if _, err := NewWorkbookReader(path).Read(); err == nil {
		t.Error("expected error for stratum outside 1-6")
	}
}
