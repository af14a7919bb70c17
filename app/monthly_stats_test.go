package app

import (
	"math"
	"testing"

	"gridwatch/domain/customer"
	"gridwatch/domain/reading"
)

func TestMonthlyGroupStats_GroupsByStratum(t *testing.T) {
	c1 := testCustomer("C1", "Z1", 10)
	c1.Stratum = 1
	c2 := testCustomer("C2", "Z1", 10)
	c2.Stratum = 1
	c3 := testCustomer("C3", "Z2", 10)
	c3.Stratum = 4
	customers := []customer.Customer{c1, c2, c3}

	consumption := []reading.Consumption{
		monthlyReading("C1", 2024, 1, 100),
		monthlyReading("C2", 2024, 1, 200),
		monthlyReading("C3", 2024, 1, 400),
	}

	stats, err := MonthlyGroupStats(consumption, customers, GroupByStratum)
	if err != nil {
		t.Fatalf("MonthlyGroupStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(stats))
	}

	// Sorted by date then group: stratum "1" before "4".
	s1 := stats[0]
	if s1.Group != "1" || s1.Count != 2 {
		t.Fatalf("first group = %q count %d, want stratum 1 with 2 readings", s1.Group, s1.Count)
	}
	if math.Abs(s1.Mean-150) > 1e-9 || math.Abs(s1.Median-150) > 1e-9 {
		t.Errorf("stratum 1 mean/median = %v/%v, want 150/150", s1.Mean, s1.Median)
	}
	if s1.Min != 100 || s1.Max != 200 {
		t.Errorf("stratum 1 min/max = %v/%v, want 100/200", s1.Min, s1.Max)
	}

	s4 := stats[1]
	if s4.Group != "4" || s4.Count != 1 || s4.Mean != 400 {
		t.Errorf("second group = %+v, want stratum 4 with single 400 reading", s4)
	}
}

func TestMonthlyGroupStats_GroupsByZoneAcrossMonths(t *testing.T) {
	customers := []customer.Customer{
		testCustomer("C1", "Z1", 10),
		testCustomer("C2", "Z2", 10),
	}
	consumption := []reading.Consumption{
		monthlyReading("C1", 2024, 1, 100),
		monthlyReading("C1", 2024, 2, 120),
		monthlyReading("C2", 2024, 1, 300),
	}

	stats, err := MonthlyGroupStats(consumption, customers, GroupByZone)
	if err != nil {
		t.Fatalf("MonthlyGroupStats: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("expected 3 (month, zone) buckets, got %d", len(stats))
	}

	// January sorts before February; within January Z1 before Z2.
	if stats[0].Group != "Z1" || stats[1].Group != "Z2" {
		t.Errorf("january order = [%s %s], want [Z1 Z2]", stats[0].Group, stats[1].Group)
	}
	if stats[2].Group != "Z1" || stats[2].Mean != 120 {
		t.Errorf("february bucket = %+v, want Z1 mean 120", stats[2])
	}
}

func TestMonthlyGroupStats_UnknownCustomersIgnored(t *testing.T) {
	customers := []customer.Customer{testCustomer("C1", "Z1", 10)}
	consumption := []reading.Consumption{
		monthlyReading("C1", 2024, 1, 100),
		monthlyReading("GHOST", 2024, 1, 999),
	}

	stats, err := MonthlyGroupStats(consumption, customers, GroupByZone)
	if err != nil {
		t.Fatalf("MonthlyGroupStats: %v", err)
	}
	if len(stats) != 1 || stats[0].Count != 1 || stats[0].Mean != 100 {
		t.Errorf("stats = %+v, want single Z1 bucket ignoring unknown customer", stats)
	}
}

func TestMonthlyGroupStats_RejectsUnknownGrouping(t *testing.T) {
	if _, err := MonthlyGroupStats([]reading.Consumption{monthlyReading("C1", 2024, 1, 1)}, nil, GroupBy("city")); err == nil {
		t.Error("expected error for unsupported group-by attribute")
	}
}

func TestMonthlyGroupStats_EmptyInput(t *testing.T) {
	stats, err := MonthlyGroupStats(nil, nil, GroupByZone)
	if err != nil || stats != nil {
		t.Errorf("empty input: stats=%v err=%v, want nil/nil", stats, err)
	}
}
