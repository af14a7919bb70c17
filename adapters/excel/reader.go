package excel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gridwatch/domain/core"
	"gridwatch/domain/customer"
	"gridwatch/domain/reading"

	"github.com/xuri/excelize/v2"
)

// Sheet names a dataset workbook must carry. Weather is optional; the
// feature builder falls back to the default profile without it.
const (
	SheetCustomers   = "Customers"
	SheetConsumption = "Consumption"
	SheetWeather     = "Weather"
)

const dateLayout = "2006-01-02"

// Dataset is one ingested workbook.
type Dataset struct {
	Customers   []customer.Customer
	Consumption []reading.Consumption
	Weather     []reading.Weather
}

// WorkbookReader ingests customer, consumption and weather tables from an
// .xlsx workbook into domain records.
type WorkbookReader struct {
	filePath string
}

// NewWorkbookReader creates a reader for the given workbook path.
func NewWorkbookReader(filePath string) *WorkbookReader {
	return &WorkbookReader{filePath: filePath}
}

// Read parses all sheets. Unparseable numeric cells are an error, not a
// silent zero: ingestion is the last place a typo is cheap to catch.
func (r *WorkbookReader) Read() (*Dataset, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	customers, err := r.readCustomers(f)
	if err != nil {
		return nil, err
	}
	consumption, err := r.readConsumption(f)
	if err != nil {
		return nil, err
	}
	weather, err := r.readWeather(f)
	if err != nil {
		return nil, err
	}

	return &Dataset{Customers: customers, Consumption: consumption, Weather: weather}, nil
}

func (r *WorkbookReader) readCustomers(f *excelize.File) ([]customer.Customer, error) {
	rows, err := sheetRows(f, SheetCustomers, []string{
		"customer_id", "stratum", "latitude", "longitude", "zone_code", "sanctioned_load",
	})
	if err != nil {
		return nil, err
	}

	out := make([]customer.Customer, 0, len(rows))
	for i, row := range rows {
		id, err := core.ParseCustomerID(row.get("customer_id"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetCustomers, i+2, err)
		}
		stratum, err := row.getInt("stratum")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetCustomers, i+2, err)
		}
		lat, err := row.getFloat("latitude")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetCustomers, i+2, err)
		}
		lon, err := row.getFloat("longitude")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetCustomers, i+2, err)
		}
		load, err := row.getFloat("sanctioned_load")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetCustomers, i+2, err)
		}

		c := customer.Customer{
			ID:             id,
			Stratum:        customer.Stratum(stratum),
			Latitude:       lat,
			Longitude:      lon,
			ZoneCode:       row.get("zone_code"),
			SanctionedLoad: load,
		}
		if !c.Stratum.Valid() {
			return nil, fmt.Errorf("%s row %d: stratum %d outside 1-6", SheetCustomers, i+2, stratum)
		}

		// Ground-truth labels are optional.
		if raw := row.get("is_fraudulent"); raw != "" {
			fraud, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: invalid is_fraudulent %q", SheetCustomers, i+2, raw)
			}
			c.Fraudulent = &fraud
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *WorkbookReader) readConsumption(f *excelize.File) ([]reading.Consumption, error) {
	rows, err := sheetRows(f, SheetConsumption, []string{"customer_id", "date", "consumption"})
	if err != nil {
		return nil, err
	}

	out := make([]reading.Consumption, 0, len(rows))
	for i, row := range rows {
		id, err := core.ParseCustomerID(row.get("customer_id"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetConsumption, i+2, err)
		}
		date, err := row.getDate("date")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetConsumption, i+2, err)
		}
		consumed, err := row.getFloat("consumption")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetConsumption, i+2, err)
		}

		out = append(out, reading.Consumption{
			CustomerID: id,
			Date:       date,
			Consumed:   consumed,
			Month:      int(date.Month()),
			Year:       date.Year(),
		})
	}
	return out, nil
}

func (r *WorkbookReader) readWeather(f *excelize.File) ([]reading.Weather, error) {
	// Weather sheet is optional.
	if idx, err := f.GetSheetIndex(SheetWeather); err != nil || idx < 0 {
		return nil, nil
	}
	rows, err := sheetRows(f, SheetWeather, []string{"date", "temperature", "humidity", "uv_index"})
	if err != nil {
		return nil, err
	}

	out := make([]reading.Weather, 0, len(rows))
	for i, row := range rows {
		date, err := row.getDate("date")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetWeather, i+2, err)
		}
		temp, err := row.getFloat("temperature")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetWeather, i+2, err)
		}
		humidity, err := row.getFloat("humidity")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetWeather, i+2, err)
		}
		uv, err := row.getFloat("uv_index")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetWeather, i+2, err)
		}

		out = append(out, reading.Weather{Date: date, Temperature: temp, Humidity: humidity, UVIndex: uv})
	}
	return out, nil
}

// record is one sheet row keyed by lowercase header.
type record map[string]string

func (r record) get(key string) string {
	return strings.TrimSpace(r[key])
}

func (r record) getFloat(key string) (float64, error) {
	raw := r.get(key)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func (r record) getInt(key string) (int, error) {
	v, err := r.getFloat(key)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func (r record) getDate(key string) (time.Time, error) {
	raw := r.get(key)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing %s", key)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q (want YYYY-MM-DD)", key, raw)
	}
	return t, nil
}

// sheetRows reads a sheet into header-keyed records, validating that the
// required headers are present.
func sheetRows(f *excelize.File, sheet string, required []string) ([]record, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s needs a header row and at least one data row", sheet)
	}

	headers := make([]string, len(rows[0]))
	seen := make(map[string]bool)
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
		seen[headers[i]] = true
	}
	for _, want := range required {
		if !seen[want] {
			return nil, fmt.Errorf("sheet %s is missing required column %q", sheet, want)
		}
	}

	out := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(record, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
