package excel

import (
	"fmt"
	"strconv"

	"gridwatch/domain/customer"
	"gridwatch/domain/reading"

	"github.com/xuri/excelize/v2"
)

// WorkbookWriter exports a dataset as an .xlsx workbook in the layout
// WorkbookReader expects.
type WorkbookWriter struct {
	filePath string
}

// NewWorkbookWriter creates a writer targeting the given path.
func NewWorkbookWriter(filePath string) *WorkbookWriter {
	return &WorkbookWriter{filePath: filePath}
}

// Write builds the workbook and saves it. The default "Sheet1" is replaced
// by the Customers sheet.
func (w *WorkbookWriter) Write(ds *Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeCustomers(f, ds.Customers); err != nil {
		return err
	}
	if err := w.writeConsumption(f, ds.Consumption); err != nil {
		return err
	}
	if len(ds.Weather) > 0 {
		if err := w.writeWeather(f, ds.Weather); err != nil {
			return err
		}
	}

	if err := f.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (w *WorkbookWriter) writeCustomers(f *excelize.File, customers []customer.Customer) error {
	if err := f.SetSheetName("Sheet1", SheetCustomers); err != nil {
		return fmt.Errorf("failed to rename customers sheet: %w", err)
	}
	header := []interface{}{
		"customer_id", "stratum", "latitude", "longitude", "zone_code", "sanctioned_load", "is_fraudulent",
	}
	if err := f.SetSheetRow(SheetCustomers, "A1", &header); err != nil {
		return fmt.Errorf("failed to write customers header: %w", err)
	}

	for i, c := range customers {
		fraud := ""
		if c.Fraudulent != nil {
			fraud = strconv.FormatBool(*c.Fraudulent)
		}
		row := []interface{}{
			string(c.ID), int(c.Stratum), c.Latitude, c.Longitude, c.ZoneCode, c.SanctionedLoad, fraud,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(SheetCustomers, cell, &row); err != nil {
			return fmt.Errorf("failed to write customer row %d: %w", i+2, err)
		}
	}
	return nil
}

func (w *WorkbookWriter) writeConsumption(f *excelize.File, readings []reading.Consumption) error {
	if _, err := f.NewSheet(SheetConsumption); err != nil {
		return fmt.Errorf("failed to create consumption sheet: %w", err)
	}
	header := []interface{}{"customer_id", "date", "consumption"}
	if err := f.SetSheetRow(SheetConsumption, "A1", &header); err != nil {
		return fmt.Errorf("failed to write consumption header: %w", err)
	}

	for i, r := range readings {
		row := []interface{}{string(r.CustomerID), r.Date.Format(dateLayout), r.Consumed}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(SheetConsumption, cell, &row); err != nil {
			return fmt.Errorf("failed to write consumption row %d: %w", i+2, err)
		}
	}
	return nil
}

func (w *WorkbookWriter) writeWeather(f *excelize.File, readings []reading.Weather) error {
	if _, err := f.NewSheet(SheetWeather); err != nil {
		return fmt.Errorf("failed to create weather sheet: %w", err)
	}
	header := []interface{}{"date", "temperature", "humidity", "uv_index"}
	if err := f.SetSheetRow(SheetWeather, "A1", &header); err != nil {
		return fmt.Errorf("failed to write weather header: %w", err)
	}

	for i, r := range readings {
		row := []interface{}{r.Date.Format(dateLayout), r.Temperature, r.Humidity, r.UVIndex}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(SheetWeather, cell, &row); err != nil {
			return fmt.Errorf("failed to write weather row %d: %w", i+2, err)
		}
	}
	return nil
}
