package labor

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{
	"Empleado",
	"CUIL",
	"Categoría",
	"Días trabajados",
	"Horas trabajadas",
	"Horas normales",
	"Horas extra 50%",
	"Horas extra 100%",
	"Llegadas tarde",
	"Ausencias injustificadas",
	"Ausencias justificadas",
	"Días incompletos",
	"Presentismo",
}

func (r Row) record() []string {
	presentismo := "NO"
	if r.Presentismo {
		presentismo = "SI"
	}
	return []string{
		r.FullName,
		r.Cuil,
		r.Category,
		strconv.Itoa(r.DaysWorked),
		r.HoursWorked.StringFixed(2),
		r.RegularHours.StringFixed(2),
		r.Overtime50.StringFixed(2),
		r.Overtime100.StringFixed(2),
		strconv.Itoa(r.Tardies),
		strconv.Itoa(r.Absences),
		strconv.Itoa(r.JustifiedAbsences),
		strconv.Itoa(r.IncompleteDays),
		presentismo,
	}
}

// WriteCSV writes the liquidation with ";" as separator, the format local
// spreadsheet tools open without an import wizard.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return fmt.Errorf("write row %s: %w", r.EmployeeID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Liquidación"

// WriteXLSX writes the liquidation as a single-sheet workbook. Hour columns
// are stored as numbers so they can be summed.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		presentismo := "NO"
		if r.Presentismo {
			presentismo = "SI"
		}
		values := []interface{}{
			r.FullName,
			r.Cuil,
			r.Category,
			r.DaysWorked,
			r.HoursWorked.InexactFloat64(),
			r.RegularHours.InexactFloat64(),
			r.Overtime50.InexactFloat64(),
			r.Overtime100.InexactFloat64(),
			r.Tardies,
			r.Absences,
			r.JustifiedAbsences,
			r.IncompleteDays,
			presentismo,
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
