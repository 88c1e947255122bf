// Package export writes zonal summary tables to CSV and XLSX files. Column
// order is fixed so exports diff cleanly between runs.
package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/greenfield-eo/recmap/internal/zonal"
)

// Header is the fixed column order of every exported table.
var Header = []string{"zone_id", "sum", "mean", "count", "min", "max"}

// WriteCSV writes one summary table to path.
func WriteCSV(path string, rows []zonal.SummaryRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, row := range rows {
		if err := w.Write(record(row)); err != nil {
			return eris.Wrapf(err, "export: write zone %d", row.ZoneID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush")
	}

	zap.L().Info("table exported", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}

// WriteXLSX writes one summary table to path as a single-sheet workbook.
func WriteXLSX(path, sheetName string, rows []zonal.SummaryRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", sheetName)
	}

	hdr := sheet.AddRow()
	for _, col := range Header {
		hdr.AddCell().SetString(col)
	}
	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetInt(row.ZoneID)
		r.AddCell().SetFloat(row.Sum)
		r.AddCell().SetFloat(row.Mean)
		r.AddCell().SetInt(row.Count)
		r.AddCell().SetFloat(row.Min)
		r.AddCell().SetFloat(row.Max)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	zap.L().Info("table exported", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}

func record(row zonal.SummaryRow) []string {
	return []string{
		strconv.Itoa(row.ZoneID),
		formatFloat(row.Sum),
		formatFloat(row.Mean),
		strconv.Itoa(row.Count),
		formatFloat(row.Min),
		formatFloat(row.Max),
	}
}

// formatFloat uses the shortest representation that round-trips, so stored
// references compare textually across runs.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
