package sales

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportHeader is the column row shared by every export format.
var ExportHeader = []string{"Date", "Produit", "Quantité", "Paiement", "Total (€)"}

// XLSXSheet is the sheet name of spreadsheet exports.
const XLSXSheet = "Ventes"

// ExportFileName returns ventes_<window>.<ext>.
func ExportFileName(w Window, ext string) string {
	return fmt.Sprintf("ventes_%s.%s", w, ext)
}

// FormatDate renders a sale date as dd/mm/yyyy in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02/01/2006")
}

// WriteCSV writes sales in the order given. The product name is always quoted;
// the other columns never are.
func WriteCSV(w io.Writer, sales []Sale, loc *time.Location) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(ExportHeader, ",") + "\n"); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range sales {
		line := strings.Join([]string{
			FormatDate(s.Date, loc),
			`"` + strings.ReplaceAll(s.Title, `"`, `""`) + `"`,
			strconv.Itoa(s.Qty),
			s.Payment,
			s.Amount().String(),
		}, ",")
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write csv row %d: %w", s.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteXLSX writes sales as a one-sheet workbook with numeric quantity and
// total cells.
func WriteXLSX(w io.Writer, sales []Sale, loc *time.Location) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, XLSXSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sheet = XLSXSheet

	header := make([]interface{}, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	row := 2
	for _, s := range sales {
		total, _ := s.Amount().Float64()
		excelRow := []interface{}{
			FormatDate(s.Date, loc),
			s.Title,
			s.Qty,
			s.Payment,
			total,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("xlsx cell for row %d: %w", row, err)
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", row, err)
		}
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return fmt.Errorf("encode xlsx: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
