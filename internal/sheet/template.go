package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/digital-card-api/internal/cover"
	"github.com/digital-card-api/internal/models"
	"github.com/xuri/excelize/v2"
)

const templateSheet = "Cards"

// sampleRow fills the template so the expected value shapes are visible
var sampleRow = models.ImportRow{
	Name:    "Nguyễn Văn A",
	Title:   "Giám đốc kinh doanh",
	Company: "Công ty ABC",
	Phone1:  "0901234567",
	Phone2:  "",
	Email1:  "nguyenvana@example.com",
	Email2:  "",
	Address: "123 Lê Lợi, Quận 1, TP.HCM",
	Cover:   cover.Default().Name,
}

func rowValues(r models.ImportRow) []string {
	values := make([]string, len(models.Headers))
	for i, h := range models.Headers {
		values[i] = *r.Field(h)
	}
	return values
}

// WriteTemplateCSV writes the import template as UTF-8 CSV with a BOM,
// which spreadsheet apps need to detect the Vietnamese headers.
func WriteTemplateCSV(w io.Writer) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(models.Headers); err != nil {
		return err
	}
	if err := writer.Write(rowValues(sampleRow)); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteTemplateXLSX writes the import template as a workbook
func WriteTemplateXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(models.Headers))
	for i, h := range models.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return err
	}

	sample := rowValues(sampleRow)
	values := make([]interface{}, len(sample))
	for i, v := range sample {
		values[i] = v
	}
	if err := f.SetSheetRow(templateSheet, "A2", &values); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(models.Headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(templateSheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(templateSheet, "A", lastCol, 22); err != nil {
		return err
	}

	return f.Write(w)
}

// WriteErrorReport writes rejected rows as CSV: the row number, the joined
// messages, then the original cell values in template order.
func WriteErrorReport(w io.Writer, rows []models.RowError) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	header := append([]string{"Row", "Errors"}, models.Headers...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		record := append([]string{strconv.Itoa(r.Row), strings.Join(r.Errors, "; ")}, rowValues(r.Data)...)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r.Row, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
