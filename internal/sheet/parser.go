// Package sheet reads uploaded card spreadsheets (CSV, XLSX, XLS) into
// numbered import rows.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/digital-card-api/internal/models"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// DefaultMaxSize is the upload cap when none is configured
const DefaultMaxSize int64 = 10 * 1024 * 1024

// MinColumns is the number of columns a well-formed header row carries
const MinColumns = 9

// Content types accepted for uploads
const (
	ContentTypeXLS    = "application/vnd.ms-excel"
	ContentTypeXLSX   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV    = "text/csv"
	ContentTypeCSVAlt = "application/csv"
	extensionCSV      = ".csv"
	extensionXLSX     = ".xlsx"
	extensionXLS      = ".xls"
	utf8BOM           = "\xef\xbb\xbf"
	xlsxMagic         = "PK\x03\x04"
	xlsMagic          = "\xd0\xcf\x11\xe0"
)

var acceptedContentTypes = map[string]bool{
	ContentTypeXLS:    true,
	ContentTypeXLSX:   true,
	ContentTypeCSV:    true,
	ContentTypeCSVAlt: true,
}

var (
	ErrUnsupportedType = errors.New("only Excel (.xls, .xlsx) or CSV (.csv) files are accepted")
	ErrTooLarge        = errors.New("file exceeds the upload size limit")
	ErrNoData          = errors.New("file has no data")
)

// Format is the detected encoding of an upload
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// File is an uploaded spreadsheet. Open may be called more than once.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromBytes wraps in-memory content as a File
func FromBytes(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Record is one data row with its 1-based position in the sheet
type Record struct {
	Number int
	Row    models.ImportRow
}

// HeaderError reports a header row that cannot be mapped to card fields
type HeaderError struct {
	Missing []string
	Found   []string
}

func (e *HeaderError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("header is missing required columns: %s. Found columns: [%s]",
			strings.Join(e.Missing, ", "), strings.Join(e.Found, ", "))
	}
	return fmt.Sprintf("file must have at least %d columns, found %d", MinColumns, len(e.Found))
}

// CheckFile validates the type and size of an upload before it is read
func CheckFile(f File, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if !acceptedContentTypes[f.ContentType] && !strings.HasSuffix(f.Name, extensionCSV) {
		return ErrUnsupportedType
	}
	if f.Size > maxSize {
		return fmt.Errorf("%w of %d MB", ErrTooLarge, maxSize/(1024*1024))
	}
	return nil
}

// Parse reads the first sheet of f and maps every non-blank data row onto
// the card columns. Data rows are numbered from 2, the header being row 1.
func Parse(f File, maxSize int64) ([]Record, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	data, err := read(f, maxSize)
	if err != nil {
		return nil, err
	}

	var grid [][]string
	switch DetectFormat(f.Name, f.ContentType, data) {
	case FormatXLSX:
		grid, err = readXLSX(data)
	case FormatXLS:
		grid, err = readXLS(data)
	default:
		grid, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}

	return mapRows(dropBlankRows(grid))
}

// DetectFormat sniffs binary signatures first, then falls back to the file
// extension and finally the declared content type.
func DetectFormat(name, contentType string, head []byte) Format {
	switch {
	case bytes.HasPrefix(head, []byte(xlsxMagic)):
		return FormatXLSX
	case bytes.HasPrefix(head, []byte(xlsMagic)):
		return FormatXLS
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case extensionCSV:
		return FormatCSV
	case extensionXLSX:
		return FormatXLSX
	case extensionXLS:
		return FormatXLS
	}

	switch contentType {
	case ContentTypeXLSX:
		return FormatXLSX
	case ContentTypeXLS:
		return FormatXLS
	}
	return FormatCSV
}

func read(f File, maxSize int64) ([]byte, error) {
	if f.Open == nil {
		return nil, ErrNoData
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w of %d MB", ErrTooLarge, maxSize/(1024*1024))
	}
	return data, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoData
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, ErrNoData
	}

	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, ErrNoData
	}

	var rows [][]string
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := xlsRow(ws, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// xlsRow returns nil for rows the sheet does not store
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

func dropBlankRows(grid [][]string) [][]string {
	out := grid[:0]
	for _, row := range grid {
		for _, cell := range row {
			if cell != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func mapRows(grid [][]string) ([]Record, error) {
	if len(grid) == 0 {
		return nil, ErrNoData
	}

	header := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		header[i] = strings.TrimSpace(h)
	}

	index := make(map[string]int, len(models.Headers))
	for i, h := range header {
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}

	var missing []string
	for _, h := range models.RequiredHeaders {
		if _, ok := index[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing, Found: header}
	}
	if len(header) < MinColumns {
		return nil, &HeaderError{Found: header}
	}

	records := make([]Record, 0, len(grid)-1)
	for i, cells := range grid[1:] {
		var row models.ImportRow
		for _, h := range models.Headers {
			col, ok := index[h]
			if !ok || col >= len(cells) {
				continue
			}
			*row.Field(h) = strings.TrimSpace(cells[col])
		}
		records = append(records, Record{Number: i + 2, Row: row})
	}

	if len(records) == 0 {
		return nil, ErrNoData
	}
	return records, nil
}
