// Package sheet turns uploaded CSV and XLSX files into raw import rows.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go-retail-catalog/internal/importer"

	"github.com/jszwec/csvutil"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFile = errors.New("unsupported file type, upload a .csv or .xlsx file")
	ErrEmptySheet      = errors.New("file has no data rows")
	ErrMalformed       = errors.New("file could not be parsed")
)

// aliases maps alternative header spellings onto canonical column names.
var aliases = map[string]string{
	"product_id":    "id",
	"qty":           "stock",
	"quantity":      "stock",
	"category_name": "category",
	"image_url":     "image",
	"expiry":        "expiry_date",
	"discount":      "default_discount",
	"unit":          "uom",
	"active":        "is_active",
}

var serialRe = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Reader parses spreadsheet uploads. The zero value is ready to use.
type Reader struct {
	// Sheet is the preferred worksheet name in XLSX files
	Sheet string
}

func NewReader() *Reader {
	return &Reader{Sheet: "Products"}
}

// Read picks a parser from the file extension. Rows keep input order and
// include blank lines so callers can report them as skipped.
func (r *Reader) Read(filename string, data []byte) ([]importer.RawRow, error) {
	var (
		rows []importer.RawRow
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSV(data)
	case ".xlsx", ".xlsm":
		rows, err = r.readXLSX(data)
	default:
		return nil, ErrUnsupportedFile
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return rows, nil
}

func readCSV(data []byte) ([]importer.RawRow, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptySheet
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}

	lines := &lineReader{r: reader, data: data, width: len(header), offset: reader.InputOffset()}
	dec, err := csvutil.NewDecoder(lines, normalizeHeader(header)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var rows []importer.RawRow
	for {
		var row importer.RawRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, len(rows)+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// lineReader feeds csvutil one record per physical line. encoding/csv
// skips empty lines, so they come back here as blank records, and short
// or long records are fitted to the header width.
type lineReader struct {
	r       *csv.Reader
	data    []byte
	width   int
	offset  int64
	pending int
	next    []string
}

func (l *lineReader) Read() ([]string, error) {
	if l.pending > 0 {
		l.pending--
		return make([]string, l.width), nil
	}
	if l.next != nil {
		rec := l.next
		l.next = nil
		return rec, nil
	}

	rec, err := l.r.Read()
	if err != nil {
		return nil, err
	}
	consumed := l.data[l.offset:l.r.InputOffset()]
	l.offset = l.r.InputOffset()

	skipped := 0
	for {
		if bytes.HasPrefix(consumed, []byte("\r\n")) {
			consumed = consumed[2:]
		} else if bytes.HasPrefix(consumed, []byte("\n")) {
			consumed = consumed[1:]
		} else {
			break
		}
		skipped++
	}

	fitted := make([]string, l.width)
	copy(fitted, rec)
	if skipped == 0 {
		return fitted, nil
	}
	l.pending = skipped - 1
	l.next = fitted
	return make([]string, l.width), nil
}

func (r *Reader) readXLSX(data []byte) ([]importer.RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	sheetName := sheets[0]
	for _, name := range sheets {
		if r.Sheet != "" && strings.EqualFold(name, r.Sheet) {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %s: %v", ErrMalformed, sheetName, err)
	}
	if len(excelRows) < 2 {
		return nil, ErrEmptySheet
	}

	header := normalizeHeader(excelRows[0])
	rows := make([]importer.RawRow, 0, len(excelRows)-1)
	for _, excelRow := range excelRows[1:] {
		var row importer.RawRow
		for i, value := range excelRow {
			if i >= len(header) {
				break
			}
			value = strings.TrimSpace(value)
			if header[i] == "expiry_date" {
				value = excelDate(value)
			}
			row.Set(header[i], value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// excelDate renders a raw date serial as YYYY-MM-DD and leaves text alone.
func excelDate(value string) string {
	if !serialRe.MatchString(value) {
		return value
	}
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return value
	}
	return t.Format("2006-01-02")
}

// normalizeHeader lowercases, strips required markers, maps aliases and
// renames duplicates so every column name is unique.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.ToLower(h))
		h = strings.TrimSpace(strings.TrimSuffix(h, "*"))
		h = strings.Join(strings.Fields(h), "_")
		if canonical, ok := aliases[h]; ok {
			h = canonical
		}
		if h == "" || seen[h] {
			h = fmt.Sprintf("_col%d", i)
		}
		seen[h] = true
		out[i] = h
	}
	return out
}
