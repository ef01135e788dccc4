package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"adpulse/internal/dataproc"
	"adpulse/internal/errors"
	"adpulse/internal/logging"

	"github.com/xuri/excelize/v2"
)

// DataReader reads metric exports from Excel or CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *logging.Logger
}

// NewDataReader creates a reader; the file type follows the extension
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: logging.Global()}
}

// WithLogger replaces the reader's logger
func (r *DataReader) WithLogger(logger *logging.Logger) *DataReader {
	r.logger = logger
	return r
}

// ReadRecords reads the file into records. Numeric cells become float64,
// empty cells are left out and other text is kept as is.
func (r *DataReader) ReadRecords() ([]dataproc.Record, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	return ToRecords(data), nil
}

// ReadData reads the raw sheet with normalized headers
func (r *DataReader) ReadData() (*SheetData, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(r.fileType), r.filePath))
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	default:
		return r.readExcelData()
	}
}

// readExcelData reads the first sheet of the workbook
func (r *DataReader) readExcelData() (*SheetData, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("failed to open Excel file: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.InvalidInput("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("failed to read sheet %s: %v", sheets[0], err))
	}
	r.logger.Debug("sheet read", "file", r.filePath, "sheet", sheets[0], "rows", len(rows), "elapsed", time.Since(start).String())

	return r.processRows(rows)
}

func (r *DataReader) readCSVData() (*SheetData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("failed to open CSV file: %v", err))
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("failed to read CSV file: %v", err))
	}
	r.logger.Debug("csv read", "file", r.filePath, "rows", len(rows))

	return r.processRows(rows)
}

// processRows maps each data row onto the header row. A header-only file
// yields no rows.
func (r *DataReader) processRows(rows [][]string) (*SheetData, error) {
	if len(rows) == 0 {
		return nil, errors.InvalidInput(strings.ToUpper(r.fileType) + " file has no header row")
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = SnakeCase(header)
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) && headers[j] != "" {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	return &SheetData{Headers: headers, Rows: dataRows}, nil
}

// ToRecords converts raw rows into typed records
func ToRecords(data *SheetData) []dataproc.Record {
	records := make([]dataproc.Record, 0, len(data.Rows))
	for _, row := range data.Rows {
		rec := make(dataproc.Record, len(row))
		for field, raw := range row {
			if raw == "" {
				continue
			}
			rec[field] = convertCell(raw)
		}
		records = append(records, rec)
	}
	return records
}

// convertCell parses finite numbers, including thousands separators
func convertCell(raw string) any {
	cleaned := strings.ReplaceAll(raw, ",", "")
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return raw
}

// SnakeCase normalizes a column header: "Cost Per Click" and "costPerClick"
// both become "cost_per_click"
func SnakeCase(header string) string {
	var b strings.Builder
	var prev rune
	pendingSep := false
	for _, c := range strings.TrimSpace(header) {
		switch {
		case unicode.IsUpper(c):
			if b.Len() > 0 && (pendingSep || unicode.IsLower(prev) || unicode.IsDigit(prev)) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(c))
			pendingSep = false
		case unicode.IsLetter(c) || unicode.IsDigit(c):
			if b.Len() > 0 && pendingSep {
				b.WriteByte('_')
			}
			b.WriteRune(c)
			pendingSep = false
		default:
			pendingSep = true
		}
		prev = c
	}
	return b.String()
}
