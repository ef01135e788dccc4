package excel

// RawRowData represents a row of raw sheet data as string key-value pairs
type RawRowData map[string]string

// SheetData represents a parsed sheet before type conversion
type SheetData struct {
	Headers []string     // Normalized column headers
	Rows    []RawRowData // Data rows
}
