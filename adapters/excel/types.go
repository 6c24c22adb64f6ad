package excel

// RawRowData represents a row of raw spreadsheet data as string key-value pairs
type RawRowData map[string]string

// ExcelData represents a decoded sheet
type ExcelData struct {
	Headers []string     // Column headers, lower-cased and trimmed
	Rows    []RawRowData // Data rows
	Lines   []int        // 1-based source line of each row, header is line 1
}
