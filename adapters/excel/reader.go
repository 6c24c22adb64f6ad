package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"relialab/domain/core"
	"relialab/domain/lifedata"
	"relialab/ports"

	"github.com/xuri/excelize/v2"
)

// LifeDataReader decodes failure/suspension tables from .xlsx or .csv files.
// Columns: time (required), state F/S (default F), qty (default 1).
type LifeDataReader struct {
	config ReaderConfig
}

var _ ports.SampleReader = (*LifeDataReader)(nil)

// NewLifeDataReader creates a reader
func NewLifeDataReader(config ReaderConfig) *LifeDataReader {
	return &LifeDataReader{config: config}
}

// ReadFile opens path and decodes it by extension
func (r *LifeDataReader) ReadFile(path string) (lifedata.GroupedSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return lifedata.GroupedSample{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return r.Read(f, filepath.Base(path))
}

// Read decodes a life-data table; filename selects the format
func (r *LifeDataReader) Read(in io.Reader, filename string) (lifedata.GroupedSample, error) {
	start := time.Now()
	var (
		data *ExcelData
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		data, err = readCSV(in)
	case ".xlsx", ".xlsm":
		data, err = readWorkbook(in)
	default:
		return lifedata.GroupedSample{}, core.NewValidationError("file", fmt.Sprintf("unsupported file type %q, expected .xlsx or .csv", filepath.Ext(filename)))
	}
	if err != nil {
		return lifedata.GroupedSample{}, err
	}

	sample, err := r.toGroupedSample(data)
	if err != nil {
		return lifedata.GroupedSample{}, err
	}
	log.Printf("[LifeDataReader] %s decoded in %.2fms (%d failure groups, %d suspension groups)",
		filename, float64(time.Since(start).Nanoseconds())/1e6, len(sample.Failures), len(sample.Suspensions))
	return sample, nil
}

// readWorkbook reads the first sheet of a workbook
func readWorkbook(in io.Reader) (*ExcelData, error) {
	f, err := excelize.OpenReader(in)
	if err != nil {
		return nil, core.NewValidationError("file", fmt.Sprintf("failed to open workbook: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationError("file", "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return processRows(rows)
}

func readCSV(in io.Reader) (*ExcelData, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, core.NewValidationError("file", fmt.Sprintf("failed to read CSV: %v", err))
	}
	return processRows(rows)
}

// processRows converts raw string rows into ExcelData, skipping blank lines
func processRows(rows [][]string) (*ExcelData, error) {
	if len(rows) < 2 {
		return nil, core.NewValidationError("file", "must have a header row and at least one data row")
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
	}

	data := &ExcelData{Headers: headers}
	for i := 1; i < len(rows); i++ {
		rowData := make(RawRowData)
		blank := true
		for j, cell := range rows[i] {
			if j < len(headers) {
				cell = strings.TrimSpace(cell)
				rowData[headers[j]] = cell
				if cell != "" {
					blank = false
				}
			}
		}
		if blank {
			continue
		}
		data.Rows = append(data.Rows, rowData)
		data.Lines = append(data.Lines, i+1)
	}
	return data, nil
}

func findColumn(headers []string, aliases []string) string {
	for _, alias := range aliases {
		for _, h := range headers {
			if h == alias {
				return h
			}
		}
	}
	return ""
}

func (r *LifeDataReader) toGroupedSample(data *ExcelData) (lifedata.GroupedSample, error) {
	timeCol := findColumn(data.Headers, r.config.TimeColumns)
	if timeCol == "" {
		return lifedata.GroupedSample{}, core.NewValidationError("header", fmt.Sprintf("no time column, expected one of %v", r.config.TimeColumns))
	}
	stateCol := findColumn(data.Headers, r.config.StateColumns)
	qtyCol := findColumn(data.Headers, r.config.QuantityColumns)

	sample := lifedata.GroupedSample{Failures: []lifedata.Group{}, Suspensions: []lifedata.Group{}}
	total := 0
	for i, row := range data.Rows {
		line := data.Lines[i]
		field := fmt.Sprintf("row %d", line)

		t, err := strconv.ParseFloat(row[timeCol], 64)
		if err != nil || !(t > 0) || math.IsInf(t, 0) {
			return lifedata.GroupedSample{}, core.NewValidationError(field, fmt.Sprintf("time must be a positive number, got %q", row[timeCol]))
		}

		qty := 1
		if qtyCol != "" && row[qtyCol] != "" {
			qty, err = parseQuantity(row[qtyCol])
			if err != nil {
				return lifedata.GroupedSample{}, core.NewValidationError(field, err.Error())
			}
		}
		total += qty
		if r.config.MaxObservations > 0 && total > r.config.MaxObservations {
			return lifedata.GroupedSample{}, core.NewValidationError("file", fmt.Sprintf("more than %d observations", r.config.MaxObservations))
		}

		failure := true
		if stateCol != "" {
			failure, err = parseState(row[stateCol])
			if err != nil {
				return lifedata.GroupedSample{}, core.NewValidationError(field, err.Error())
			}
		}

		g := lifedata.Group{Time: t, Quantity: qty}
		if failure {
			sample.Failures = append(sample.Failures, g)
		} else {
			sample.Suspensions = append(sample.Suspensions, g)
		}
	}
	return sample, nil
}

// parseQuantity accepts whole numbers, including spreadsheet renderings like "3.0"
func parseQuantity(s string) (int, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) || v < 1 || v > math.MaxInt32 {
		return 0, fmt.Errorf("quantity must be a positive whole number, got %q", s)
	}
	return int(v), nil
}

func parseState(s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "F", "FAILURE", "FAILED", "FAIL", "1":
		return true, nil
	case "S", "SUSPENSION", "SUSPENDED", "C", "CENSORED", "RUNNING", "0":
		return false, nil
	}
	return false, fmt.Errorf("state must be F or S, got %q", s)
}
