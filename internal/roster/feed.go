package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format describes the layout of a roster feed. Column names are matched
// against the header row after trimming whitespace.
type Format struct {
	Delimiter        rune
	LastNameColumn   string
	FirstNameColumn  string
	MiddleNameColumn string
	// NameColumn holds a preformatted full name, used when the last and
	// first name columns are absent.
	NameColumn       string
	UnitColumn       string
	DepartmentColumn string
	JobCodeColumn    string
}

// DefaultFormat returns the layout of the payroll export.
func DefaultFormat() Format {
	return Format{
		Delimiter:        ';',
		LastNameColumn:   "Last Name",
		FirstNameColumn:  "First Name",
		MiddleNameColumn: "Middle Name",
		NameColumn:       "Name",
		UnitColumn:       "Unit",
		DepartmentColumn: "Job Sect Desc",
		JobCodeColumn:    "Job Code",
	}
}

// Row is one worker record from the feed.
type Row struct {
	Line            int    `json:"line"`
	Name            string `json:"name"`
	UnitLabel       string `json:"unit"`
	DepartmentLabel string `json:"department"`
	JobCode         string `json:"job_code,omitempty"`
}

// Validate checks the fields every row must carry.
func (r Row) Validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return &ValidationError{Line: r.Line, Field: "name", Reason: "is required"}
	case strings.TrimSpace(r.UnitLabel) == "":
		return &ValidationError{Line: r.Line, Field: "unit", Reason: "is required"}
	case strings.TrimSpace(r.DepartmentLabel) == "":
		return &ValidationError{Line: r.Line, Field: "department", Reason: "is required"}
	}
	return nil
}

// Parse reads a feed, choosing the reader from the file extension.
func Parse(filename string, r io.Reader, format Format) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return ParseCSV(r, format)
	case ".xlsx":
		return ParseXLSX(r, format)
	default:
		return nil, &ValidationError{Field: "file", Reason: fmt.Sprintf("unsupported file type %q, upload a CSV or XLSX file", filepath.Ext(filename))}
	}
}

// ParseCSV reads a delimited text feed with a header row.
func ParseCSV(r io.Reader, format Format) ([]Row, error) {
	reader := csv.NewReader(r)
	if format.Delimiter != 0 {
		reader.Comma = format.Delimiter
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFeed
		}
		return nil, csvError(err)
	}

	cols, err := format.columns(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}

		row := cols.row(line, record)
		if err := row.Validate(); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFeed
	}
	return rows, nil
}

// ParseXLSX reads the first sheet of a workbook with a header row.
func ParseXLSX(r io.Reader, format Format) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ValidationError{Field: "file", Reason: fmt.Sprintf("failed to open workbook: %v", err)}
	}
	defer func() { _ = f.Close() }()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, &ValidationError{Field: "file", Reason: "workbook has no sheets"}
	}

	records, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFeed
	}

	cols, err := format.columns(records[0])
	if err != nil {
		return nil, err
	}

	var rows []Row
	for i, record := range records[1:] {
		if blank(record) {
			continue
		}
		row := cols.row(i+2, record)
		if err := row.Validate(); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFeed
	}
	return rows, nil
}

// columns holds header positions, -1 when a column is absent.
type columns struct {
	last, first, middle, name int
	unit, department, jobCode int
}

func (f Format) columns(header []string) (*columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		index[strings.TrimSpace(h)] = i
	}
	find := func(name string) int {
		if name == "" {
			return -1
		}
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}

	cols := &columns{
		last:       find(f.LastNameColumn),
		first:      find(f.FirstNameColumn),
		middle:     find(f.MiddleNameColumn),
		name:       find(f.NameColumn),
		unit:       find(f.UnitColumn),
		department: find(f.DepartmentColumn),
		jobCode:    find(f.JobCodeColumn),
	}

	if (cols.last < 0 || cols.first < 0) && cols.name < 0 {
		return nil, &ValidationError{Line: 1, Field: f.LastNameColumn, Reason: "missing name columns in header"}
	}
	if cols.unit < 0 {
		return nil, &ValidationError{Line: 1, Field: f.UnitColumn, Reason: "missing column in header"}
	}
	if cols.department < 0 {
		return nil, &ValidationError{Line: 1, Field: f.DepartmentColumn, Reason: "missing column in header"}
	}
	return cols, nil
}

func (c *columns) row(line int, record []string) Row {
	row := Row{
		Line:            line,
		UnitLabel:       cell(record, c.unit),
		DepartmentLabel: cell(record, c.department),
		JobCode:         cell(record, c.jobCode),
	}
	if c.last >= 0 && c.first >= 0 {
		last, first := cell(record, c.last), cell(record, c.first)
		if last != "" || first != "" {
			row.Name = FullName(last, first, cell(record, c.middle))
		}
	}
	if row.Name == "" {
		row.Name = cell(record, c.name)
	}
	return row
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ValidationError{Line: pe.Line, Reason: pe.Err.Error()}
	}
	return fmt.Errorf("failed to read feed: %w", err)
}
