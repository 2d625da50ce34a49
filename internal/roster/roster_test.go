package roster

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const feedHeader = "Last Name;First Name;Middle Name;Unit;Job Sect Desc;Job Code\n"

func TestParseCSV(t *testing.T) {
	feed := feedHeader +
		"Doe;Jane;;BX;ANTHROPOLOGY DEPT;2310\n" +
		"Roe;Richard;Q;BX;History Dept;2320\n"

	rows, err := ParseCSV(strings.NewReader(feed), DefaultFormat())
	require.NoError(t, err)
	require.Equal(t, []Row{
		{Line: 2, Name: "Doe,Jane", UnitLabel: "BX", DepartmentLabel: "ANTHROPOLOGY DEPT", JobCode: "2310"},
		{Line: 3, Name: "Roe,Richard Q", UnitLabel: "BX", DepartmentLabel: "History Dept", JobCode: "2320"},
	}, rows)
}

func TestParseCSVNameColumn(t *testing.T) {
	feed := "Name;Unit;Job Sect Desc;Job Code\n" +
		"Burrito,Frozen Bean;BX;Anthropology Dept;1234\n"

	rows, err := ParseCSV(strings.NewReader(feed), DefaultFormat())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Burrito,Frozen Bean", rows[0].Name)
}

func TestParseCSVStripsBOM(t *testing.T) {
	feed := "\ufeff" + feedHeader + "Doe;Jane;;BX;Anthropology Dept;2310\n"

	rows, err := ParseCSV(strings.NewReader(feed), DefaultFormat())
	require.NoError(t, err)
	require.Equal(t, "Doe,Jane", rows[0].Name)
}

func TestParseCSVSkipsBlankLines(t *testing.T) {
	feed := feedHeader + "Doe;Jane;;BX;Anthropology Dept;2310\n;;;;;\n"

	rows, err := ParseCSV(strings.NewReader(feed), DefaultFormat())
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name      string
		feed      string
		wantEmpty bool
		wantLine  int
		wantField string
	}{
		{
			name:      "empty input",
			feed:      "",
			wantEmpty: true,
		},
		{
			name:      "header only",
			feed:      feedHeader,
			wantEmpty: true,
		},
		{
			name:      "missing unit column",
			feed:      "Last Name;First Name;Job Sect Desc\nDoe;Jane;Anthro\n",
			wantLine:  1,
			wantField: "Unit",
		},
		{
			name:      "missing name columns",
			feed:      "Unit;Job Sect Desc\nBX;Anthro\n",
			wantLine:  1,
			wantField: "Last Name",
		},
		{
			name:      "row without department",
			feed:      feedHeader + "Doe;Jane;;BX;Anthro;1\nRoe;Rick;;BX;;2\n",
			wantLine:  3,
			wantField: "department",
		},
		{
			name:      "row without name",
			feed:      feedHeader + ";;;BX;Anthro;1\n",
			wantLine:  2,
			wantField: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.feed), DefaultFormat())
			require.Error(t, err)
			if tt.wantEmpty {
				require.ErrorIs(t, err, ErrEmptyFeed)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			require.Equal(t, tt.wantLine, ve.Line)
			require.Equal(t, tt.wantField, ve.Field)
			require.True(t, IsValidation(err))
		})
	}
}

func TestParseCSVCustomDelimiter(t *testing.T) {
	format := DefaultFormat()
	format.Delimiter = ','

	feed := "Last Name,First Name,Middle Name,Unit,Job Sect Desc,Job Code\nDoe,Jane,,BX,Anthro,1\n"
	rows, err := ParseCSV(strings.NewReader(feed), format)
	require.NoError(t, err)
	require.Equal(t, "Doe,Jane", rows[0].Name)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Last Name", "First Name", "Middle Name", "Unit", "Job Sect Desc", "Job Code"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Doe", "Jane", "", "BX", "ANTHROPOLOGY DEPT", "2310"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Roe", "Richard", "Q", "BX", "History Dept", "2320"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := Parse("roster.xlsx", bytes.NewReader(buf.Bytes()), DefaultFormat())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, Row{Line: 2, Name: "Doe,Jane", UnitLabel: "BX", DepartmentLabel: "ANTHROPOLOGY DEPT", JobCode: "2310"}, rows[0])
	require.Equal(t, "Roe,Richard Q", rows[1].Name)
}

func TestParseRejectsUnknownExtension(t *testing.T) {
	_, err := Parse("roster.pdf", strings.NewReader(""), DefaultFormat())
	require.True(t, IsValidation(err))
}

func TestMapping(t *testing.T) {
	doc := `
departments:
  "  ANTHRO DEPT ": Anthropology
  ANTHROPOLOGY DEPT: Anthropology
units:
  BX: UAW 4811
`
	m, err := LoadMapping(strings.NewReader(doc))
	require.NoError(t, err)

	require.Equal(t, "Anthropology", m.Department("ANTHRO DEPT"))
	require.Equal(t, "Anthropology", m.Department(" ANTHROPOLOGY DEPT"))
	require.Equal(t, "History Dept", m.Department("HISTORY DEPT"))
	require.Equal(t, "UAW 4811", m.Unit("BX"))
	require.Equal(t, "BK", m.Unit("BK"))
}

func TestLoadMappingEmpty(t *testing.T) {
	m, err := LoadMapping(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, "Anthropology Dept", m.Department("anthropology dept"))

	m, err = LoadMappingFile("")
	require.NoError(t, err)
	require.Empty(t, m.Departments)

	m, err = LoadMappingFile(t.TempDir() + "/missing.yaml")
	require.NoError(t, err)
	require.Empty(t, m.Units)
}

func TestLoadMappingInvalid(t *testing.T) {
	_, err := LoadMapping(strings.NewReader("departments: [a, b"))
	require.True(t, IsValidation(err))
	require.ErrorContains(t, err, "mapping: ")

	// a list where a map belongs parses but cannot be decoded
	_, err = LoadMapping(strings.NewReader("departments: [not, a, map]"))
	require.True(t, IsValidation(err))
}

func TestNames(t *testing.T) {
	require.Equal(t, "Anthropology Dept", TitleCase("ANTHROPOLOGY DEPT"))
	require.Equal(t, "anthropology-dept", Slug("Anthropology Dept"))
	require.Equal(t, "Doe,Jane", FullName("Doe", "Jane", ""))
	require.Equal(t, "Doe,Jane Ann", FullName(" Doe", "Jane ", " Ann"))
}
