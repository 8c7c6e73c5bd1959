package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster() Dataset {
	return Dataset{
		Headers: []string{"student_id", "name"},
		Rows: []map[string]string{
			{"student_id": "CSE001", "name": "Asha Rao"},
			{"student_id": "CSE002", "name": "Ravi, Kumar"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(roster())
	require.NoError(t, err)
	assert.Equal(t, "student_id,name\nCSE001,Asha Rao\nCSE002,\"Ravi, Kumar\"\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestXLSXRoundTrip(t *testing.T) {
	out, err := NewXLSXExporter().Render(roster(), "Students")
	require.NoError(t, err)

	sheet, err := ReadSheet(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, []string{"student_id", "name"}, sheet.Headers)
	require.Len(t, sheet.Records, 2)
	assert.Equal(t, "Ravi, Kumar", sheet.Records[1][sheet.Column("name")])
	assert.Equal(t, []string{"email"}, sheet.Missing([]string{"student_id", "email"}))
	assert.Equal(t, -1, sheet.Column("email"))
}

func TestReadSheetRejectsGarbage(t *testing.T) {
	_, err := ReadSheet(strings.NewReader("not a workbook"))
	require.Error(t, err)
}

func TestBlank(t *testing.T) {
	assert.True(t, Blank([]string{"", ""}))
	assert.False(t, Blank([]string{"", "x"}))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(roster(), "Roster")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestDocumentBuilder(t *testing.T) {
	doc := NewDocument("Student Achievement Portfolio").
		Heading("Student Information").
		Table([]Field{{"Name:", "Asha Rao"}, {"Student ID:", "CSE001"}}, 50, ShadeGrey).
		Subheading("1. Hackathon Winner").
		Paragraph("Description:", strings.Repeat("Long text ", 200)).
		Footer("Generated on Greenfield Student Hub System")
	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.GreaterOrEqual(t, doc.Pages(), 1)
}
