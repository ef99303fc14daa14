package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/batch"
	"github.com/sells-group/outreach-cli/internal/model"
)

func sampleEmails() []batch.RowEmail {
	return []batch.RowEmail{
		{Row: 1, EmailDraft: model.EmailDraft{Company: "Acme", Contact: "Ana Ruiz", Subject: "Your Q3 launch", Body: "Hi Ana,\nCongrats, on the launch.", PersonalizationUsed: "Q3 launch"}},
		{Row: 3, EmailDraft: model.EmailDraft{Company: "Globex", Contact: "Bo Lin", Subject: "Hello", Body: "Hi Bo"}},
	}
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatFor("out/emails.CSV"))
	assert.Equal(t, FormatXLSX, FormatFor("emails.xlsx"))
	assert.Equal(t, FormatJSON, FormatFor("results.json"))
	assert.Equal(t, FormatJSON, FormatFor("results"))
}

func TestBatchEmailsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, BatchEmailsCSV(&buf, sampleEmails()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Row", "Company", "Contact", "Subject", "Body", "Personalization"}, records[0])
	assert.Equal(t, []string{"1", "Acme", "Ana Ruiz", "Your Q3 launch", "Hi Ana,\nCongrats, on the launch.", "Q3 launch"}, records[1])
	assert.Equal(t, []string{"3", "Globex", "Bo Lin", "Hello", "Hi Bo", ""}, records[2])
}

func TestBatchEmailsCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, BatchEmailsCSV(&buf, nil))
	assert.Equal(t, "Row,Company,Contact,Subject,Body,Personalization\n", buf.String())
}

func TestRunEmailsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunEmailsCSV(&buf, []model.EmailDraft{{Company: "Acme", Contact: "Ana", Subject: "S", Body: "B"}}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Company", "Contact", "Subject", "Body", "Personalization"},
		{"Acme", "Ana", "S", "B", ""},
	}, records)
}

func TestRunJSON(t *testing.T) {
	var buf bytes.Buffer
	result := model.NewPipelineResult()
	result.Companies = []model.Company{{Name: "Acme"}}
	require.NoError(t, RunJSON(&buf, result))

	var got map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Contains(t, got, "results")
	assert.JSONEq(t, "[]", string(got["results"]["emails"]))
	assert.Contains(t, string(got["results"]["companies"]), "Acme")
}

func TestRunJSON_NilResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunJSON(&buf, nil))
	assert.Contains(t, buf.String(), `"companies": []`)
}

func TestBatchJSON(t *testing.T) {
	var buf bytes.Buffer
	results := []model.BatchRowResult{
		{Row: 1, TargetDesc: "fintech", Result: model.NewPipelineResult()},
		{Row: 2, TargetDesc: "No row data provided", Error: "pipeline: stage companies failed: boom"},
	}
	require.NoError(t, BatchJSON(&buf, results))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.EqualValues(t, 1, got[0]["row"])
	assert.NotContains(t, got[0], "error")
	assert.Contains(t, got[1], "error")
	assert.NotContains(t, got[1], "result")

	buf.Reset()
	require.NoError(t, BatchJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestBatchEmailsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.xlsx")
	require.NoError(t, WriteBatchEmails(path, sampleEmails()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet["Emails"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Row", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "1", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "Acme", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "Globex", sheet.Rows[2].Cells[1].String())
}

func TestWriteBatchEmails_JSONAndCSV(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "emails.json")
	require.NoError(t, WriteBatchEmails(jsonPath, sampleEmails()))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.EqualValues(t, 3, got[1]["row"])
	assert.Equal(t, "Globex", got[1]["company"])

	csvPath := filepath.Join(dir, "emails.csv")
	require.NoError(t, WriteBatchEmails(csvPath, sampleEmails()))
	data, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Row,Company,Contact,Subject,Body,Personalization\n1,Acme")
}

func TestWriteFile_BadPath(t *testing.T) {
	err := WriteBatchEmails("/nonexistent/dir/emails.csv", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: create")
}
