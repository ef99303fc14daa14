// Package export writes pipeline and batch results as JSON, CSV and XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/batch"
	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	batchEmailHeader  = []string{"Row", "Company", "Contact", "Subject", "Body", "Personalization"}
	singleEmailHeader = []string{"Company", "Contact", "Subject", "Body", "Personalization"}
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFor picks the format from a file extension, defaulting to JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatJSON
	}
}

// BatchJSON writes every row result as an indented JSON array.
func BatchJSON(w io.Writer, results []model.BatchRowResult) error {
	if results == nil {
		results = []model.BatchRowResult{}
	}
	return writeJSON(w, results)
}

// RunJSON writes a single run's result wrapped as {"results": ...}.
func RunJSON(w io.Writer, result *model.PipelineResult) error {
	if result == nil {
		result = model.NewPipelineResult()
	}
	return writeJSON(w, struct {
		Results *model.PipelineResult `json:"results"`
	}{result})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

// BatchEmailsCSV writes the combined emails of a batch, one line per email.
func BatchEmailsCSV(w io.Writer, emails []batch.RowEmail) error {
	records := make([][]string, 0, len(emails))
	for _, e := range emails {
		records = append(records, append([]string{strconv.Itoa(e.Row)}, emailFields(e.EmailDraft)...))
	}
	return writeCSV(w, batchEmailHeader, records)
}

// RunEmailsCSV writes a single run's emails.
func RunEmailsCSV(w io.Writer, emails []model.EmailDraft) error {
	records := make([][]string, 0, len(emails))
	for _, e := range emails {
		records = append(records, emailFields(e))
	}
	return writeCSV(w, singleEmailHeader, records)
}

func emailFields(e model.EmailDraft) []string {
	return []string{e.Company, e.Contact, e.Subject, e.Body, e.PersonalizationUsed}
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	if err := cw.WriteAll(records); err != nil {
		return eris.Wrap(err, "export: write csv")
	}
	return nil
}

// BatchEmailsXLSX writes the combined emails of a batch to an XLSX file.
func BatchEmailsXLSX(path string, emails []batch.RowEmail) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Emails")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}
	addRow(sheet, batchEmailHeader)
	for _, e := range emails {
		row := sheet.AddRow()
		row.AddCell().SetInt(e.Row)
		for _, v := range emailFields(e.EmailDraft) {
			row.AddCell().SetString(v)
		}
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// WriteBatchEmails writes the combined batch emails to path in the format
// its extension names. JSON output is the plain email list.
func WriteBatchEmails(path string, emails []batch.RowEmail) error {
	switch FormatFor(path) {
	case FormatXLSX:
		return BatchEmailsXLSX(path, emails)
	case FormatCSV:
		return WriteFile(path, func(w io.Writer) error { return BatchEmailsCSV(w, emails) })
	default:
		return WriteFile(path, func(w io.Writer) error {
			if emails == nil {
				emails = []batch.RowEmail{}
			}
			return writeJSON(w, emails)
		})
	}
}

// WriteFile creates path and streams fn's output into it.
func WriteFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "export: close %s", path)
	}
	return nil
}
