package ingest

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/feedback-batch/internal/domain"
)

var feedbackHeaderHints = []string{"feedback", "text", "comment", "review"}

// CSVResult is the outcome of parsing an uploaded CSV document.
type CSVResult struct {
	Feedbacks []string
	Delimiter rune
	Column    int
	Header    string
}

// ParseCSV extracts the feedback column from delimited text. The first row is a
// header used only to pick the column. An empty Feedbacks slice is not an error.
func ParseCSV(text string) (*CSVResult, error) {
	records := nonBlankRecords(text)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: csv file contains no lines", domain.ErrParse)
	}

	delimiter := detectDelimiter(records[0])
	headers := splitFields(records[0], delimiter)
	column := feedbackColumn(headers)

	result := &CSVResult{
		Feedbacks: make([]string, 0, len(records)-1),
		Delimiter: delimiter,
		Column:    column,
	}
	if column < len(headers) {
		result.Header = strings.TrimSpace(headers[column])
	}

	for _, record := range records[1:] {
		row := splitFields(record, delimiter)
		if column >= len(row) {
			continue
		}
		if value := strings.TrimSpace(row[column]); value != "" {
			result.Feedbacks = append(result.Feedbacks, value)
		}
	}

	return result, nil
}

func detectDelimiter(firstLine string) rune {
	if strings.ContainsRune(firstLine, ';') && !strings.ContainsRune(firstLine, ',') {
		return ';'
	}
	return ','
}

func feedbackColumn(headers []string) int {
	for i, header := range headers {
		normalized := strings.ToLower(strings.TrimSpace(header))
		for _, hint := range feedbackHeaderHints {
			if strings.Contains(normalized, hint) {
				return i
			}
		}
	}
	// Common "index, feedback" layout.
	if len(headers) >= 2 {
		return 1
	}
	return 0
}

// nonBlankRecords splits text into records on newlines outside quoted fields,
// trims each record and drops blank ones. Only a quote at the start of a field
// opens a field that may span lines. A field still open at the end of the input
// keeps only its own line and the lines after it are parsed again.
func nonBlankRecords(text string) []string {
	var (
		records  []string
		current  strings.Builder
		inQuotes bool
		prev     = '\n'
	)

	flush := func() {
		if record := strings.TrimSpace(current.String()); record != "" {
			records = append(records, record)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' && inQuotes && i+1 < len(runes) && runes[i+1] == '"':
			current.WriteString(`""`)
			i++
		case r == '"' && inQuotes:
			inQuotes = false
			current.WriteRune(r)
		case r == '"' && isFieldStart(prev):
			inQuotes = true
			current.WriteRune(r)
		case (r == '\n' || r == '\r') && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
		}
		prev = r
	}

	if inQuotes {
		pending := current.String()
		if i := strings.IndexAny(pending, "\r\n"); i >= 0 {
			current.Reset()
			current.WriteString(pending[:i])
			flush()
			return append(records, nonBlankRecords(pending[i+1:])...)
		}
	}
	flush()

	return records
}

func isFieldStart(prev rune) bool {
	return prev == '\n' || prev == '\r' || prev == ',' || prev == ';'
}

// splitFields splits one record. A doubled quote inside a quoted field is a
// literal quote; every other quote toggles the quoted state.
func splitFields(record string, delimiter rune) []string {
	runes := []rune(record)
	fields := make([]string, 0, 4)

	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == delimiter && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	return append(fields, current.String())
}
