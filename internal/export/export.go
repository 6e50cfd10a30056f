// Package export renders finished batch runs for download or the clipboard.
// Only success outcomes are ever rendered.
package export

import (
	"fmt"
	"strconv"
	"strings"
)

// Format names an export target.
type Format string

const (
	FormatCSV        Format = "csv"
	FormatJSON       Format = "json"
	FormatSummary    Format = "summary"
	FormatTranscript Format = "transcript"
)

func (f Format) String() string { return string(f) }

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatJSON, FormatSummary, FormatTranscript:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// FileName is the default download name for downloadable formats.
func (f Format) FileName() string {
	switch f {
	case FormatCSV:
		return "batch-analysis-results.csv"
	case FormatJSON:
		return "batch-analysis-results.json"
	}
	return ""
}

// formatNumber prints a confidence the way the service sent it: no trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
