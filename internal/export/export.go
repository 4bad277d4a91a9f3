// Package export renders yearly spending reports to CSV, JSON and PDF.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spendlog/internal/reporting"
)

// Format is an output file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

// Report is everything one export file contains.
type Report struct {
	Owner       string                `json:"owner"`
	GeneratedAt time.Time             `json:"generated_at"`
	Current     *reporting.YearReport `json:"current"`
	Previous    *reporting.YearReport `json:"previous,omitempty"`
}

// ParseFormats validates and de-duplicates format names.
func ParseFormats(names []string) ([]Format, error) {
	seen := map[Format]bool{}
	var out []Format
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		switch f {
		case FormatCSV, FormatJSON, FormatPDF:
		default:
			return nil, fmt.Errorf("unknown report type %q: must be csv, json or pdf", n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no report type given")
	}
	return out, nil
}

// Write renders rep in format f to w.
func Write(w io.Writer, f Format, rep *Report) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, rep)
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatPDF:
		return WritePDF(w, rep)
	default:
		return fmt.Errorf("unknown report type %q", f)
	}
}

// ToFile writes rep to a timestamped file under dir and returns its absolute path.
func ToFile(dir, base string, f Format, rep *Report) (string, error) {
	name, err := Filename(base, dir, f, rep.GeneratedAt)
	if err != nil {
		return "", err
	}

	file, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("error creating %s file: %w", f, err)
	}
	if err := Write(file, f, rep); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("error closing %s file: %w", f, err)
	}
	return filepath.Abs(name)
}

// Filename builds "<base>_<timestamp>.<ext>" inside dir, creating dir if needed.
func Filename(base, dir string, f Format, at time.Time) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating output directory '%s': %w", dir, err)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", base, at.Format("20060102_150405"), f)), nil
}

// WriteCSV writes a monthly section followed by a category section.
func WriteCSV(w io.Writer, rep *Report) error {
	cw := csv.NewWriter(w)

	header := []string{"Month", strconv.Itoa(rep.Current.Year)}
	if rep.Previous != nil {
		header = append(header, strconv.Itoa(rep.Previous.Year))
	}
	rows := [][]string{header}
	for i, label := range reporting.MonthLabels {
		row := []string{label, strconv.FormatInt(rep.Current.Months[i], 10)}
		if rep.Previous != nil {
			row = append(row, strconv.FormatInt(rep.Previous.Months[i], 10))
		}
		rows = append(rows, row)
	}
	total := []string{"Total", strconv.FormatInt(rep.Current.Total, 10)}
	if rep.Previous != nil {
		total = append(total, strconv.FormatInt(rep.Previous.Total, 10))
	}
	rows = append(rows, total, []string{}, []string{"Category", "Total"})
	for _, c := range rep.Current.Categories {
		rows = append(rows, []string{c.Category, strconv.FormatInt(c.Total, 10)})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// WriteJSON writes rep as indented JSON.
func WriteJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("error encoding JSON data: %w", err)
	}
	return nil
}
