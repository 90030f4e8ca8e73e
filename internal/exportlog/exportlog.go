// Package exportlog records every completed export in a CSV history file.
package exportlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Destinations of an export.
const (
	DestinationLocal    = "local"
	DestinationEndpoint = "endpoint"
)

// Entry is one row in the export history.
type Entry struct {
	Timestamp      time.Time
	Format         string
	File           string
	EstimateNumber string
	Bytes          int
	Destination    string
}

// Header is the CSV header of the history file.
const Header = "timestamp,format,file,estimate_number,bytes,destination"

const (
	numFields         = 6
	colTimestamp      = 0
	colFormat         = 1
	colFile           = 2
	colEstimateNumber = 3
	colBytes          = 4
	colDestination    = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colFormat] = e.Format
	row[colFile] = e.File
	row[colEstimateNumber] = e.EstimateNumber
	row[colBytes] = strconv.Itoa(e.Bytes)
	row[colDestination] = e.Destination
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	size, err := strconv.Atoi(record[colBytes])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing bytes %q: %w", record[colBytes], err)
	}

	return Entry{
		Timestamp:      ts,
		Format:         record[colFormat],
		File:           record[colFile],
		EstimateNumber: record[colEstimateNumber],
		Bytes:          size,
		Destination:    record[colDestination],
	}, nil
}

// Append writes entries to the history file at path, creating it and its
// header if needed.
func Append(path string, entries ...Entry) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating log dir: %w", err)
		}
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening export log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries of the history file at path, oldest first.
// A missing file yields no entries.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening export log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading export log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
