// Package walker turns a user file selection into file-identity records.
//
// A selection is partitioned into top-level files and directories by a
// Session. Each top-level directory is expanded with an explicit work queue
// by an Expander, and top-level files are matched against the flat file list
// of the event by CrossReference.
package walker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joe/dropsentry/pkg/entry"
)

// Exported constants.
const (
	RecordDelimiter = "|"
)

// Exported variables.
var (
	ErrMalformedRecord = errors.New("malformed record")
)

// Record is a normalized file identity of the form "<name>|<modifiedEpochMillis>|".
// The trailing delimiter is part of the format the collector parses.
type Record string

// NewRecord normalizes a materialized file.
func NewRecord(file entry.FileObject) Record {
	return FormatRecord(file.Name, file.LastModified)
}

// FormatRecord builds a record from a name and a modification time.
func FormatRecord(name string, modified time.Time) Record {
	var b strings.Builder

	b.WriteString(name)
	b.WriteString(RecordDelimiter)
	b.WriteString(strconv.FormatInt(modified.UnixMilli(), 10))
	b.WriteString(RecordDelimiter)

	return Record(b.String())
}

// ParseRecord splits a record into its name and modification time in epoch
// milliseconds. Names may themselves contain the delimiter.
func ParseRecord(s string) (string, int64, error) {
	body, ok := strings.CutSuffix(s, RecordDelimiter)
	if !ok {
		return "", 0, fmt.Errorf("%w: missing trailing delimiter in %q", ErrMalformedRecord, s)
	}

	idx := strings.LastIndex(body, RecordDelimiter)
	if idx < 0 {
		return "", 0, fmt.Errorf("%w: missing name delimiter in %q", ErrMalformedRecord, s)
	}

	millis, err := strconv.ParseInt(body[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad timestamp in %q: %w", ErrMalformedRecord, s, err)
	}

	return body[:idx], millis, nil
}

// Strings converts records to the plain string slice carried by reports.
func Strings(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = string(r)
	}

	return out
}
