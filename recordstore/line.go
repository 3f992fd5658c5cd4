package recordstore

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/kjk/recordform/record"
)

// ParseError is returned when a line in the file is not a valid record
type ParseError struct {
	// 1-based line number in the file
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid record on line %d: %s", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func validateFields(fields []string) error {
	for i, f := range fields {
		if strings.ContainsAny(f, "\r\n") {
			return fmt.Errorf("%s cannot contain newlines", record.FieldNames[i])
		}
	}
	return nil
}

// MarshalLine serializes a record as a single line, including
// the trailing '\n'
func MarshalLine(rec *record.Record) ([]byte, error) {
	fields := rec.Fields()
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalLine parses a line (without the trailing newline) written by
// MarshalLine or by a plain comma join
func UnmarshalLine(line string) (record.Record, error) {
	line = strings.TrimSuffix(line, "\r")
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = record.NumFields
	// tolerate stray quotes in bare fields of old files
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		// old files were written with a plain comma join, so a field
		// starting with '"' is not a quoted field there
		if plain := strings.Split(line, ","); len(plain) == record.NumFields {
			return record.FromFields(plain)
		}
		// csv errors carry line/column within our single line, which is noise
		if pe, ok := err.(*csv.ParseError); ok {
			err = pe.Err
		}
		return record.Record{}, err
	}
	return record.FromFields(fields)
}
