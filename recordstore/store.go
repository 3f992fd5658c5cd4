package recordstore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kjk/recordform/record"
)

const DefaultFileName = "records.txt"

// ErrNotFound is returned by FindByID if there's no record with a given id
var ErrNotFound = errors.New("record not found")

type Store struct {
	DataDir  string
	FileName string

	// if true, will call file.Sync() after every Append
	SyncWrite bool

	filePath string
	mu       sync.Mutex
}

// Path returns absolute path of the records file
func (s *Store) Path() string {
	return s.filePath
}

// appendToFile opens the file, appends d and closes it.
// Creates the file if it doesn't exist.
func appendToFile(path string, d []byte, sync bool) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	_, err = file.Write(d)
	if err != nil {
		file.Close()
		return err
	}
	if sync {
		err = file.Sync()
		if err != nil {
			file.Close()
			return err
		}
	}
	return file.Close()
}

// Append writes rec as a new line at the end of the file
func (s *Store) Append(rec record.Record) error {
	d, err := MarshalLine(&rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err = appendToFile(s.filePath, d, s.SyncWrite)
	if err != nil {
		return fmt.Errorf("failed to append record to '%s': %w", s.filePath, err)
	}
	return nil
}

// ParseRecordsFromFile returns an iterator over records in a file, in the
// order they were appended.
// Call the returned error function after iteration to check for errors.
// A missing file is an error (wraps fs.ErrNotExist).
func ParseRecordsFromFile(path string) (iter.Seq[record.Record], func() error) {
	var iterErr error

	seq := func(yield func(record.Record) bool) {
		file, err := os.Open(path)
		if err != nil {
			iterErr = err
			return
		}
		defer file.Close()

		reader := bufio.NewReader(file)
		lineNo := 0
		for {
			line, err := reader.ReadString('\n')
			if err == io.EOF {
				if line == "" {
					break
				}
			} else if err != nil {
				iterErr = fmt.Errorf("error reading '%s': %w", path, err)
				return
			}
			lineNo++
			line = strings.TrimSuffix(line, "\n")
			if strings.TrimSpace(line) == "" {
				continue
			}
			rec, err := UnmarshalLine(line)
			if err != nil {
				iterErr = &ParseError{Line: lineNo, Err: err}
				return
			}
			if !yield(rec) {
				return
			}
		}
	}

	return seq, func() error { return iterErr }
}

// Records returns an iterator over all records.
// Call the returned error function after iteration to check for errors.
func (s *Store) Records() (iter.Seq[record.Record], func() error) {
	return ParseRecordsFromFile(s.filePath)
}

// FindByID returns the first (earliest appended) record whose id is
// exactly id (case-sensitive). Returns ErrNotFound if there's no match.
func (s *Store) FindByID(id string) (record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, errFn := s.Records()
	for rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	if err := errFn(); err != nil {
		return record.Record{}, fmt.Errorf("failed to read records: %w", err)
	}
	return record.Record{}, ErrNotFound
}

// Count returns number of records in the file.
// A missing file has 0 records.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return 0, nil
	}
	n := 0
	records, errFn := s.Records()
	for range records {
		n++
	}
	if err := errFn(); err != nil {
		return 0, fmt.Errorf("failed to read records: %w", err)
	}
	return n, nil
}

// OpenStore resolves the path of the records file and makes sure DataDir
// exists. It doesn't create the file, the first Append does.
func OpenStore(s *Store) error {
	if s.DataDir == "" {
		return fmt.Errorf("data directory is not set. For current directory, use '.'")
	}
	if s.FileName == "" {
		s.FileName = DefaultFileName
	}
	var err error
	s.filePath = filepath.Join(s.DataDir, s.FileName)
	s.filePath, err = filepath.Abs(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for records file: %w", err)
	}
	return os.MkdirAll(s.DataDir, 0755)
}
