package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"

	"github.com/kjk/recordform/backup"
	"github.com/kjk/recordform/log"
	"github.com/kjk/recordform/record"
	"github.com/kjk/recordform/recordstore"
)

func TestMain(m *testing.M) {
	log.Stdout = nil
	os.Exit(m.Run())
}

func TestSubmitFindList(t *testing.T) {
	dir := t.TempDir()
	err := run([]string{"submit", "-dir", dir, "-name", "Alice Smith", "-id", "A100", "-gender", "female", "-province", "Ontario", "-dob", "1990-05-01"})
	assert.NoError(t, err)

	d, err := os.ReadFile(filepath.Join(dir, recordstore.DefaultFileName))
	assert.NoError(t, err)
	assert.Equal(t, "Alice Smith,A100,Female,Ontario,1990-05-01\n", string(d))

	err = run([]string{"find", "-dir", dir, "-id", "A100", "-json"})
	assert.NoError(t, err)
	err = run([]string{"find", "-dir", dir, "-id", "Z9"})
	assert.True(t, errors.Is(err, recordstore.ErrNotFound))
	err = run([]string{"list", "-dir", dir})
	assert.NoError(t, err)

	err = run([]string{"submit", "-dir", dir, "-id", "B200"})
	assert.Error(t, err)
}

func TestBackupRestore(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	err := run([]string{"submit", "-dir", dir, "-name", "Bob", "-id", "B1", "-gender", "Male", "-province", "Quebec", "-dob", "1980-01-02"})
	assert.NoError(t, err)
	err = run([]string{"backup", "-dir", dir, "-backup-dir", backupDir, "-codec", "br"})
	assert.NoError(t, err)

	path := filepath.Join(dir, recordstore.DefaultFileName)
	orig, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.NoError(t, os.Remove(path))

	err = run([]string{"restore", "-dir", dir, "-backup-dir", backupDir})
	assert.NoError(t, err)
	got, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, orig, got)

	paths, err := backup.List(backupDir)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(paths))
}

func TestRestoreKeepsNewerRecords(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	err := run([]string{"submit", "-dir", dir, "-name", "A", "-id", "A1", "-gender", "Male", "-province", "Q", "-dob", "1980-01-02"})
	assert.NoError(t, err)
	assert.NoError(t, run([]string{"backup", "-dir", dir, "-backup-dir", backupDir}))
	err = run([]string{"submit", "-dir", dir, "-name", "B", "-id", "B1", "-gender", "Male", "-province", "Q", "-dob", "1980-01-02"})
	assert.NoError(t, err)

	err = run([]string{"restore", "-dir", dir, "-backup-dir", backupDir})
	assert.True(t, errors.Is(err, backup.ErrDstNotEmpty), "got: %v", err)
	assert.NoError(t, run([]string{"find", "-dir", dir, "-id", "B1"}))

	assert.NoError(t, run([]string{"restore", "-dir", dir, "-backup-dir", backupDir, "-force"}))
	err = run([]string{"find", "-dir", dir, "-id", "B1"})
	assert.True(t, errors.Is(err, recordstore.ErrNotFound))
}

func TestPrintRecord(t *testing.T) {
	rec := record.Record{FullName: "Bob", ID: "B1", Gender: "Male", Province: "Quebec", DOB: "1980-01-02"}
	var buf bytes.Buffer
	assert.NoError(t, printRecord(&buf, rec, false))
	assert.Equal(t, "Full Name:     Bob\nID:            B1\nGender:        Male\nHome Province: Quebec\nDate of Birth: 1980-01-02\n", buf.String())

	buf.Reset()
	assert.NoError(t, printRecord(&buf, rec, true))
	exp := `{
  "fullName": "Bob",
  "id": "B1",
  "gender": "Male",
  "province": "Quebec",
  "dob": "1980-01-02"
}
`
	assert.Equal(t, exp, buf.String())
}

func TestUnknownCommand(t *testing.T) {
	err := run([]string{"frobnicate"})
	assert.Error(t, err)
	assert.NoError(t, run([]string{"help"}))
}
