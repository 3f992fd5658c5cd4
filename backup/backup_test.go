package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

const testRecords = "Alice Smith,A100,Female,Ontario,1990-05-01\nBob,B1,Male,Yukon,1980-01-02\n"

func writeSrc(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "records.txt")
	d := []byte(strings.Repeat(testRecords, 100))
	assert.NoError(t, os.WriteFile(path, d, 0644))
	return path
}

func TestSnapshotName(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)
	assert.Equal(t, "records-20240115-103045.txt.zst", SnapshotName("/data/records.txt", ts, CodecZstd))
	assert.Equal(t, "records-20240115-103045.txt.br", SnapshotName("records.txt", ts, CodecBrotli))
	assert.Equal(t, "records-20240115-103045.zst", SnapshotName("records", ts, CodecZstd))
}

func TestSnapshotRestore(t *testing.T) {
	src := writeSrc(t)
	orig, err := os.ReadFile(src)
	assert.NoError(t, err)

	for _, codec := range []Codec{CodecZstd, CodecBrotli, ""} {
		dir := t.TempDir()
		path, err := Snapshot(Options{SrcPath: src, Dir: dir, Codec: codec})
		assert.NoError(t, err)
		st, err := os.Stat(path)
		assert.NoError(t, err)
		assert.True(t, st.Size() < int64(len(orig)), "snapshot should be compressed")

		dst := filepath.Join(dir, "restored.txt")
		assert.NoError(t, Restore(path, dst, false))
		got, err := os.ReadFile(dst)
		assert.NoError(t, err)
		assert.True(t, bytes.Equal(orig, got), "codec '%s': restored data differs", codec)
	}
}

func TestSnapshotErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Snapshot(Options{Dir: dir})
	assert.Error(t, err)

	_, err = Snapshot(Options{SrcPath: filepath.Join(dir, "missing.txt"), Dir: dir})
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Snapshot(Options{SrcPath: writeSrc(t), Dir: dir, Codec: "lz4"})
	assert.Error(t, err)
	// failed snapshot leaves nothing behind
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(entries))

	err = Restore(filepath.Join(dir, "records.txt"), filepath.Join(dir, "out.txt"), false)
	assert.Error(t, err)
}

func TestRestoreRefusesNonEmpty(t *testing.T) {
	src := writeSrc(t)
	dir := t.TempDir()
	path, err := Snapshot(Options{SrcPath: src, Dir: dir})
	assert.NoError(t, err)

	dst := filepath.Join(dir, "live.txt")
	newer := []byte("Bob,B1,Male,Quebec,1980-01-02\n")
	assert.NoError(t, os.WriteFile(dst, newer, 0644))
	err = Restore(path, dst, false)
	assert.True(t, errors.Is(err, ErrDstNotEmpty), "got: %v", err)
	got, err := os.ReadFile(dst)
	assert.NoError(t, err)
	assert.Equal(t, newer, got)

	// empty file can be replaced
	assert.NoError(t, os.WriteFile(dst, nil, 0644))
	assert.NoError(t, Restore(path, dst, false))

	assert.NoError(t, os.WriteFile(dst, newer, 0644))
	assert.NoError(t, Restore(path, dst, true))
	got, err = os.ReadFile(dst)
	assert.NoError(t, err)
	orig, err := os.ReadFile(src)
	assert.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestList(t *testing.T) {
	src := writeSrc(t)
	dir := t.TempDir()
	t1 := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	p2, err := Snapshot(Options{SrcPath: src, Dir: dir, Now: t2, Codec: CodecBrotli})
	assert.NoError(t, err)
	p1, err := Snapshot(Options{SrcPath: src, Dir: dir, Now: t1})
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	got, err := List(dir)
	assert.NoError(t, err)
	assert.Equal(t, []string{p1, p2}, got)
}

func TestWriteAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	assert.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	errWrite := errors.New("write failed")
	err := writeAtomically(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errWrite
	})
	assert.True(t, errors.Is(err, errWrite))
	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "old", string(d))
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(entries))

	err = writeAtomically(path, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	})
	assert.NoError(t, err)
	d, err = os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "new", string(d))

	err = writeAtomically(dir+string(filepath.Separator), func(w io.Writer) error { return nil })
	assert.Error(t, err)
}

func TestUploadConfig(t *testing.T) {
	_, err := NewUploader(context.Background(), nil)
	assert.Error(t, err)
	_, err = NewUploader(context.Background(), &UploadConfig{Access: "a", Secret: "s"})
	assert.Error(t, err)

	t.Setenv("RECORDFORM_S3_ACCESS", "")
	assert.Nil(t, UploadConfigFromEnv())

	t.Setenv("RECORDFORM_S3_ACCESS", "access")
	t.Setenv("RECORDFORM_S3_SECRET", "secret")
	t.Setenv("RECORDFORM_S3_BUCKET", "bucket")
	t.Setenv("RECORDFORM_S3_ENDPOINT", "localhost:9000")
	t.Setenv("RECORDFORM_S3_PREFIX", "backups/records")
	c := UploadConfigFromEnv()
	assert.NotNil(t, c)
	assert.True(t, c.Secure)
	assert.Equal(t, "backups/records/records-20240115-103045.txt.zst", c.RemotePath("/tmp/x/records-20240115-103045.txt.zst"))
	c.Prefix = ""
	assert.Equal(t, "a.zst", c.RemotePath("a.zst"))
}
