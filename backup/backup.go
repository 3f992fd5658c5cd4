// Package backup makes compressed, timestamped snapshots of the records
// file and restores them. Snapshots can be uploaded to S3-compatible
// storage (see Uploader).
package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

type Codec string

const (
	CodecZstd   Codec = "zst"
	CodecBrotli Codec = "br"
)

const timestampLayout = "20060102-150405"

// ErrDstNotEmpty is returned by Restore when it would replace a non-empty
// file without overwrite
var ErrDstNotEmpty = errors.New("destination exists and is not empty")

type Options struct {
	// path of the file to snapshot
	SrcPath string
	// directory where snapshots are written, created if needed
	Dir string
	// CodecZstd if empty
	Codec Codec
	// time used in the snapshot name. time.Now() if zero
	Now time.Time
}

// SnapshotName returns "${name}-${YYYYMMDD-HHMMSS}${ext}.${codec}"
// e.g. "records-20240115-103045.txt.zst"
func SnapshotName(srcPath string, t time.Time, codec Codec) string {
	base := filepath.Base(srcPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s-%s%s.%s", name, t.UTC().Format(timestampLayout), ext, codec)
}

func codecFromPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch Codec(ext) {
	case CodecZstd, CodecBrotli:
		return Codec(ext), nil
	}
	return "", fmt.Errorf("'%s' is not a snapshot, unknown extension '%s'", path, ext)
}

func compress(dst io.Writer, src io.Reader, codec Codec) error {
	var w io.WriteCloser
	switch codec {
	case CodecZstd:
		// zstd.SpeedBestCompression is much slower and not much better
		zw, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		w = zw
	case CodecBrotli:
		w = brotli.NewWriterLevel(dst, brotli.BestCompression)
	default:
		return fmt.Errorf("unknown codec '%s'", codec)
	}
	_, err := io.Copy(w, src)
	err2 := w.Close()
	if err != nil {
		return err
	}
	return err2
}

func decompress(dst io.Writer, src io.Reader, codec Codec) error {
	switch codec {
	case CodecZstd:
		zr, err := zstd.NewReader(src)
		if err != nil {
			return err
		}
		defer zr.Close()
		_, err = io.Copy(dst, zr)
		return err
	case CodecBrotli:
		_, err := io.Copy(dst, brotli.NewReader(src))
		return err
	}
	return fmt.Errorf("unknown codec '%s'", codec)
}

// Snapshot writes a compressed copy of opts.SrcPath to opts.Dir
// and returns its path
func Snapshot(opts Options) (string, error) {
	if opts.SrcPath == "" || opts.Dir == "" {
		return "", fmt.Errorf("must provide SrcPath and Dir")
	}
	codec := opts.Codec
	if codec == "" {
		codec = CodecZstd
	}
	t := opts.Now
	if t.IsZero() {
		t = time.Now()
	}
	src, err := os.Open(opts.SrcPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err = os.MkdirAll(opts.Dir, 0755); err != nil {
		return "", err
	}
	dstPath := filepath.Join(opts.Dir, SnapshotName(opts.SrcPath, t, codec))
	err = writeAtomically(dstPath, func(w io.Writer) error {
		return compress(w, src, codec)
	})
	if err != nil {
		return "", fmt.Errorf("snapshot of '%s' failed: %w", opts.SrcPath, err)
	}
	return dstPath, nil
}

// Restore decompresses snapshot at path to dstPath, replacing dstPath
// atomically. A non-empty dstPath is only replaced if overwrite is true,
// records added after the snapshot would be lost.
func Restore(path string, dstPath string, overwrite bool) error {
	codec, err := codecFromPath(path)
	if err != nil {
		return err
	}
	if !overwrite {
		st, err := os.Stat(dstPath)
		if err == nil && st.Size() > 0 {
			return fmt.Errorf("can't restore to '%s': %w", dstPath, ErrDstNotEmpty)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	return writeAtomically(dstPath, func(w io.Writer) error {
		return decompress(w, src, codec)
	})
}

// List returns paths of snapshots in dir, oldest first
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if _, err := codecFromPath(e.Name()); err != nil {
			continue
		}
		res = append(res, filepath.Join(dir, e.Name()))
	}
	// timestamp in the name sorts chronologically
	sort.Strings(res)
	return res, nil
}
