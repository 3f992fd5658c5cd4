package backup

import (
	"io"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

// writeAtomically calls fn with a temporary file in the directory of path
// and renames it to path only if fn, Sync() and Close() all succeed.
// On failure the temporary file is removed and path is untouched.
func writeAtomically(path string, fn func(w io.Writer) error) (err error) {
	dir, name := filepath.Split(path)
	dir, err = filepath.Abs(dir)
	if err != nil {
		return err
	}
	if name == "" {
		return &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	tmpFile, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(tmpPath)
		}
	}()

	err = fn(tmpFile)
	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()
	if err == nil {
		err = errSync
	}
	if err == nil {
		err = errClose
	}
	if err != nil {
		return err
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return err
	}
	didRename = true
	// sync directory after rename. nice to have, so errors are ignored
	if fdir, _ := os.Open(dir); fdir != nil {
		_ = fdir.Sync()
		_ = fdir.Close()
	}
	return nil
}
