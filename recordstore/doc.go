// Package recordstore persists form records in a single append-only
// text file and finds them by a full linear scan.
//
// # File Format
//
// One record per line, five comma-separated fields in fixed order:
//
//	fullName,id,gender,province,dob
//
// A field containing a comma or a quote, or starting with whitespace,
// is quoted as in RFC 4180 (see encoding/csv). Other fields are written
// bare. Lines of files written by a naive comma join that don't parse as
// CSV are read as a plain split on ',' when that gives five fields.
// Fields can't contain newlines.
//
// # Basic Usage
//
//	s := &recordstore.Store{
//	    DataDir: ".",
//	}
//	err := recordstore.OpenStore(s)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = s.Append(rec)
//
//	rec, err := s.FindByID("A100")
//	if errors.Is(err, recordstore.ErrNotFound) {
//	    // ...
//	}
//
// The file is opened and closed for every operation, no handle is
// kept open between calls.
//
// # Thread Safety
//
// Append, FindByID and Count are serialized with a mutex, which
// protects against interleaved writes within a single process only.
// Records doesn't lock.
package recordstore
