package log

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/toon-format/toon-go"
)

var (
	logFile    *WriteDaily
	errorsFile *WriteDaily
	eventsFile *WriteDaily
	httpFile   *WriteDaily

	// if true, Verbosef() will log messages
	Verbose bool

	// Stdout is where Logf() echoes messages. Tests can silence it.
	Stdout io.Writer = os.Stdout
)

// WriteDaily appends to a file named YYYY-MM-DD.txt in Dir,
// switching to a new file when the day (UTC) changes
type WriteDaily struct {
	Dir         string
	currentDate int // YYYYMMDD format
	file        *os.File
	mu          sync.Mutex
}

func NewWriteDaily(dir string) *WriteDaily {
	return &WriteDaily{
		Dir: dir,
	}
}

// dayFromTime converts a time.Time to YYYYMMDD
func dayFromTime(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// PathForTime returns path of the file that receives writes at time t
func (w *WriteDaily) PathForTime(t time.Time) string {
	return filepath.Join(w.Dir, t.UTC().Format("2006-01-02")+".txt")
}

// must be called with w.mu locked
func (w *WriteDaily) writer() (io.Writer, error) {
	now := time.Now().UTC()
	today := dayFromTime(now)

	if w.file != nil && w.currentDate != today {
		if err := w.close(); err != nil {
			return nil, err
		}
	}
	if w.file != nil {
		return w.file, nil
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(w.PathForTime(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	w.file = f
	w.currentDate = today
	return w.file, nil
}

// Write writes data to today's file.
// it's safe to call on nil receiver
func (w *WriteDaily) Write(d []byte) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	wr, err := w.writer()
	if err != nil {
		return err
	}
	_, err = wr.Write(d)
	return err
}

// WriteString writes a string to today's file.
// it's safe to call on nil receiver
func (w *WriteDaily) WriteString(s string) error {
	return w.Write([]byte(s))
}

func (w *WriteDaily) close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.currentDate = 0
	return err
}

// Close syncs and closes the current file.
// it's safe to call on nil receiver
func (w *WriteDaily) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_ = w.file.Sync()
	}
	return w.close()
}

type Config struct {
	// directory where log files are stored
	// each log type (regular, error, event, http) has its own subdirectory
	Dir string
}

// Init sets up logging to files in config.Dir.
// Before Init (or with empty Dir) we only log to Stdout.
func Init(config *Config) {
	if config == nil || config.Dir == "" {
		return
	}
	dir := config.Dir
	logFile = NewWriteDaily(filepath.Join(dir, "log"))
	errorsFile = NewWriteDaily(filepath.Join(dir, "errors"))
	// those don't create files until the first event / request
	eventsFile = NewWriteDaily(filepath.Join(dir, "events"))
	httpFile = NewWriteDaily(filepath.Join(dir, "http"))
}

func closeWriteDaily(wd **WriteDaily) {
	if *wd == nil {
		return
	}
	(*wd).Close()
	*wd = nil
}

func Close() {
	closeWriteDaily(&logFile)
	closeWriteDaily(&errorsFile)
	closeWriteDaily(&eventsFile)
	closeWriteDaily(&httpFile)
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if Stdout != nil {
		fmt.Fprint(Stdout, s)
	}
	logFile.WriteString(s)
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

func GetCallstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		cs = append(cs, frame.File+":"+strconv.Itoa(frame.Line))
	}
	return cs
}

func GetCallstack(skip int) string {
	frames := GetCallstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

// Errorf logs an error message along with the callstack.
// The message also goes to the errors log.
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(2)
	s = fmt.Sprintf("%s\n%s\n", s, cs)
	Logf("%s", s)
	errorsFile.WriteString(s)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "saving record failed: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}

// keyToStr converts simple types to string
// panics if v is of complex type
func keyToStr(v any) string {
	kind := reflect.TypeOf(v).Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer, reflect.Func:
		panic(fmt.Sprintf("keyToStr: key is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// MarshalEventLine frames event data d as:
// "--- ${len(d)} ${unix_ms} ${name}\n${d}\n"
// trailing '\n' is only added if d doesn't end with one
func MarshalEventLine(name string, t time.Time, d []byte) []byte {
	var sb strings.Builder
	sb.Grow(len(d) + len(name) + 32)
	sb.WriteString("--- ")
	sb.WriteString(strconv.Itoa(len(d)))
	sb.WriteString(" ")
	sb.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	if name != "" {
		sb.WriteString(" ")
		sb.WriteString(name)
	}
	sb.WriteByte('\n')
	if n := len(d); n > 0 {
		sb.Write(d)
		if d[n-1] != '\n' {
			sb.WriteByte('\n')
		}
	}
	return []byte(sb.String())
}

// MarshalEvent encodes key/value pairs in toon format
func MarshalEvent(vals ...any) ([]byte, error) {
	n := len(vals)
	if n%2 != 0 {
		return nil, fmt.Errorf("odd number of values: %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	m := map[string]any{}
	for i := 0; i < n; i += 2 {
		m[keyToStr(vals[i])] = vals[i+1]
	}
	return toon.Marshal(m)
}

// Event records a named event with key / value pairs to the events log
func Event(name string, vals ...any) {
	d, err := MarshalEvent(vals...)
	if err != nil {
		Errorf("Event('%s'): %v", name, err)
		return
	}
	Verbosef("event: %s %v\n", name, vals)
	eventsFile.Write(MarshalEventLine(name, time.Now().UTC(), d))
}

func pickFirst(s string) string {
	parts := strings.Split(s, ",")
	return strings.TrimSpace(parts[0])
}

// BestRemoteAddress picks the most accurate IP address from client request
// needed because of proxies
func BestRemoteAddress(r *http.Request) string {
	h := r.Header
	for _, hdr := range []string{"CF-Connecting-IP", "X-Real-Ip", "X-Forwarded-For"} {
		if val := h.Get(hdr); val != "" {
			return pickFirst(val)
		}
	}
	return pickFirst(r.RemoteAddr)
}

// HTTPRequest writes a JSON line describing a served request to the http log
func HTTPRequest(r *http.Request, code int, nWritten int64, dur time.Duration) error {
	entry := map[string]any{
		"ts":     time.Now().UTC().Unix(),
		"method": r.Method,
		"url":    r.URL.Path,
		"ip":     BestRemoteAddress(r),
		"code":   code,
		"size":   nWritten,
		"dur":    float64(dur.Microseconds()) / 1000.0, // milliseconds
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		entry["ua"] = ua
	}
	buf := &strings.Builder{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(entry); err != nil {
		return err
	}
	Verbosef("%s %s %d %s\n", r.Method, r.URL.Path, code, dur)
	return httpFile.WriteString(buf.String())
}
