// Package httpform serves the form as a web page and as a JSON API,
// and has a client for the JSON API
package httpform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjk/recordform/form"
	"github.com/kjk/recordform/log"
	"github.com/kjk/recordform/record"
	"github.com/kjk/recordform/recordstore"
)

// APIResponse is the body of every /api/ response
type APIResponse struct {
	Dialog form.Dialog    `json:"dialog"`
	Record *record.Record `json:"record,omitempty"`
}

type Server struct {
	Controller *form.Controller
}

func New(c *form.Controller) *Server {
	return &Server{Controller: c}
}

type capturingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
}

func (w *capturingResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *capturingResponseWriter) Write(d []byte) (int, error) {
	w.size += int64(len(d))
	return w.ResponseWriter.Write(d)
}

func withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timeStart := time.Now()
		cw := &capturingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		h.ServeHTTP(cw, r)
		err := log.HTTPRequest(r, cw.statusCode, cw.size, time.Since(timeStart))
		log.IfErrf(err)
	})
}

func valuesFromRequest(r *http.Request) form.Values {
	return form.Values{
		FullName: r.FormValue("fullName"),
		ID:       r.FormValue("id"),
		Gender:   r.FormValue("gender"),
		Province: r.FormValue("province"),
		DOB:      r.FormValue("dob"),
	}
}

func servePage(w http.ResponseWriter, v form.Values, d form.Dialog, code int) {
	var buf bytes.Buffer
	if err := renderPage(&buf, v, d); err != nil {
		log.Errorf("renderPage() failed with '%s'", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

func serveJSON(w http.ResponseWriter, v any, code int) {
	d, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(d)
}

// statusForError maps a controller error to http status code
func statusForError(err error) int {
	var verr *form.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, recordstore.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	servePage(w, form.Values{}, form.Dialog{}, http.StatusOK)
}

// POST /new
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	v := valuesFromRequest(r)
	d, err := s.Controller.Submit(v)
	servePage(w, v, d, statusForError(err))
}

// GET|POST /find
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	v := valuesFromRequest(r)
	v, d, err := s.Controller.Find(v)
	servePage(w, v, d, statusForError(err))
}

// POST /close, /delete, /restore, /prev
func (s *Server) handleDisabledOrClose(w http.ResponseWriter, r *http.Request) {
	id := form.ActionID(r.PathValue("action"))
	v := valuesFromRequest(r)
	res := s.Controller.Do(id, v)
	switch {
	case errors.Is(res.Err, form.ErrClose):
		// closing a web page doesn't stop the server
		servePage(w, form.Values{}, form.Dialog{}, http.StatusOK)
	case errors.Is(res.Err, form.ErrActionDisabled):
		servePage(w, v, form.Dialog{Title: form.TitleError, Message: res.Err.Error()}, http.StatusForbidden)
	default:
		http.NotFound(w, r)
	}
}

// POST /api/records
func (s *Server) handleAPISubmit(w http.ResponseWriter, r *http.Request) {
	var rec record.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		d := form.Dialog{Title: form.TitleValidation, Message: fmt.Sprintf("invalid JSON: %s", err)}
		serveJSON(w, &APIResponse{Dialog: d}, http.StatusBadRequest)
		return
	}
	rec.Gender = record.NormalizeGender(rec.Gender)
	v := form.Values{
		FullName: rec.FullName,
		ID:       rec.ID,
		Gender:   rec.Gender,
		Province: rec.Province,
		DOB:      rec.DOB,
	}
	d, err := s.Controller.Submit(v)
	rsp := &APIResponse{Dialog: d}
	if err == nil {
		rsp.Record = &rec
	}
	serveJSON(w, rsp, statusForError(err))
}

// GET /api/records/{id}
func (s *Server) handleAPIFind(w http.ResponseWriter, r *http.Request) {
	v, d, err := s.Controller.Find(form.Values{ID: r.PathValue("id")})
	rsp := &APIResponse{Dialog: d}
	if err == nil {
		rec := v.Record()
		rsp.Record = &rec
	}
	serveJSON(w, rsp, statusForError(err))
}

// Handler returns http.Handler with all routes, logging each request
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("POST /new", s.handleNew)
	mux.HandleFunc("GET /find", s.handleFind)
	mux.HandleFunc("POST /find", s.handleFind)
	mux.HandleFunc("POST /{action}", s.handleDisabledOrClose)
	mux.HandleFunc("POST /api/records", s.handleAPISubmit)
	mux.HandleFunc("GET /api/records/{id}", s.handleAPIFind)
	return withLogging(mux)
}

// ListenAndServe runs the server until SIGINT / SIGTERM or ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("need to provide addr")
	}
	httpSrv := &http.Server{
		Addr:         addr,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		Handler:      s.Handler(),
	}
	chServerClosed := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		// mute error caused by Shutdown()
		if err == http.ErrServerClosed {
			err = nil
		}
		chServerClosed <- err
	}()
	log.Logf("serving the form on http://%s\n", addr)

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt /* SIGINT */, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case err := <-chServerClosed:
		return err
	case <-c:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpSrv.Shutdown(shutdownCtx)
	if err == nil {
		err = <-chServerClosed
	}
	return err
}
