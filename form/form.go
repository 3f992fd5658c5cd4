// Package form is the controller between an editable form and the
// records file. It validates input, calls the store and tells the
// surface (terminal, web page) what to show.
//
// The controller keeps no state: the current field values are passed in
// and the updated values are returned.
package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kjk/recordform/log"
	"github.com/kjk/recordform/record"
	"github.com/kjk/recordform/recordstore"
)

// Values are the editable fields of the form
type Values struct {
	FullName string
	ID       string
	Gender   string
	Province string
	// DOB is YYYY-MM-DD, empty if not picked
	DOB string
}

func (v Values) Record() record.Record {
	return record.Record{
		FullName: v.FullName,
		ID:       v.ID,
		Gender:   v.Gender,
		Province: v.Province,
		DOB:      v.DOB,
	}
}

func ValuesFromRecord(r record.Record) Values {
	return Values{
		FullName: r.FullName,
		ID:       r.ID,
		Gender:   record.NormalizeGender(r.Gender),
		Province: r.Province,
		DOB:      r.DOB,
	}
}

// Dialog is a modal informational message. Zero value means: show nothing.
type Dialog struct {
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

func (d Dialog) IsEmpty() bool {
	return d.Title == "" && d.Message == ""
}

func (d Dialog) String() string {
	return fmt.Sprintf("[%s] %s", d.Title, d.Message)
}

const (
	TitleValidation = "Validation Error"
	TitleSuccess    = "Success"
	TitleNotFound   = "Not Found"
	TitleError      = "Error"
)

var (
	DialogMissingFields = Dialog{TitleValidation, "All fields must be filled out."}
	DialogMissingID     = Dialog{TitleValidation, "Please enter an ID to search."}
	DialogSaved         = Dialog{TitleSuccess, "Record saved successfully."}
	DialogNotFound      = Dialog{TitleNotFound, "No record found with the given ID."}
)

var (
	// ErrClose is returned by Controller.Close. The surface should exit.
	ErrClose = errors.New("form closed")
	// ErrActionDisabled is returned when invoking an action that is disabled
	ErrActionDisabled = errors.New("action is disabled")
)

// ValidationError is returned when input is rejected before touching the store
type ValidationError struct {
	// display names of empty fields
	Missing []string
	// set when date of birth is present but invalid
	Err error
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "missing fields: " + strings.Join(e.Missing, ", ")
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RecordStore is what the controller needs from storage
type RecordStore interface {
	Append(rec record.Record) error
	FindByID(id string) (record.Record, error)
}

type Controller struct {
	Store RecordStore
}

func New(store RecordStore) *Controller {
	return &Controller{Store: store}
}

func errorDialog(what string, err error) Dialog {
	return Dialog{TitleError, fmt.Sprintf("%s: %s", what, err)}
}

// Submit validates v and appends it as a new record
func (c *Controller) Submit(v Values) (Dialog, error) {
	rec := v.Record()
	if missing := rec.MissingFields(); len(missing) > 0 {
		log.Event("record.invalid", "op", "submit", "missing", strings.Join(missing, ","))
		return DialogMissingFields, &ValidationError{Missing: missing}
	}
	if _, err := record.ParseDOB(rec.DOB); err != nil {
		log.Event("record.invalid", "op", "submit", "dob", rec.DOB)
		return Dialog{TitleValidation, err.Error()}, &ValidationError{Err: err}
	}

	if err := c.Store.Append(rec); err != nil {
		log.Errorf("Submit: saving record with id '%s' failed with '%s'", rec.ID, err)
		log.Event("record.io_error", "op", "submit", "id", rec.ID, "error", err.Error())
		return errorDialog("Could not save record", err), err
	}
	log.Event("record.saved", "id", rec.ID)
	return DialogSaved, nil
}

// Find looks up a record by v.ID. On match returns values of the stored
// record and an empty dialog. Otherwise v is returned unchanged.
func (c *Controller) Find(v Values) (Values, Dialog, error) {
	if v.ID == "" {
		log.Event("record.invalid", "op", "find", "missing", "ID")
		return v, DialogMissingID, &ValidationError{Missing: []string{"ID"}}
	}
	rec, err := c.Store.FindByID(v.ID)
	if errors.Is(err, recordstore.ErrNotFound) {
		log.Event("record.not_found", "id", v.ID)
		return v, DialogNotFound, err
	}
	if err != nil {
		log.Errorf("Find: looking up id '%s' failed with '%s'", v.ID, err)
		log.Event("record.io_error", "op", "find", "id", v.ID, "error", err.Error())
		return v, errorDialog("Could not search records", err), err
	}
	log.Event("record.found", "id", v.ID)
	return ValuesFromRecord(rec), Dialog{}, nil
}

// Close asks the surface to exit. Every Submit is already written so
// there is nothing to flush.
func (c *Controller) Close() error {
	log.Event("form.closed")
	return ErrClose
}
