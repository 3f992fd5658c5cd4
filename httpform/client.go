package httpform

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/carlmjohnson/requests"

	"github.com/kjk/recordform/form"
	"github.com/kjk/recordform/record"
	"github.com/kjk/recordform/recordstore"
)

// Client talks to the JSON API of a form server
type Client struct {
	// e.g. "http://localhost:8080"
	BaseURL string
	// http.DefaultClient if nil
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL}
}

func (c *Client) builder(path string) *requests.Builder {
	b := requests.URL(c.BaseURL).
		Path(path).
		// error responses carry a dialog we want to decode
		CheckStatus(http.StatusOK, http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError)
	if c.HTTPClient != nil {
		b = b.Client(c.HTTPClient)
	}
	return b
}

// errFromDialog turns a dialog from the server into the error the local
// controller would have returned
func errFromDialog(d form.Dialog) error {
	switch d.Title {
	case form.TitleValidation:
		return &form.ValidationError{Err: errors.New(d.Message)}
	case form.TitleNotFound:
		return recordstore.ErrNotFound
	case form.TitleError:
		return errors.New(d.Message)
	}
	return nil
}

// Submit appends a record on the server
func (c *Client) Submit(ctx context.Context, rec record.Record) (form.Dialog, error) {
	var rsp APIResponse
	err := c.builder("/api/records").
		Post().
		BodyJSON(&rec).
		ToJSON(&rsp).
		Fetch(ctx)
	if err != nil {
		return form.Dialog{}, err
	}
	return rsp.Dialog, errFromDialog(rsp.Dialog)
}

// Find looks up a record by id on the server
func (c *Client) Find(ctx context.Context, id string) (record.Record, form.Dialog, error) {
	if id == "" {
		return record.Record{}, form.DialogMissingID, &form.ValidationError{Missing: []string{"ID"}}
	}
	var rsp APIResponse
	err := c.builder("/api/records/" + url.PathEscape(id)).
		ToJSON(&rsp).
		Fetch(ctx)
	if err != nil {
		return record.Record{}, form.Dialog{}, err
	}
	if err = errFromDialog(rsp.Dialog); err != nil {
		return record.Record{}, rsp.Dialog, err
	}
	if rsp.Record == nil {
		return record.Record{}, rsp.Dialog, errors.New("server response has no record")
	}
	return *rsp.Record, rsp.Dialog, nil
}
