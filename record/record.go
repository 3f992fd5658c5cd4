package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// DOBLayout is the layout of date of birth, ISO-8601 calendar date
const DOBLayout = "2006-01-02"

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Genders are the choices offered by the form, in display order
var Genders = []string{GenderMale, GenderFemale}

// NumFields is the number of fields in a serialized record
const NumFields = 5

// FieldNames are display names of fields, in storage order
var FieldNames = []string{"Full Name", "ID", "Gender", "Home Province", "Date of Birth"}

// Record is one person's form data.
// Records are immutable once written.
type Record struct {
	FullName string `json:"fullName"`
	ID       string `json:"id"`
	Gender   string `json:"gender"`
	Province string `json:"province"`
	// DOB is formatted as DOBLayout
	DOB string `json:"dob"`
}

// Fields returns values in storage order:
// fullName, id, gender, province, dob
func (r *Record) Fields() []string {
	return []string{r.FullName, r.ID, r.Gender, r.Province, r.DOB}
}

// FromFields is the inverse of Record.Fields()
func FromFields(fields []string) (Record, error) {
	if len(fields) != NumFields {
		return Record{}, fmt.Errorf("expected %d fields, got %d", NumFields, len(fields))
	}
	return Record{
		FullName: fields[0],
		ID:       fields[1],
		Gender:   fields[2],
		Province: fields[3],
		DOB:      fields[4],
	}, nil
}

// MissingFields returns display names of fields that are empty
func (r *Record) MissingFields() []string {
	fields := r.Fields()
	return lo.Filter(FieldNames, func(_ string, i int) bool {
		return fields[i] == ""
	})
}

// NormalizeGender returns canonical spelling of a known gender,
// matched case-insensitively. Unknown values are returned as is.
func NormalizeGender(s string) string {
	if g, ok := lo.Find(Genders, func(g string) bool {
		return strings.EqualFold(g, s)
	}); ok {
		return g
	}
	return s
}

func ParseDOB(s string) (time.Time, error) {
	t, err := time.Parse(DOBLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date of birth '%s' is not in YYYY-MM-DD format", s)
	}
	return t, nil
}

func FormatDOB(t time.Time) string {
	return t.Format(DOBLayout)
}

func (r Record) String() string {
	return strings.Join(r.Fields(), ", ")
}
