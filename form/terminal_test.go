package form

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
)

func runTerminal(t *testing.T, c *Controller, input string) string {
	var out bytes.Buffer
	err := RunTerminal(c, strings.NewReader(input), &out)
	assert.NoError(t, err)
	return out.String()
}

func TestTerminalSubmitAndFind(t *testing.T) {
	store := newStore(t)
	c := New(store)

	input := `name Alice Smith
id A100
gender female
province Ontario
dob 1990-05-01
new
name
id
find
id A100
find
close
name never reached
`
	out := runTerminal(t, c, input)
	assert.True(t, strings.Contains(out, DialogSaved.String()), "got: %s", out)
	assert.True(t, strings.Contains(out, DialogMissingID.String()), "got: %s", out)
	assert.Equal(t, []string{"Alice Smith,A100,Female,Ontario,1990-05-01"}, fileLines(t, store.Path()))
	// form populated after find
	last := out[strings.LastIndex(out, "Full Name:"):]
	assert.True(t, strings.Contains(last, "Alice Smith"), "got: %s", last)
}

func TestTerminalValidationAndDisabled(t *testing.T) {
	store := newStore(t)
	c := New(store)
	input := `name Bob
gender robot
new
delete
restore
prev
bogus
`
	out := runTerminal(t, c, input)
	assert.True(t, strings.Contains(out, "gender must be one of"), "got: %s", out)
	assert.True(t, strings.Contains(out, DialogMissingFields.String()), "got: %s", out)
	assert.True(t, strings.Contains(out, "'Delete' is disabled"), "got: %s", out)
	assert.True(t, strings.Contains(out, "'Restore' is disabled"), "got: %s", out)
	assert.True(t, strings.Contains(out, "'Find Prev' is disabled"), "got: %s", out)
	assert.True(t, strings.Contains(out, "unknown command 'bogus'"), "got: %s", out)
	assert.Equal(t, 0, len(fileLines(t, store.Path())))
}

func TestTerminalNotFound(t *testing.T) {
	store := newStore(t)
	c := New(store)
	out := runTerminal(t, c, "name A\nid A1\ngender Male\nprovince P\ndob 2000-01-01\nnew\nid Z9\nfind\n")
	assert.True(t, strings.Contains(out, DialogNotFound.String()), "got: %s", out)
}
