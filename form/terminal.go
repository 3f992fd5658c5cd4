package form

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kjk/recordform/record"
)

// fieldSetters maps a terminal command to the field it edits
var fieldSetters = []struct {
	cmd   string
	label string
	set   func(v *Values, s string)
	get   func(v *Values) string
}{
	{"name", "Full Name", func(v *Values, s string) { v.FullName = s }, func(v *Values) string { return v.FullName }},
	{"id", "ID", func(v *Values, s string) { v.ID = s }, func(v *Values) string { return v.ID }},
	{"gender", "Gender", func(v *Values, s string) { v.Gender = s }, func(v *Values) string { return v.Gender }},
	{"province", "Home Province", func(v *Values, s string) { v.Province = s }, func(v *Values) string { return v.Province }},
	{"dob", "Date of Birth", func(v *Values, s string) { v.DOB = s }, func(v *Values) string { return v.DOB }},
}

func printForm(w io.Writer, v *Values) {
	fmt.Fprintf(w, "\n")
	for _, f := range fieldSetters {
		fmt.Fprintf(w, "  %-14s %s\n", f.label+":", f.get(v))
	}
	var parts []string
	for _, a := range Actions {
		s := string(a.ID)
		if !a.Enabled {
			s += " (disabled)"
		}
		parts = append(parts, s)
	}
	fmt.Fprintf(w, "  actions: %s\n", strings.Join(parts, ", "))
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, "Edit a field with: <field> <value> (no value clears the field)\n")
	fmt.Fprintf(w, "  fields: name, id, gender (%s), province, dob (YYYY-MM-DD)\n", strings.Join(record.Genders, "|"))
	fmt.Fprintf(w, "Run an action with its name: new, find, close\n")
	fmt.Fprintf(w, "Other: show, help\n")
}

// setField handles "<field> <value>". Returns false if cmd is not a field.
func setField(w io.Writer, v *Values, cmd string, arg string) bool {
	for _, f := range fieldSetters {
		if f.cmd != cmd {
			continue
		}
		if cmd == "gender" && arg != "" {
			g := record.NormalizeGender(arg)
			valid := false
			for _, known := range record.Genders {
				valid = valid || g == known
			}
			if !valid {
				fmt.Fprintf(w, "gender must be one of: %s\n", strings.Join(record.Genders, ", "))
				return true
			}
			arg = g
		}
		f.set(v, arg)
		return true
	}
	return false
}

// RunTerminal drives the controller from a line-oriented terminal form.
// Returns nil when the form is closed or input ends.
func RunTerminal(c *Controller, in io.Reader, out io.Writer) error {
	var v Values
	scanner := bufio.NewScanner(in)
	printHelp(out)
	printForm(out, &v)
	for {
		fmt.Fprintf(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintf(out, "\n")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		cmd = strings.ToLower(cmd)
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "help", "?":
			printHelp(out)
			continue
		case "show":
			printForm(out, &v)
			continue
		}
		if setField(out, &v, cmd, arg) {
			continue
		}

		a, ok := FindAction(cmd)
		if !ok {
			fmt.Fprintf(out, "unknown command '%s', type 'help'\n", cmd)
			continue
		}
		res := c.Do(a.ID, v)
		if errors.Is(res.Err, ErrClose) {
			return nil
		}
		if errors.Is(res.Err, ErrActionDisabled) {
			fmt.Fprintf(out, "'%s' is disabled\n", a.Label)
			continue
		}
		if !res.Dialog.IsEmpty() {
			fmt.Fprintf(out, "%s\n", res.Dialog)
		}
		if res.Values != v {
			v = res.Values
			printForm(out, &v)
		}
	}
}
