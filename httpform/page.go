package httpform

import (
	"html/template"
	"io"

	"github.com/kjk/recordform/form"
	"github.com/kjk/recordform/record"
)

const pageHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Application Form</title>
<style>
body { background: #3584c4; color: white; font-family: sans-serif; }
.form { display: flex; gap: 20px; padding: 20px; }
.fields { background: #4d687d; padding: 20px; display: flex; flex-direction: column; gap: 8px; }
.fields input { background: #333; color: white; }
.buttons { display: flex; flex-direction: column; gap: 15px; padding: 20px; }
.buttons button { background: #444; color: white; }
.dialog { background: white; color: black; padding: 10px; margin: 20px; }
</style>
</head>
<body>
{{if .Dialog.Title}}<div class="dialog" role="alertdialog"><b>{{.Dialog.Title}}</b><p>{{.Dialog.Message}}</p></div>{{end}}
<form method="post" class="form">
<div class="fields">
<label>Full Name <input name="fullName" value="{{.Values.FullName}}" placeholder="Full Name"></label>
<label>ID <input name="id" value="{{.Values.ID}}" placeholder="ID"></label>
<div>Gender
{{range .Genders}}<label><input type="radio" name="gender" value="{{.}}"{{if eq . $.Values.Gender}} checked{{end}}> {{.}}</label>
{{end}}</div>
<label>Home Province <input name="province" value="{{.Values.Province}}" placeholder="Home Province"></label>
<label>Date of Birth <input type="date" name="dob" value="{{.Values.DOB}}"></label>
</div>
<div class="buttons">
{{range .Actions}}<button type="submit" name="action" value="{{.ID}}" formaction="/{{.ID}}"{{if not .Enabled}} disabled{{end}}>{{.Label}}</button>
{{end}}</div>
</form>
</body>
</html>
`

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

type pageData struct {
	Values  form.Values
	Dialog  form.Dialog
	Genders []string
	Actions []form.Action
}

func renderPage(w io.Writer, v form.Values, d form.Dialog) error {
	data := &pageData{
		Values:  v,
		Dialog:  d,
		Genders: record.Genders,
		Actions: form.Actions,
	}
	return pageTmpl.Execute(w, data)
}
