package report

import (
	"html/template"
	"io"

	"github.com/san-kum/aftermath/internal/record"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"value": FormatValue,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:sans-serif}
table{border-collapse:collapse}
th,td{border:1px solid #ccc;padding:6px;text-align:right}
th{background:#eee}
</style>
</head>
<body>
<h2>{{.Title}}</h2>
{{- if .Metrics}}
<table class="metrics">
{{- range .Metrics}}
<tr><th>{{.Name}}</th><td>{{value .Value}}</td></tr>
{{- end}}
</table>
<br>
{{- end}}
<table class="snapshots">
<tr>{{range .Keys}}<th>{{.}}</th>{{end}}</tr>
{{- range .Rows}}
<tr>{{range .}}<td>{{value .}}</td>{{end}}</tr>
{{- end}}
</table>
</body>
</html>
`))

// HTMLOptions controls the HTML table.
type HTMLOptions struct {
	Title string
	// SampleEvery keeps rows at whole-year multiples plus the final row.
	SampleEvery int
	Metrics     map[string]float64
}

type htmlMetric struct {
	Name  string
	Value float64
}

// WriteHTML writes the sampled snapshots as a standalone HTML table.
func WriteHTML(w io.Writer, keys []string, snaps []record.Snapshot, opts HTMLOptions) error {
	if len(snaps) == 0 {
		return ErrNoSnapshots
	}
	sampled := Sample(snaps, opts.SampleEvery)
	rows := make([][]float64, len(sampled))
	for i, s := range sampled {
		row := make([]float64, len(keys))
		for j, k := range keys {
			row[j] = s.Value(k)
		}
		rows[i] = row
	}

	data := struct {
		Title   string
		Keys    []string
		Rows    [][]float64
		Metrics []htmlMetric
	}{
		Title: opts.Title,
		Keys:  keys,
		Rows:  rows,
	}
	for _, name := range sortedKeys(opts.Metrics) {
		data.Metrics = append(data.Metrics, htmlMetric{Name: name, Value: opts.Metrics[name]})
	}
	return htmlTemplate.Execute(w, data)
}
