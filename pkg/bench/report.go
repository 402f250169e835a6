package bench

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

// Report collects named results and renders them as a table.
type Report struct {
	Title string
	rows  []reportRow
}

type reportRow struct {
	name  string
	total float64
	stats Stats
}

func NewReport(title string) *Report {
	return &Report{Title: title}
}

// AddStopwatch adds a row summarising the intervals of a stopwatch.
func (r *Report) AddStopwatch(name string, sw *Stopwatch) {
	r.rows = append(r.rows, reportRow{name: name, total: sw.Total().Seconds(), stats: NewStats(sw.Intervals())})
}

// AddValues adds a row summarising arbitrary values, total being their sum.
func (r *Report) AddValues(name string, total float64, values []float64) {
	r.rows = append(r.rows, reportRow{name: name, total: total, stats: NewStats(values)})
}

// Render writes the report to w, as CSV if asCSV is set.
func (r *Report) Render(w io.Writer, asCSV bool) {
	if r.Title != "" && !asCSV {
		fmt.Fprintln(w, r.Title)
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"name", "n", "total", "mean", "std", "min", "max"})
	for _, row := range r.rows {
		t.AppendRow(table.Row{
			row.name,
			row.stats.N,
			format(row.total),
			format(row.stats.Mean),
			format(row.stats.StdDeviation),
			format(row.stats.Min),
			format(row.stats.Max),
		})
	}
	if asCSV {
		t.RenderCSV()
		return
	}
	t.Render()
}

func format(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
