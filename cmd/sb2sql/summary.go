package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"superbase-golang/superbase/convert"
)

type summary struct {
	converted, skipped, failed int
	rows                       int
}

func summarize(results []convert.Result) summary {
	var s summary
	for _, result := range results {
		switch result.Status {
		case convert.StatusConverted:
			s.converted++
			s.rows += len(result.Table.Rows)
		case convert.StatusSkipped:
			s.skipped++
		case convert.StatusFailed:
			s.failed++
		}
	}
	return s
}

var statusColors = map[convert.Status]*color.Color{
	convert.StatusConverted: color.New(color.FgGreen),
	convert.StatusSkipped:   color.New(color.FgYellow),
	convert.StatusFailed:    color.New(color.FgRed, color.Bold),
}

// printSummary writes one line per table followed by the totals.
func printSummary(w io.Writer, results []convert.Result, s summary) {
	for _, result := range results {
		statusColors[result.Status].Fprintf(w, "%-9s", result.Status)
		if result.Status == convert.StatusConverted {
			fmt.Fprintf(w, " %s: %d rows, %d columns\n", result.Pair.Name, len(result.Table.Rows), len(result.Table.Columns))
		} else {
			fmt.Fprintf(w, " %s: %v\n", result.Pair.Name, result.Err)
		}
	}
	color.New(color.Bold).Fprintf(w, "%d converted (%d rows), %d skipped, %d failed\n",
		s.converted, s.rows, s.skipped, s.failed)
}
