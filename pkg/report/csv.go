package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/matzehuels/esmstat/pkg/classify"
)

// CSVHeader is the first line written by WriteCSV.
var CSVHeader = []string{"date", "total", "esm", "dual", "faux", "cjs"}

// WriteCSV writes the header followed by one record per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range rows {
		rec := make([]string, 0, len(CSVHeader))
		rec = append(rec, row.Date, strconv.Itoa(row.Total))
		for _, st := range classify.Styles {
			rec = append(rec, strconv.Itoa(row.Count(st)))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
