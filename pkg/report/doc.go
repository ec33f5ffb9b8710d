// Package report aggregates snapshots into per-date style counts and renders
// them as a stacked-bar SVG chart and a CSV table.
//
// # Aggregation
//
// [Aggregate] loads every snapshot in a [snapshot.Store] in date order and
// counts packages per style. Type-definition packages (names starting with
// "@types/") are left out, as are values that are not one of the four
// styles. A row's Total is always the sum of its four counts.
//
// # Output
//
//   - [RenderSVG]: one horizontal bar per date, split into esm, dual, faux
//     and cjs segments, with a legend and a dark-mode stylesheet
//   - [WriteCSV]: header "date,total,esm,dual,faux,cjs" and one line per date
//
// Usage:
//
//	rows, err := report.Aggregate(ctx, store)
//	svg := report.RenderSVG(rows)
//	err = report.WriteCSV(w, rows)
package report
