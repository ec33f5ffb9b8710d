package report

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/matzehuels/esmstat/pkg/classify"
)

// Chart geometry.
const (
	Gutter      = 32.0
	ChartWidth  = 1024.0
	BarHeight   = 32.0
	LegendWidth = 96.0

	labelSpace  = 192.0 // room right of the bars for the date labels
	rotateBelow = 128.0 // segments narrower than this get a slanted label
)

// DefaultTitle is the chart title.
const DefaultTitle = "ESM vs. CJS on npm"

const chartCSS = `
text { font-size: 24px; font-weight: bolder; font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",Helvetica,Arial,sans-serif,"Apple Color Emoji","Segoe UI Emoji"; font-variant-numeric: tabular-nums; paint-order: stroke; dominant-baseline: middle; }
.b { fill: white; }
.esm { fill: white; }
.dual { fill: url(#a); }
.faux { fill: url(#b); }
.cjs { fill: url(#c); }
.esm, .dual, .faux, .cjs { stroke: #0d1117; stroke-width: 3px; }
text { fill: #0d1117; stroke: white; stroke-width: 3px; }
pattern line { stroke: #0d1117; stroke-width: 2px }
pattern rect { fill: #0d1117 }

@media (prefers-color-scheme: dark) {
  .b { fill: #0d1117; }
  .cjs, .dual, .esm, .faux { stroke: white; }
  .esm { fill: #0d1117; }
  text { fill: white; stroke: #0d1117; }
  pattern line { stroke: white; }
  pattern rect { fill: white }
}
`

const chartDefs = `<defs>
<pattern id="a" height="6" patternUnits="userSpaceOnUse" width="6" x="0" y="0"><line x1="0" y1="0" x2="0" y2="6"/></pattern>
<pattern id="b" height="6" patternUnits="userSpaceOnUse" width="6" x="0" y="0"><line x1="0" y1="0" x2="6" y2="0"/></pattern>
<pattern id="c" height="6" patternUnits="userSpaceOnUse" width="6" x="0" y="0"><rect height="1" width="1" x="0" y="0"/></pattern>
</defs>
`

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	title string
}

// WithTitle replaces the chart title.
func WithTitle(title string) SVGOption { return func(r *svgRenderer) { r.title = title } }

// RenderSVG draws one stacked bar per row, oldest first, followed by a
// legend. Rows with no counted packages render as zero-width segments.
func RenderSVG(rows []Row, opts ...SVGOption) []byte {
	r := svgRenderer{title: DefaultTitle}
	for _, opt := range opts {
		opt(&r)
	}

	barsHeight := float64(len(rows))*(BarHeight+Gutter) + Gutter
	width := ChartWidth + labelSpace
	height := barsHeight + Gutter + BarHeight

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg viewBox="0 0 %s %s" xmlns="http://www.w3.org/2000/svg">`, num(width), num(height))
	fmt.Fprintf(&buf, "<title>%s</title>\n", escapeXML(r.title))
	fmt.Fprintf(&buf, "<style>%s</style>\n", chartCSS)
	buf.WriteString(chartDefs)
	fmt.Fprintf(&buf, `<rect class="b" height="%s" width="%s" x="0" y="0"/>`+"\n", num(height), num(width))

	buf.WriteString("<g>\n")
	y := Gutter
	for _, row := range rows {
		renderBar(&buf, row, y)
		y += BarHeight + Gutter
	}
	renderLegend(&buf, y)
	buf.WriteString("</g>\n")

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderBar(buf *bytes.Buffer, row Row, y float64) {
	span := ChartWidth - 2*Gutter
	buf.WriteString("<g>\n")

	x := Gutter
	var labels bytes.Buffer
	for _, st := range classify.Styles {
		share := row.Share(st)
		w := share * span
		fmt.Fprintf(buf, `<rect class="%s" height="%s" width="%s" x="%s" y="%s"/>`+"\n",
			st, num(BarHeight), num(w), num(x), num(y))

		transform := fmt.Sprintf("translate(%s, %s)", num(x+w/2), num(y+BarHeight/2))
		if w < rotateBelow {
			transform += " rotate(-45)"
		}
		fmt.Fprintf(&labels, `<text text-anchor="middle" transform="%s">%.1f%%</text>`+"\n", transform, share*100)
		x += w
	}
	buf.Write(labels.Bytes())
	fmt.Fprintf(buf, `<text x="%s" y="%s">%s</text>`+"\n", num(x+Gutter), num(y+BarHeight/2), escapeXML(row.Date))

	buf.WriteString("</g>\n")
}

func renderLegend(buf *bytes.Buffer, y float64) {
	buf.WriteString("<g>\n")
	x := Gutter
	var labels bytes.Buffer
	for _, st := range classify.Styles {
		fmt.Fprintf(buf, `<rect class="%s" height="%s" width="%s" x="%s" y="%s"/>`+"\n",
			st, num(BarHeight), num(LegendWidth), num(x), num(y))
		fmt.Fprintf(&labels, `<text text-anchor="middle" transform="translate(%s, %s)">%s</text>`+"\n",
			num(x+LegendWidth/2), num(y+BarHeight/2), st)
		x += LegendWidth + Gutter
	}
	buf.Write(labels.Bytes())
	buf.WriteString("</g>\n")
}

// num formats f with the fewest digits that round-trip.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
