package viz

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/helmholtz/internal/dynamo"
	"github.com/san-kum/helmholtz/internal/experiment"
)

// CanvasSVG converts a Braille canvas to SVG, one circle per lit dot.
func CanvasSVG(c *Canvas, scale float64) string {
	if c == nil {
		return ""
	}

	width := float64(c.Width) * scale * 2
	height := float64(c.Height) * scale * 4

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height)

	r := scale * 0.4
	for row := 0; row < c.Height; row++ {
		for col := 0; col < c.Width; col++ {
			pattern := int(c.Grid[row][col] - 0x2800)
			if pattern <= 0 {
				continue
			}
			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] == 0 {
						continue
					}
					cx := baseX + float64(dx)*scale + scale/2
					cy := baseY + float64(dy)*scale + scale/2
					fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, r)
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Series is one trajectory drawn by PhaseSVG.
type Series struct {
	Name   string
	Stroke string
	States []dynamo.State
}

// PhaseSVG writes the (xIdx, yIdx) projection of each series as an SVG
// path. Invalid states start a new subpath.
func PhaseSVG(w io.Writer, width, height, xIdx, yIdx int, series ...Series) error {
	trajs := make([][]dynamo.State, len(series))
	for i, s := range series {
		trajs[i] = s.States
	}
	b := PhaseBounds(xIdx, yIdx, trajs...)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for _, s := range series {
		fmt.Fprintf(&sb, `<path id=%q fill="none" stroke=%q stroke-width="1.5" d="`, s.Name, s.Stroke)
		move := true
		for _, x := range s.States {
			if xIdx >= len(x) || yIdx >= len(x) || !x.IsValid() {
				move = true
				continue
			}
			px := (x[xIdx] - b.MinX) / (b.MaxX - b.MinX) * float64(width)
			py := (b.MaxY - x[yIdx]) / (b.MaxY - b.MinY) * float64(height)
			cmd := "L"
			if move {
				cmd = "M"
				move = false
			}
			fmt.Fprintf(&sb, "%s%.1f,%.1f ", cmd, px, py)
		}
		sb.WriteString("\"/>\n")
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// ComparisonSVG draws the learned and reference phase portraits together.
func ComparisonSVG(w io.Writer, c *experiment.Comparison, width, height int) error {
	xIdx, yIdx := phaseAxes(c.Learned.States)
	return PhaseSVG(w, width, height, xIdx, yIdx,
		Series{Name: "reference", Stroke: "#7d56f4", States: c.Reference.States},
		Series{Name: "learned", Stroke: "#04b575", States: c.Learned.States},
	)
}
