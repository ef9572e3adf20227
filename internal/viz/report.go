package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/helmholtz/internal/dynamo"
	"github.com/san-kum/helmholtz/internal/experiment"
	"github.com/san-kum/helmholtz/internal/sim"
)

type ReportOptions struct {
	Title string
	// Phase canvas size in terminal cells.
	CanvasWidth, CanvasHeight int
	GraphWidth, GraphHeight   int
}

func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		Title:        "rollout",
		CanvasWidth:  30,
		CanvasHeight: 10,
		GraphWidth:   60,
		GraphHeight:  8,
	}
}

// phaseAxes picks the first position and its momentum.
func phaseAxes(states []dynamo.State) (int, int) {
	if len(states) == 0 || len(states[0]) < 2 {
		return 0, 0
	}
	return 0, len(states[0]) / 2
}

func phasePanel(title string, states []dynamo.State, xIdx, yIdx int, b Bounds, opts ReportOptions) string {
	c := NewCanvas(opts.CanvasWidth, opts.CanvasHeight)
	c.PlotTrajectory(states, xIdx, yIdx, b)
	return Panel(title, strings.TrimRight(c.String(), "\n"))
}

func metricRows(values map[string]float64) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(MetricLabel.Render(name) + MetricValue.Render(fmt.Sprintf("%.4g", values[name])) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderResult draws the phase portrait of one rollout next to its
// metrics.
func RenderResult(r *sim.Result, opts ReportOptions) string {
	xIdx, yIdx := phaseAxes(r.States)
	b := PhaseBounds(xIdx, yIdx, r.States)

	stats := map[string]float64{
		"steps":        float64(r.StepsTaken),
		"energy drift": r.EnergyDrift,
	}
	for k, v := range r.Metrics {
		stats[k] = v
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		phasePanel("phase", r.States, xIdx, yIdx, b, opts),
		" ",
		Panel("metrics", metricRows(stats)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, HeaderStyle.Render(opts.Title), body)
}

// RenderComparison draws the learned and reference phase portraits on
// shared axes, the deviation between them over time and summary numbers.
func RenderComparison(c *experiment.Comparison, opts ReportOptions) string {
	xIdx, yIdx := phaseAxes(c.Reference.States)
	b := PhaseBounds(xIdx, yIdx, c.Learned.States, c.Reference.States)

	portraits := lipgloss.JoinHorizontal(lipgloss.Top,
		phasePanel("learned", c.Learned.States, xIdx, yIdx, b, opts),
		" ",
		phasePanel("reference", c.Reference.States, xIdx, yIdx, b, opts),
	)

	parts := []string{HeaderStyle.Render(opts.Title), portraits}

	if len(c.Deviation) > 0 {
		graph := asciigraph.Plot(c.Deviation,
			asciigraph.Height(opts.GraphHeight),
			asciigraph.Width(opts.GraphWidth),
			asciigraph.Caption("deviation"),
		)
		parts = append(parts, GraphStyle.Render(graph))
		parts = append(parts, SparklineChart(c.Deviation, opts.GraphWidth))
	}

	parts = append(parts, metricRows(map[string]float64{
		"max deviation":   c.MaxDeviation,
		"final deviation": c.FinalDeviation,
		"learned drift":   c.Learned.EnergyDrift,
		"reference drift": c.Reference.EnergyDrift,
	}))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
