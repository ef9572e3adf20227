package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

// Point is a state projected onto two coordinates.
type Point struct {
	X, Y float64
}

// errSource is implemented by systems that remember why an evaluation
// failed, such as models.FieldSystem.
type errSource interface {
	Err() error
}

// trace steps dyn from x0 for round(duration/dt) steps, calling visit with
// the previous state, the new state and the new time. A step that produces
// NaN or Inf stops the trace with a *dynamo.SimulationError.
func trace(
	dyn dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	dt, duration float64,
	visit func(prev, x dynamo.State, t float64),
) error {
	if dt <= 0 || duration <= 0 {
		return fmt.Errorf("%w: dt %g, duration %g", dynamo.ErrParameterBounds, dt, duration)
	}
	if len(x0) != dyn.StateDim() {
		return fmt.Errorf("%w: state %d, system %d", dynamo.ErrDimensionMismatch, len(x0), dyn.StateDim())
	}

	steps := int(math.Round(duration / dt))
	x := x0.Clone()
	for i := 1; i <= steps; i++ {
		t := float64(i-1) * dt
		next := integ.Step(dyn, x, t, dt)
		if !next.IsValid() {
			cause := dynamo.ErrInvalidState
			if src, ok := dyn.(errSource); ok && src.Err() != nil {
				cause = src.Err()
			}
			return &dynamo.SimulationError{Step: i, Time: t, State: x, Wrapped: cause}
		}
		visit(x, next, float64(i)*dt)
		x = next
	}
	return nil
}

func checkIndex(n int, idx ...int) error {
	for _, i := range idx {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: index %d outside state of length %d", dynamo.ErrDimensionMismatch, i, n)
		}
	}
	return nil
}

// PhasePortrait is the (XIndex, YIndex) projection of one trajectory,
// including its initial state.
type PhasePortrait struct {
	XIndex, YIndex int
	Times          []float64
	Points         []Point
}

func GeneratePhasePortrait(
	dyn dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	xIdx, yIdx int,
	dt, duration float64,
) (*PhasePortrait, error) {
	if err := checkIndex(len(x0), xIdx, yIdx); err != nil {
		return nil, err
	}

	n := 1
	if dt > 0 && duration > 0 {
		n += int(math.Round(duration / dt))
	}
	p := &PhasePortrait{
		XIndex: xIdx,
		YIndex: yIdx,
		Times:  make([]float64, 0, n),
		Points: make([]Point, 0, n),
	}
	p.Times = append(p.Times, 0)
	p.Points = append(p.Points, Point{x0[xIdx], x0[yIdx]})

	err := trace(dyn, integ, x0, dt, duration, func(_, x dynamo.State, t float64) {
		p.Times = append(p.Times, t)
		p.Points = append(p.Points, Point{x[xIdx], x[yIdx]})
	})
	return p, err
}

// PortraitDeviation returns the largest distance between matching points of
// two portraits, e.g. a learned field and its reference system rolled out
// from the same state.
func PortraitDeviation(a, b *PhasePortrait) (float64, error) {
	if len(a.Points) != len(b.Points) {
		return 0, fmt.Errorf("%w: %d and %d points", dynamo.ErrDimensionMismatch, len(a.Points), len(b.Points))
	}
	worst := 0.0
	for i := range a.Points {
		worst = math.Max(worst, math.Hypot(a.Points[i].X-b.Points[i].X, a.Points[i].Y-b.Points[i].Y))
	}
	return worst, nil
}

// PoincareSection holds the upward crossings of x[CrossIndex] through
// Threshold, linearly interpolated between steps.
type PoincareSection struct {
	CrossIndex int
	Threshold  float64
	Times      []float64
	Points     []Point
}

func GeneratePoincareSection(
	dyn dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	crossIdx int,
	threshold float64,
	recordX, recordY int,
	dt, duration float64,
) (*PoincareSection, error) {
	if err := checkIndex(len(x0), crossIdx, recordX, recordY); err != nil {
		return nil, err
	}

	s := &PoincareSection{CrossIndex: crossIdx, Threshold: threshold}
	lerp := func(a, b, f float64) float64 { return a + f*(b-a) }

	err := trace(dyn, integ, x0, dt, duration, func(prev, x dynamo.State, t float64) {
		before, after := prev[crossIdx], x[crossIdx]
		if before >= threshold || after < threshold {
			return
		}
		f := (threshold - before) / (after - before)
		s.Times = append(s.Times, t-dt+f*dt)
		s.Points = append(s.Points, Point{lerp(prev[recordX], x[recordX], f), lerp(prev[recordY], x[recordY], f)})
	})
	return s, err
}

func PhasePortraitToASCII(p *PhasePortrait, width, height int) string {
	if p == nil {
		return ""
	}
	return scatter(p.Points, width, height)
}

func PoincareSectionToASCII(s *PoincareSection, width, height int) string {
	if s == nil || len(s.Points) == 0 {
		return "No crossings detected"
	}
	return scatter(s.Points, width, height)
}

// scatter draws points on a width x height character grid with a 10%
// margin, plus the axes where they are in view.
func scatter(points []Point, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	lo := Point{math.Inf(1), math.Inf(1)}
	hi := Point{math.Inf(-1), math.Inf(-1)}
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		lo = Point{math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)}
		hi = Point{math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)}
	}
	if math.IsInf(lo.X, 1) {
		return ""
	}
	span := func(a, b float64) (float64, float64) {
		r := b - a
		if r == 0 {
			r = 1
		}
		return a - 0.1*r, 1.2 * r
	}
	x0, rx := span(lo.X, hi.X)
	y0, ry := span(lo.Y, hi.Y)

	col := func(x float64) int { return int((x - x0) / rx * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-y0)/ry*float64(height-1)) }

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	set := func(r, c int, ch rune, over bool) {
		if r < 0 || r >= height || c < 0 || c >= width {
			return
		}
		if over || grid[r][c] == ' ' {
			grid[r][c] = ch
		}
	}

	if x0 <= 0 && x0+rx >= 0 {
		for r := 0; r < height; r++ {
			set(r, col(0), '│', false)
		}
	}
	if y0 <= 0 && y0+ry >= 0 {
		for c := 0; c < width; c++ {
			set(row(0), c, '─', false)
		}
	}
	for _, p := range points {
		if !math.IsNaN(p.X) && !math.IsNaN(p.Y) {
			set(row(p.Y), col(p.X), '•', true)
		}
	}

	var sb strings.Builder
	for _, r := range grid {
		sb.WriteString(string(r))
		sb.WriteByte('\n')
	}
	return sb.String()
}
