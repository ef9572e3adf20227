package analysis

import (
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

// BifurcationSweep describes a parameter sweep. Each of the Steps values
// in [Min, Max] is held for Transient time units before x[StateIndex] is
// watched for Record more.
type BifurcationSweep struct {
	Param      string
	Min, Max   float64
	Steps      int
	StateIndex int
	Dt         float64
	Transient  float64
	Record     float64
}

// BifurcationPoint is the long-run behaviour of one parameter value.
// Values holds the distinct local maxima of the watched coordinate, or its
// final value when the trajectory Settled without oscillating.
type BifurcationPoint struct {
	Param   float64
	Values  []float64
	Settled bool
}

// peakResolution merges maxima closer than this into one branch.
const peakResolution = 1e-3

// BifurcationDiagram runs sweep over dyn, which must be
// [dynamo.Configurable]. The swept parameter is restored on return. A
// parameter value the system rejects is skipped.
func BifurcationDiagram(
	dyn dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	sweep BifurcationSweep,
) ([]BifurcationPoint, error) {
	if sweep.Steps < 1 {
		return nil, fmt.Errorf("%w: %d sweep steps", dynamo.ErrParameterBounds, sweep.Steps)
	}
	if sweep.Record <= 0 || sweep.Transient < 0 {
		return nil, fmt.Errorf("%w: transient %g, record %g", dynamo.ErrParameterBounds, sweep.Transient, sweep.Record)
	}
	if err := checkIndex(len(x0), sweep.StateIndex); err != nil {
		return nil, err
	}
	tunable, ok := dyn.(dynamo.Configurable)
	if !ok {
		return nil, fmt.Errorf("%w: %T has no parameters", dynamo.ErrUnknownParam, dyn)
	}
	original, ok := tunable.GetParams()[sweep.Param]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, sweep.Param)
	}
	defer func() { _ = tunable.SetParam(sweep.Param, original) }()

	step := 0.0
	if sweep.Steps > 1 {
		step = (sweep.Max - sweep.Min) / float64(sweep.Steps-1)
	}

	out := make([]BifurcationPoint, 0, sweep.Steps)
	for i := 0; i < sweep.Steps; i++ {
		param := sweep.Min + float64(i)*step
		if err := tunable.SetParam(sweep.Param, param); err != nil {
			continue
		}
		pt, err := longRun(dyn, integ, x0, sweep)
		if err != nil {
			return out, fmt.Errorf("%s = %g: %w", sweep.Param, param, err)
		}
		pt.Param = param
		out = append(out, pt)
	}
	return out, nil
}

func longRun(dyn dynamo.System, integ dynamo.Integrator, x0 dynamo.State, sweep BifurcationSweep) (BifurcationPoint, error) {
	var (
		pt      BifurcationPoint
		history []float64
		last    float64
	)
	idx := sweep.StateIndex
	err := trace(dyn, integ, x0, sweep.Dt, sweep.Transient+sweep.Record, func(_, x dynamo.State, t float64) {
		last = x[idx]
		if t <= sweep.Transient {
			return
		}
		history = append(history, x[idx])
		if n := len(history); n >= 3 && history[n-2] > history[n-3] && history[n-2] >= history[n-1] {
			pt.Values = addBranch(pt.Values, history[n-2])
		}
	})
	if err != nil {
		return pt, err
	}
	if len(pt.Values) == 0 {
		pt.Values = []float64{last}
		pt.Settled = true
	}
	slices.Sort(pt.Values)
	return pt, nil
}

func addBranch(values []float64, v float64) []float64 {
	for _, w := range values {
		if math.Abs(w-v) < peakResolution {
			return values
		}
	}
	return append(values, v)
}

// BifurcationToASCII plots every branch against its parameter value.
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	var points []Point
	for _, p := range data {
		for _, v := range p.Values {
			points = append(points, Point{p.Param, v})
		}
	}
	if len(points) == 0 {
		return ""
	}
	return scatter(points, width, height)
}
