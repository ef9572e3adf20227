package viz

import (
	"math"
	"strings"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
	return c
}

// Set lights the sub-pixel (x, y). The canvas is (Width*2) x (Height*4)
// sub-pixels with y growing downwards.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Bounds is a rectangle in phase space.
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

// PhaseBounds covers the (xIdx, yIdx) projections of every trajectory with
// a 5% margin.
func PhaseBounds(xIdx, yIdx int, trajectories ...[]dynamo.State) Bounds {
	b := Bounds{MinX: math.Inf(1), MaxX: math.Inf(-1), MinY: math.Inf(1), MaxY: math.Inf(-1)}
	for _, traj := range trajectories {
		for _, s := range traj {
			if xIdx >= len(s) || yIdx >= len(s) || !s.IsValid() {
				continue
			}
			b.MinX, b.MaxX = math.Min(b.MinX, s[xIdx]), math.Max(b.MaxX, s[xIdx])
			b.MinY, b.MaxY = math.Min(b.MinY, s[yIdx]), math.Max(b.MaxY, s[yIdx])
		}
	}
	if math.IsInf(b.MinX, 1) {
		return Bounds{MinX: -1, MaxX: 1, MinY: -1, MaxY: 1}
	}
	padX := math.Max((b.MaxX-b.MinX)*0.05, 1e-9)
	padY := math.Max((b.MaxY-b.MinY)*0.05, 1e-9)
	return Bounds{MinX: b.MinX - padX, MaxX: b.MaxX + padX, MinY: b.MinY - padY, MaxY: b.MaxY + padY}
}

// PlotTrajectory draws the (xIdx, yIdx) projection of traj as connected
// segments. Invalid states break the line.
func (c *Canvas) PlotTrajectory(traj []dynamo.State, xIdx, yIdx int, b Bounds) {
	w, h := c.Width*2-1, c.Height*4-1
	toPixel := func(s dynamo.State) (int, int) {
		px := int(math.Round((s[xIdx] - b.MinX) / (b.MaxX - b.MinX) * float64(w)))
		py := int(math.Round((b.MaxY - s[yIdx]) / (b.MaxY - b.MinY) * float64(h)))
		return px, py
	}

	havePrev := false
	var lx, ly int
	for _, s := range traj {
		if xIdx >= len(s) || yIdx >= len(s) || !s.IsValid() {
			havePrev = false
			continue
		}
		x, y := toPixel(s)
		if havePrev {
			c.DrawLine(lx, ly, x, y)
		} else {
			c.Set(x, y)
		}
		lx, ly, havePrev = x, y, true
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
