package world

import "math"

const DefaultWorldSize = 4000

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Torus wraps coordinates so the world has no edge.
type Torus struct {
	Size int
}

func NewTorus(size int) Torus {
	if size <= 0 {
		size = DefaultWorldSize
	}
	return Torus{Size: size}
}

func (t Torus) Wrap(c int) int {
	return ((c % t.Size) + t.Size) % t.Size
}

func (t Torus) WrapPoint(p Point) Point {
	return Point{X: t.Wrap(p.X), Y: t.Wrap(p.Y)}
}

// WrapFloat folds a continuous coordinate into [0, Size).
func (t Torus) WrapFloat(c float64) float64 {
	size := float64(t.Size)
	w := math.Mod(math.Mod(c, size)+size, size)
	if w >= size {
		return 0
	}
	return w
}

// Delta returns the shorter of the direct and wrap-around distance on one axis.
// Non-finite inputs are infinitely far from everything.
func (t Torus) Delta(a, b float64) float64 {
	size := float64(t.Size)
	d := math.Abs(a - b)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return math.Inf(1)
	}
	d = math.Mod(d, size)
	if d > size/2 {
		d = size - d
	}
	return d
}

func (t Torus) DistanceSquared(ax, ay, bx, by float64) float64 {
	dx := t.Delta(ax, bx)
	dy := t.Delta(ay, by)
	return dx*dx + dy*dy
}

func (t Torus) Neighbors(p Point) [4]Point {
	return [4]Point{
		t.WrapPoint(Point{X: p.X + 1, Y: p.Y}),
		t.WrapPoint(Point{X: p.X - 1, Y: p.Y}),
		t.WrapPoint(Point{X: p.X, Y: p.Y + 1}),
		t.WrapPoint(Point{X: p.X, Y: p.Y - 1}),
	}
}
