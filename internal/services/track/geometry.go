// Package track generates pan/tilt positions along parametric motion paths.
package track

import (
	"math"
)

// Shape names a track path.
type Shape string

const (
	Circle   Shape = "circle"
	Square   Shape = "square"
	Triangle Shape = "triangle"
	Figure8  Shape = "figure8"
	Linear   Shape = "linear"
	Random   Shape = "random"
	Custom   Shape = "custom"
)

// MaxRadius caps the effective radius so paths never reach the edges of the pad.
const MaxRadius = 45.0

// Valid reports whether s is a known shape.
func (s Shape) Valid() bool {
	switch s {
	case Circle, Square, Triangle, Figure8, Linear, Random, Custom:
		return true
	}
	return false
}

// Point is a position on the 0..100 percent pad. Y grows downwards.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Config describes a track. All values are percentages.
type Config struct {
	Shape    Shape   `json:"shape"`
	Position float64 `json:"position"`
	Size     float64 `json:"size"`
	CenterX  float64 `json:"centerX"`
	CenterY  float64 `json:"centerY"`
	Points   []Point `json:"points,omitempty"`
}

// DefaultConfig is a medium circle around the pad centre.
func DefaultConfig() Config {
	return Config{Shape: Circle, Size: 50, CenterX: 50, CenterY: 50}
}

// EffectiveRadius is the largest radius that keeps the path inside the pad.
func EffectiveRadius(size, cx, cy float64) float64 {
	size, cx, cy = pct(size), pct(cx), pct(cy)
	return math.Min(math.Min(math.Min(size/2, MaxRadius), math.Min(cx, 100-cx)), math.Min(cy, 100-cy))
}

// Progress maps a position percentage to [0,1), wrapping outside 0..100.
func Progress(position float64) float64 {
	if math.IsNaN(position) || math.IsInf(position, 0) {
		return 0
	}
	p := math.Mod(position, 100)
	if p < 0 {
		p += 100
	}
	return p / 100
}

// Compute returns the point on the track at cfg.Position.
func Compute(cfg Config) Point {
	cx, cy := pct(cfg.CenterX), pct(cfg.CenterY)
	r := EffectiveRadius(cfg.Size, cx, cy)
	p := Progress(cfg.Position)

	var pt Point
	switch cfg.Shape {
	case Circle:
		a := 2*math.Pi*p - math.Pi/2
		pt = Point{cx + r*math.Cos(a), cy + r*math.Sin(a)}
	case Square:
		pt = walk([]Point{
			{cx - r, cy - r},
			{cx + r, cy - r},
			{cx + r, cy + r},
			{cx - r, cy + r},
		}, p)
	case Triangle:
		h := r * math.Sqrt(3) / 2
		pt = walk([]Point{
			{cx, cy - r},
			{cx + h, cy + r/2},
			{cx - h, cy + r/2},
		}, p)
	case Linear:
		tri := 2 * p
		if p >= 0.5 {
			tri = 2 - 2*p
		}
		pt = Point{cx - r + 2*r*tri, cy}
	case Figure8:
		lobe := r / 2
		if p < 0.5 {
			a := 2 * math.Pi * (2 * p)
			pt = Point{cx - lobe + lobe*math.Cos(a), cy + lobe*math.Sin(a)}
		} else {
			a := math.Pi - 2*math.Pi*(2*p-1)
			pt = Point{cx + lobe + lobe*math.Cos(a), cy + lobe*math.Sin(a)}
		}
	case Random:
		pt = wander(cx, cy, r, p)
	case Custom:
		pt = custom(cfg.Points, cx, cy, p)
	default:
		pt = Point{cx, cy}
	}
	return Point{pct(pt.X), pct(pt.Y)}
}

// ToDMX converts a pad point to pan/tilt bytes. Tilt is inverted so the top of the pad is 255.
func ToDMX(pt Point) (pan, tilt byte) {
	return toByte(pct(pt.X) / 100 * 255), toByte((100 - pct(pt.Y)) / 100 * 255)
}

// walk moves along a closed polygon with equal time per edge.
func walk(vertices []Point, p float64) Point {
	n := float64(len(vertices))
	seg := p * n
	i := int(seg)
	if i >= len(vertices) {
		i = len(vertices) - 1
	}
	return lerp(vertices[i], vertices[(i+1)%len(vertices)], seg-float64(i))
}

// wander is a deterministic pseudo-random path: two incommensurate sinusoids per axis.
func wander(cx, cy, r, p float64) Point {
	t := 2 * math.Pi * p
	dx := r * (0.7*math.Sin(3*t) + 0.3*math.Sin(7*t+0.5))
	dy := r * (0.7*math.Cos(2*t) + 0.3*math.Sin(5*t+1.3))
	if d := math.Hypot(dx, dy); d > r && d > 0 {
		dx, dy = dx*r/d, dy*r/d
	}
	return Point{cx + dx, cy + dy}
}

// custom follows user points as a closed loop. Without points it holds the centre.
func custom(points []Point, cx, cy, p float64) Point {
	switch len(points) {
	case 0:
		return Point{cx, cy}
	case 1:
		return points[0]
	}
	return walk(points, p)
}

func lerp(a, b Point, t float64) Point {
	return Point{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

// pct clamps to [0,100]; NaN becomes 0.
func pct(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func toByte(v float64) byte {
	r := math.Floor(v + 0.5)
	if r <= 0 {
		return 0
	}
	if r >= 255 {
		return 255
	}
	return byte(r)
}
