package attention

import "math"

// Point is a 2D landmark position in pixels.
type Point struct {
	X, Y float64
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2|p1-p4|) for the six eye
// landmarks p1..p6, with p1/p4 the eye corners. A zero-width eye returns 0,
// which classifies as closed.
func EyeAspectRatio(p [6]Point) float64 {
	vertical := dist(p[1], p[5]) + dist(p[2], p[4])
	horizontal := 2 * dist(p[0], p[3])
	if horizontal == 0 {
		return 0
	}
	return vertical / horizontal
}
