package supergrab

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ProjectPoint returns the point of the nearest accepted body to p. Bodies
// are visited in id order and only a strictly closer body replaces the
// current best, so equidistant bodies resolve to the lowest id.
func ProjectPoint(s *State, p mgl64.Vec2, filter ProjectionFilter) (Projection, bool) {
	var best Projection
	found := false
	for _, id := range SortedIDs(s.Bodies) {
		b := s.Bodies[id]
		if !filter.accepts(b) {
			continue
		}
		point, dist, inside := projectOnBody(b, p, filter.Solid)
		if !found || dist < best.Distance {
			best = Projection{Body: id, Point: point, Distance: dist, Inside: inside}
			found = true
		}
	}
	return best, found
}

func projectOnBody(b *Body, p mgl64.Vec2, solid bool) (mgl64.Vec2, float64, bool) {
	switch b.Shape.Kind {
	case ShapeBox:
		return projectOnBox(b.Position, b.Angle, b.Shape.HalfExtents, p, solid)
	default:
		return projectOnCircle(b.Position, b.Shape.Radius, p, solid)
	}
}

func projectOnCircle(center mgl64.Vec2, radius float64, p mgl64.Vec2, solid bool) (mgl64.Vec2, float64, bool) {
	d := p.Sub(center)
	l := d.Len()
	inside := l <= radius
	if inside && solid {
		return p, 0, true
	}
	dir := mgl64.Vec2{0, 1}
	if l > 0 {
		dir = d.Mul(1 / l)
	}
	return center.Add(dir.Mul(radius)), math.Abs(l - radius), inside
}

func projectOnBox(center mgl64.Vec2, angle float64, half mgl64.Vec2, p mgl64.Vec2, solid bool) (mgl64.Vec2, float64, bool) {
	toLocal := mgl64.Rotate2D(-angle)
	local := toLocal.Mul2x1(p.Sub(center))

	inside := math.Abs(local[0]) <= half[0] && math.Abs(local[1]) <= half[1]
	if inside && solid {
		return p, 0, true
	}

	var q mgl64.Vec2
	if inside {
		// Push out through the nearest face.
		q = local
		dx := half[0] - math.Abs(local[0])
		dy := half[1] - math.Abs(local[1])
		if dx <= dy {
			q[0] = math.Copysign(half[0], local[0])
		} else {
			q[1] = math.Copysign(half[1], local[1])
		}
	} else {
		q = mgl64.Vec2{
			mgl64.Clamp(local[0], -half[0], half[0]),
			mgl64.Clamp(local[1], -half[1], half[1]),
		}
	}
	world := mgl64.Rotate2D(angle).Mul2x1(q).Add(center)
	return world, local.Sub(q).Len(), inside
}
