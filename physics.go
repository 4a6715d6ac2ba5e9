package supergrab

import (
	"github.com/go-gl/mathgl/mgl64"
)

// PhysicsEngine advances the bodies of a State. Implementations must be
// deterministic functions of the State: no solver memory may survive between
// calls, or a rollback would not restore it.
type PhysicsEngine interface {
	// Advance integrates one frame of dt seconds, honouring every
	// GrabberJoint in s.
	Advance(s *State, dt float64)
	// Project finds the body point nearest to p.
	Project(s *State, p mgl64.Vec2, filter ProjectionFilter) (Projection, bool)
}

// Projection is the result of a point query.
type Projection struct {
	Body     EntityID
	Point    mgl64.Vec2
	Distance float64
	// Inside reports that the query point lies within the body.
	Inside bool
}

type ProjectionFilter struct {
	Solid         bool
	ExcludeStatic bool
}

func (f ProjectionFilter) accepts(b *Body) bool {
	if f.ExcludeStatic && b.Kind == BodyStatic {
		return false
	}
	return true
}
