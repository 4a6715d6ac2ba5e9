package supergrab

import (
	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl64"
)

// MovementSystem pushes every marble with the direction buttons of each
// player. It runs after the physics step, so a push moves marbles from the
// next frame on.
type MovementSystem struct {
	Sim *Simulation
}

func (ms *MovementSystem) Priority() int          { return priorityMovement }
func (ms *MovementSystem) Remove(ecs.BasicEntity) {}

func (ms *MovementSystem) Update(dt float32) {
	s := ms.Sim.State
	for _, in := range ms.Sim.Inputs() {
		push := movementImpulse(in.Buttons)
		if push == (mgl64.Vec2{}) {
			continue
		}
		for _, id := range SortedIDs(s.Bodies) {
			b := s.Bodies[id]
			if b.Marble && b.Kind == BodyDynamic {
				b.LinearVelocity = b.LinearVelocity.Add(push)
			}
		}
	}
}

func movementImpulse(b Buttons) mgl64.Vec2 {
	var v mgl64.Vec2
	if b.Has(InputUp) {
		v[1] += 50
	}
	if b.Has(InputDown) {
		v[1] -= 10
	}
	if b.Has(InputLeft) {
		v[0] -= 10
	}
	if b.Has(InputRight) {
		v[0] += 10
	}
	return v
}
