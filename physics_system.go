package supergrab

import (
	"github.com/EngoEngine/ecs"
)

// PhysicsSystem hands the frame to the physics engine. It uses the fixed
// timestep from Config, never the float32 dt of the ecs update.
type PhysicsSystem struct {
	Sim *Simulation
}

func (ps *PhysicsSystem) Priority() int          { return priorityPhysics }
func (ps *PhysicsSystem) Remove(ecs.BasicEntity) {}

func (ps *PhysicsSystem) Update(dt float32) {
	ps.Sim.Engine.Advance(ps.Sim.State, ps.Sim.Config.Timestep())
}

// PreviousPositionSystem records where every body ended the frame, for the
// next frame to compare against.
type PreviousPositionSystem struct {
	Sim *Simulation
}

func (pps *PreviousPositionSystem) Priority() int          { return priorityPreviousPosition }
func (pps *PreviousPositionSystem) Remove(ecs.BasicEntity) {}

func (pps *PreviousPositionSystem) Update(dt float32) {
	for _, b := range pps.Sim.State.Bodies {
		b.PreviousPosition = b.Position
	}
}

type FrameCounterSystem struct {
	Sim *Simulation
}

func (fcs *FrameCounterSystem) Priority() int          { return priorityFrameCounter }
func (fcs *FrameCounterSystem) Remove(ecs.BasicEntity) {}

func (fcs *FrameCounterSystem) Update(dt float32) {
	fcs.Sim.State.Frame++
}
