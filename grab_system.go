package supergrab

import (
	"github.com/EngoEngine/ecs"
	"github.com/ScottBrooks/supergrab/rollback"
	"github.com/go-gl/mathgl/mgl64"
	log "github.com/sirupsen/logrus"
)

// GrabSystem lets each player drag a body with the pointer. Per player:
// pressing grab spawns a Grabber at the pointer, which follows the pointer
// while held; while it has no joint it tries to attach to the nearest body
// within the capture radius. Releasing despawns the joint and then the
// grabber in the same step.
type GrabSystem struct {
	Sim *Simulation
}

func (gs *GrabSystem) Priority() int          { return priorityGrab }
func (gs *GrabSystem) Remove(ecs.BasicEntity) {}

func (gs *GrabSystem) Update(dt float32) {
	s := gs.Sim.State
	gs.dropDangling(s)
	for h, in := range gs.Sim.Inputs() {
		gs.updatePlayer(s, rollback.PlayerHandle(h), in)
	}
}

func (gs *GrabSystem) dropDangling(s *State) {
	for _, id := range s.DanglingJoints() {
		j := s.Joints[id]
		gs.Sim.playerLog(j.Player).WithField("joint", id).Warn("Dropping joint with a missing end")
		s.DespawnJoint(id)
	}
}

func (gs *GrabSystem) updatePlayer(s *State, player rollback.PlayerHandle, in InputRecord) {
	grabber, holding := s.GrabberOf[player]
	if !in.Buttons.Has(InputGrab) {
		if holding {
			gs.release(s, player, grabber)
		}
		return
	}

	pointer := in.PointerWorld()
	if holding {
		s.Grabbers[grabber].Position = pointer
	} else {
		grabber = s.SpawnGrabber(player, pointer)
		gs.Sim.playerLog(player).WithField("grabber", grabber).Debug("Spawned grabber")
	}

	if _, attached := s.JointOf[player]; attached {
		return
	}
	gs.attach(s, player, grabber, pointer)
}

func (gs *GrabSystem) attach(s *State, player rollback.PlayerHandle, grabber EntityID, pointer mgl64.Vec2) {
	cfg := gs.Sim.Config.Grab
	filter := ProjectionFilter{Solid: cfg.SolidProjection, ExcludeStatic: cfg.ExcludeStatic}
	proj, ok := gs.Sim.Engine.Project(s, pointer, filter)
	if !ok || proj.Distance > cfg.CaptureRadius {
		return
	}
	body, ok := s.Bodies[proj.Body]
	if !ok {
		return
	}

	anchor := mgl64.Rotate2D(-body.Angle).Mul2x1(proj.Point.Sub(body.Position))
	joint := s.SpawnJoint(GrabberJoint{
		Player:          player,
		Grabber:         grabber,
		Body:            proj.Body,
		Compliance:      cfg.Compliance,
		LocalAnchorBody: anchor,
		LinearDamping:   cfg.LinearDamping,
		AngularDamping:  cfg.AngularDamping,
	})
	gs.Sim.playerLog(player).WithFields(log.Fields{
		"joint":    joint,
		"body":     proj.Body,
		"distance": proj.Distance,
	}).Debug("Attached grabber")
}

func (gs *GrabSystem) release(s *State, player rollback.PlayerHandle, grabber EntityID) {
	if joint, ok := s.JointOf[player]; ok {
		s.DespawnJoint(joint)
	}
	s.DespawnGrabber(grabber)
	gs.Sim.playerLog(player).WithField("grabber", grabber).Debug("Released grabber")
}
