package supergrab

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDefaultScene(t *testing.T) {
	s := NewState()
	DefaultScene(s)

	var walls, marbles int
	for _, id := range SortedIDs(s.Bodies) {
		b := s.Bodies[id]
		switch {
		case b.Kind == BodyStatic && b.Shape.Kind == ShapeBox:
			walls++
		case b.Marble && b.Kind == BodyDynamic && b.Shape.Radius == marbleRadius:
			marbles++
			if b.PreviousPosition != b.Position {
				t.Errorf("marble %d starts with previous position %v", id, b.PreviousPosition)
			}
		default:
			t.Errorf("unexpected body %d: %+v", id, b)
		}
	}
	if walls != 4 || marbles != 36 {
		t.Errorf("got %d walls and %d marbles, want 4 and 36", walls, marbles)
	}
	if s.NextID != 41 {
		t.Errorf("next id %d, want 41", s.NextID)
	}

	other := NewState()
	DefaultScene(other)
	if Checksum(s, ChecksumOptions{}) != Checksum(other, ChecksumOptions{}) {
		t.Error("two scenes hash differently")
	}
}

func TestStepRecordsPreviousPosition(t *testing.T) {
	sim := newTestSimulation(t, DefaultConfig())
	start := map[EntityID]mgl64.Vec2{}
	for id, b := range sim.State.Bodies {
		start[id] = b.Position
	}

	sim.Step(make([]InputRecord, sim.Config.NumPlayers))
	moved := 0
	for _, id := range SortedIDs(sim.State.Bodies) {
		b := sim.State.Bodies[id]
		if b.PreviousPosition != b.Position {
			t.Errorf("body %d: previous %v, position %v after the step", id, b.PreviousPosition, b.Position)
		}
		if b.Position != start[id] {
			moved++
		}
	}
	if moved == 0 {
		t.Error("no body moved under gravity")
	}
	if sim.State.Frame != 1 {
		t.Errorf("frame counter at %d", sim.State.Frame)
	}
}

func TestMovementAppliesAfterPhysics(t *testing.T) {
	cfg := singleBodyConfig(Body{
		Kind:    BodyDynamic,
		Shape:   Circle(10),
		Density: 1,
		Marble:  true,
	})
	cfg.Movement = true
	sim := newTestSimulation(t, cfg)
	var b *Body
	for _, body := range sim.State.Bodies {
		b = body
	}

	sim.Step([]InputRecord{{Buttons: InputRight | InputUp}})
	if b.Position != (mgl64.Vec2{}) {
		t.Errorf("push moved the marble in the same frame: %v", b.Position)
	}
	if b.LinearVelocity != (mgl64.Vec2{10, 50}) {
		t.Errorf("velocity %v, want [10 50]", b.LinearVelocity)
	}

	sim.Step([]InputRecord{{}})
	if b.Position[0] <= 0 || b.Position[1] <= 0 {
		t.Errorf("marble at %v after the next step, want up and right", b.Position)
	}
}
