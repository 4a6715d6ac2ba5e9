package supergrab

import (
	"testing"

	"github.com/ScottBrooks/supergrab/rollback"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

func rollbackFrame(f int) rollback.Frame { return rollback.Frame(f) }

func grabAt(x, y float32) InputRecord {
	return InputRecord{Pointer: mgl32.Vec2{x, y}, Buttons: InputGrab}
}

// singleBodyConfig is a one-player world without gravity holding only the
// given body.
func singleBodyConfig(b Body) Config {
	cfg := DefaultConfig()
	cfg.NumPlayers = 1
	cfg.Gravity = mgl64.Vec2{}
	cfg.Movement = false
	cfg.Scene = func(s *State) { s.SpawnBody(b) }
	return cfg
}

func newTestSimulation(t *testing.T, cfg Config) *Simulation {
	t.Helper()
	sim, err := NewSimulation(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return sim
}

func newTestGame(t *testing.T, cfg Config, depth int) *Game {
	t.Helper()
	g, err := NewGame(cfg, nil, depth)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// botInputs scripts n frames for every player from seeded bots.
func botInputs(players, frames int) [][]InputRecord {
	bots := make([]*BotInput, players)
	for i := range bots {
		bots[i] = NewBotInput(int64(100 + i))
	}
	out := make([][]InputRecord, frames)
	for f := range out {
		out[f] = make([]InputRecord, players)
		for p, b := range bots {
			out[f][p] = b.Sample(rollback.Frame(f))
		}
	}
	return out
}

func assertNoDangling(t *testing.T, s *State) {
	t.Helper()
	if d := s.DanglingJoints(); len(d) != 0 {
		t.Fatalf("frame %d: dangling joints %v", s.Frame, d)
	}
	for p, id := range s.JointOf {
		j, ok := s.Joints[id]
		if !ok || j.Player != p {
			t.Fatalf("frame %d: joint index for player %d points at %d", s.Frame, p, id)
		}
		if s.GrabberOf[p] != j.Grabber {
			t.Fatalf("frame %d: joint %d is not on player %d's grabber", s.Frame, id, p)
		}
	}
	for p, id := range s.GrabberOf {
		if g, ok := s.Grabbers[id]; !ok || g.Player != p {
			t.Fatalf("frame %d: grabber index for player %d points at %d", s.Frame, p, id)
		}
	}
	if len(s.Grabbers) != len(s.GrabberOf) || len(s.Joints) != len(s.JointOf) {
		t.Fatalf("frame %d: unindexed grabbers or joints", s.Frame)
	}
}
