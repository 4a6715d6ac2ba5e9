package supergrab

import (
	"fmt"

	"github.com/ScottBrooks/supergrab/rollback"
	log "github.com/sirupsen/logrus"
)

// Game adapts a Simulation to rollback.Game, snapshotting State into a
// bounded store on every Save.
type Game struct {
	Sim   *Simulation
	store *rollback.Store[State]
	opts  ChecksumOptions
}

// NewGame builds a simulation at frame 0. depth is the number of frames the
// session may roll back, see rollback.Config.RewindDepth.
func NewGame(cfg Config, engine PhysicsEngine, depth int) (*Game, error) {
	sim, err := NewSimulation(cfg, engine)
	if err != nil {
		return nil, err
	}
	return &Game{
		Sim:   sim,
		store: rollback.NewStore[State](depth),
		opts:  ChecksumOptions{PreviousPosition: cfg.HashPreviousPosition},
	}, nil
}

func (g *Game) State() *State { return g.Sim.State }

func (g *Game) Save(frame rollback.Frame) uint64 {
	s := g.Sim.State
	if s.Frame != frame {
		panic(fmt.Sprintf("save of frame %d while state is at frame %d", frame, s.Frame))
	}
	if _, err := g.store.Snapshot(frame, s); err != nil {
		panic(err)
	}
	return Checksum(s, g.opts)
}

func (g *Game) Load(frame rollback.Frame) {
	g.store.Restore(rollback.SnapshotID(frame), g.Sim.State)
	g.Sim.State.ensure()
	if g.Sim.State.Frame != frame {
		panic(fmt.Sprintf("snapshot for frame %d holds frame %d", frame, g.Sim.State.Frame))
	}
}

func (g *Game) Advance(inputs []InputRecord) {
	g.Sim.Step(inputs)
}

// Checksum hashes the current state with the game's options.
func (g *Game) Checksum() uint64 {
	return Checksum(g.Sim.State, g.opts)
}

// Close despawns every entity and drops all snapshots.
func (g *Game) Close() {
	n := g.Sim.State.EntityCount()
	g.Sim.State.Clear()
	g.store.Clear()
	log.WithFields(log.Fields{"frame": g.Sim.State.Frame, "entities": n}).Debug("Game closed")
}
