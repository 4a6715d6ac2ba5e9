package supergrab

import (
	"fmt"

	"github.com/EngoEngine/ecs"
	"github.com/ScottBrooks/supergrab/rollback"
	log "github.com/sirupsen/logrus"
)

// System priorities; higher runs first.
const (
	priorityGrab = 50 - iota*10
	priorityPhysics
	priorityMovement
	priorityPreviousPosition
	priorityFrameCounter
)

// Simulation is one deterministic step of the game: an ecs.World whose
// systems read the frame's inputs and mutate State.
type Simulation struct {
	Config Config
	State  *State
	Engine PhysicsEngine

	world  ecs.World
	inputs []InputRecord
}

// NewSimulation builds the world and spawns the scene at frame 0.
func NewSimulation(cfg Config, engine PhysicsEngine) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		engine = NewBox2DEngine(cfg)
	}
	sim := &Simulation{
		Config: cfg,
		State:  NewState(),
		Engine: engine,
	}

	sim.world.AddSystem(&GrabSystem{Sim: sim})
	sim.world.AddSystem(&PhysicsSystem{Sim: sim})
	if cfg.Movement {
		sim.world.AddSystem(&MovementSystem{Sim: sim})
	}
	sim.world.AddSystem(&PreviousPositionSystem{Sim: sim})
	sim.world.AddSystem(&FrameCounterSystem{Sim: sim})

	scene := cfg.Scene
	if scene == nil {
		scene = DefaultScene
	}
	scene(sim.State)
	return sim, nil
}

// Inputs are the inputs of the frame being stepped, indexed by player.
func (sim *Simulation) Inputs() []InputRecord { return sim.inputs }

// Step advances State by exactly one frame.
func (sim *Simulation) Step(inputs []InputRecord) {
	if len(inputs) != sim.Config.NumPlayers {
		panic(fmt.Sprintf("step got %d inputs for %d players", len(inputs), sim.Config.NumPlayers))
	}
	sim.State.ensure()
	sim.inputs = inputs
	sim.world.Update(float32(sim.Config.Timestep()))
	sim.inputs = nil
}

func (sim *Simulation) playerLog(player rollback.PlayerHandle) *log.Entry {
	return log.WithFields(log.Fields{"frame": sim.State.Frame, "player": player})
}
