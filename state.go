package supergrab

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ScottBrooks/supergrab/rollback"
	"github.com/go-gl/mathgl/mgl64"
)

// State is everything a rollback has to restore. Two peers that hold equal
// States and apply equal inputs end up with equal States.
type State struct {
	Frame  rollback.Frame `cbor:"1,keyasint"`
	NextID EntityID       `cbor:"2,keyasint"`

	Bodies   map[EntityID]*Body         `cbor:"3,keyasint"`
	Grabbers map[EntityID]*Grabber      `cbor:"4,keyasint"`
	Joints   map[EntityID]*GrabberJoint `cbor:"5,keyasint"`

	GrabberOf map[rollback.PlayerHandle]EntityID `cbor:"6,keyasint"`
	JointOf   map[rollback.PlayerHandle]EntityID `cbor:"7,keyasint"`
}

func NewState() *State {
	s := &State{}
	s.ensure()
	return s
}

// ensure allocates maps that a decode of an empty snapshot left nil.
func (s *State) ensure() {
	if s.NextID == 0 {
		s.NextID = 1
	}
	if s.Bodies == nil {
		s.Bodies = map[EntityID]*Body{}
	}
	if s.Grabbers == nil {
		s.Grabbers = map[EntityID]*Grabber{}
	}
	if s.Joints == nil {
		s.Joints = map[EntityID]*GrabberJoint{}
	}
	if s.GrabberOf == nil {
		s.GrabberOf = map[rollback.PlayerHandle]EntityID{}
	}
	if s.JointOf == nil {
		s.JointOf = map[rollback.PlayerHandle]EntityID{}
	}
}

func (s *State) alloc() EntityID {
	s.ensure()
	id := s.NextID
	s.NextID++
	return id
}

func (s *State) SpawnBody(b Body) EntityID {
	id := s.alloc()
	s.Bodies[id] = &b
	return id
}

// DespawnBody removes a body along with every joint attached to it.
func (s *State) DespawnBody(id EntityID) {
	if _, ok := s.Bodies[id]; !ok {
		return
	}
	for _, jid := range SortedIDs(s.Joints) {
		if s.Joints[jid].Body == id {
			s.DespawnJoint(jid)
		}
	}
	delete(s.Bodies, id)
}

// SpawnGrabber creates the grabber for player. A player has at most one.
func (s *State) SpawnGrabber(player rollback.PlayerHandle, pos mgl64.Vec2) EntityID {
	if id, ok := s.GrabberOf[player]; ok {
		panic(fmt.Sprintf("player %d already has grabber %d", player, id))
	}
	id := s.alloc()
	s.Grabbers[id] = &Grabber{Player: player, Position: pos}
	s.GrabberOf[player] = id
	return id
}

// DespawnGrabber removes a grabber. Its joint must already be gone.
func (s *State) DespawnGrabber(id EntityID) {
	g, ok := s.Grabbers[id]
	if !ok {
		return
	}
	if jid, ok := s.JointOf[g.Player]; ok && s.Joints[jid].Grabber == id {
		panic(fmt.Sprintf("grabber %d despawned with joint %d still attached", id, jid))
	}
	delete(s.Grabbers, id)
	if s.GrabberOf[g.Player] == id {
		delete(s.GrabberOf, g.Player)
	}
}

func (s *State) SpawnJoint(j GrabberJoint) EntityID {
	if id, ok := s.JointOf[j.Player]; ok {
		panic(fmt.Sprintf("player %d already has joint %d", j.Player, id))
	}
	id := s.alloc()
	s.Joints[id] = &j
	s.JointOf[j.Player] = id
	return id
}

func (s *State) DespawnJoint(id EntityID) {
	j, ok := s.Joints[id]
	if !ok {
		return
	}
	delete(s.Joints, id)
	if s.JointOf[j.Player] == id {
		delete(s.JointOf, j.Player)
	}
}

// Clear despawns every entity. The id counter keeps running.
func (s *State) Clear() {
	s.ensure()
	clear(s.Bodies)
	clear(s.Grabbers)
	clear(s.Joints)
	clear(s.GrabberOf)
	clear(s.JointOf)
}

// EntityCount is the number of live entities of any kind.
func (s *State) EntityCount() int {
	return len(s.Bodies) + len(s.Grabbers) + len(s.Joints)
}

// DanglingJoints returns the joints whose grabber or body no longer exists.
func (s *State) DanglingJoints() []EntityID {
	var out []EntityID
	for _, id := range SortedIDs(s.Joints) {
		j := s.Joints[id]
		_, hasGrabber := s.Grabbers[j.Grabber]
		_, hasBody := s.Bodies[j.Body]
		if !hasGrabber || !hasBody {
			out = append(out, id)
		}
	}
	return out
}

// SortedIDs returns the keys of an entity map in ascending order. Anything
// that feeds the solver or a hash iterates this way.
func SortedIDs[V any](m map[EntityID]V) []EntityID {
	return slices.Sorted(maps.Keys(m))
}

// SortedPlayers returns the keys of a player index in ascending order.
func SortedPlayers(m map[rollback.PlayerHandle]EntityID) []rollback.PlayerHandle {
	return slices.Sorted(maps.Keys(m))
}
