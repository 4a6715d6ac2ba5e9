package rollback

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

type testInput struct {
	V uint8
}

func (i testInput) Equal(o testInput) bool { return i == o }

type counterState struct {
	Frame Frame
	Total []int64
	Trail uint64
}

// counterGame folds every player's input into a per-player running total
// and mixes the frame into a trail so that input order matters.
type counterGame struct {
	players int
	state   counterState
	store   *Store[counterState]
	loads   []Frame
	// drift corrupts every Advance after it is set, for desync tests.
	drift int64
}

func newCounterGame(players, depth int) *counterGame {
	return &counterGame{
		players: players,
		state:   counterState{Total: make([]int64, players)},
		store:   NewStore[counterState](depth),
	}
}

func (g *counterGame) checksum() uint64 {
	var buf [8]byte
	d := xxhash.New()
	binary.LittleEndian.PutUint32(buf[:4], uint32(g.state.Frame))
	d.Write(buf[:4])
	for _, t := range g.state.Total {
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
		d.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], g.state.Trail)
	d.Write(buf[:])
	return d.Sum64()
}

func (g *counterGame) Save(frame Frame) uint64 {
	if g.state.Frame != frame {
		panic("save frame mismatch")
	}
	if _, err := g.store.Snapshot(frame, &g.state); err != nil {
		panic(err)
	}
	return g.checksum()
}

func (g *counterGame) Load(frame Frame) {
	g.loads = append(g.loads, frame)
	g.store.Restore(SnapshotID(frame), &g.state)
}

func (g *counterGame) Advance(inputs []testInput) {
	if len(inputs) != g.players {
		panic("wrong input count")
	}
	for h, in := range inputs {
		g.state.Total[h] += int64(in.V) + g.drift
		g.state.Trail = g.state.Trail*31 + uint64(in.V)*uint64(h+1)
	}
	g.state.Frame++
}
