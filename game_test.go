package supergrab

import (
	"errors"
	"io"
	"testing"

	"github.com/ScottBrooks/supergrab/rollback"
	"github.com/sirupsen/logrus"
)

func TestGameDeterministicUnderRewind(t *testing.T) {
	cfg := DefaultConfig()
	inputs := botInputs(cfg.NumPlayers, 60)
	g := newTestGame(t, cfg, 64)

	sums := []uint64{g.Save(0)}
	for f, in := range inputs {
		g.Advance(in)
		sums = append(sums, g.Save(rollbackFrame(f+1)))
	}

	for _, from := range []int{0, 17, 45, 59} {
		g.Load(rollbackFrame(from))
		if got := g.Checksum(); got != sums[from] {
			t.Fatalf("load %d: checksum %x, want %x", from, got, sums[from])
		}
		for f := from; f < len(inputs); f++ {
			g.Advance(inputs[f])
			if got := g.Save(rollbackFrame(f + 1)); got != sums[f+1] {
				t.Fatalf("rewind to %d: frame %d checksum %x, want %x", from, f+1, got, sums[f+1])
			}
		}
	}
}

func TestGameRestoreIsIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	inputs := botInputs(cfg.NumPlayers, 20)
	g := newTestGame(t, cfg, 32)
	g.Save(0)
	for f, in := range inputs {
		g.Advance(in)
		g.Save(rollbackFrame(f + 1))
	}

	g.Load(10)
	once := g.Checksum()
	bodies := g.State().EntityCount()
	g.Load(10)
	if g.Checksum() != once || g.State().EntityCount() != bodies {
		t.Error("second restore changed the state")
	}

	// Entities spawned after the snapshot vanish on restore.
	g.State().SpawnBody(Body{Shape: Circle(1)})
	g.Load(10)
	if g.Checksum() != once || g.State().EntityCount() != bodies {
		t.Error("restore kept an entity spawned after the snapshot")
	}
}

func TestGameRestoresGrabbers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumPlayers = 1
	g := newTestGame(t, cfg, 8)
	g.Save(0)
	g.Advance([]InputRecord{grabAt(0, 0)})
	g.Save(1)
	held := g.Checksum()
	g.Advance([]InputRecord{{}})
	g.Save(2)
	if len(g.State().Grabbers) != 0 {
		t.Fatal("grabber should be released")
	}

	g.Load(1)
	if g.Checksum() != held || len(g.State().Grabbers) != 1 || len(g.State().JointOf) != 1 {
		t.Error("despawned grabber and joint should reappear")
	}
	assertNoDangling(t, g.State())
}

func TestGameLoadEvictedPanics(t *testing.T) {
	cfg := DefaultConfig()
	g := newTestGame(t, cfg, 2)
	g.Save(0)
	for f := 0; f < 4; f++ {
		g.Advance(make([]InputRecord, cfg.NumPlayers))
		g.Save(rollbackFrame(f + 1))
	}
	defer func() {
		if recover() == nil {
			t.Error("loading an evicted frame should panic")
		}
	}()
	g.Load(0)
}

func TestGameClose(t *testing.T) {
	g := newTestGame(t, DefaultConfig(), 4)
	g.Save(0)
	g.Close()
	if g.State().EntityCount() != 0 {
		t.Error("close should despawn everything")
	}
	defer func() {
		if recover() == nil {
			t.Error("snapshots should be gone after close")
		}
	}()
	g.Load(0)
}

func TestChecksum(t *testing.T) {
	g := newTestGame(t, DefaultConfig(), 4)
	s := g.State()

	a, b := Checksum(s, ChecksumOptions{}), Checksum(s, ChecksumOptions{})
	if a != b {
		t.Fatal("hashing twice gave different values")
	}

	var m *Body
	for _, id := range SortedIDs(s.Bodies) {
		if s.Bodies[id].Marble {
			m = s.Bodies[id]
			break
		}
	}
	withPrev := Checksum(s, ChecksumOptions{PreviousPosition: true})
	m.PreviousPosition[0] += 1
	if Checksum(s, ChecksumOptions{}) != a {
		t.Error("previous position should be ignored unless requested")
	}
	if Checksum(s, ChecksumOptions{PreviousPosition: true}) == withPrev {
		t.Error("previous position should be hashed when requested")
	}

	m.LinearVelocity[0] += 1e-12
	if Checksum(s, ChecksumOptions{}) == a {
		t.Error("velocity change should alter the checksum")
	}
	m.LinearVelocity[0] -= 1e-12

	s.Frame++
	if Checksum(s, ChecksumOptions{}) == a {
		t.Error("frame should be hashed")
	}
}

func TestPeersAgreeOverLoopback(t *testing.T) {
	quiet := logrus.New()
	quiet.Out = io.Discard

	rcfg := rollback.DefaultConfig()
	rcfg.MaxPrediction = 8
	rcfg.DesyncInterval = 5
	rcfg.Logger = quiet

	cfg := DefaultConfig()
	trs := rollback.NewLoopback[InputRecord](2)
	type peer struct {
		game *Game
		s    *rollback.Session[InputRecord]
		bot  *BotInput
	}
	var peers []*peer
	for h := 0; h < 2; h++ {
		pc := rcfg
		pc.LocalPlayers = []rollback.PlayerHandle{rollback.PlayerHandle(h)}
		g := newTestGame(t, cfg, pc.RewindDepth())
		s, err := rollback.NewSession[InputRecord](pc, g, trs[h])
		if err != nil {
			t.Fatal(err)
		}
		peers = append(peers, &peer{game: g, s: s, bot: NewBotInput(int64(h + 1))})
	}

	const ticks = 90
	rollbacks := 0
	for i := 0; i < ticks; i++ {
		if i == 20 || i == 50 {
			trs[0].Pause()
		}
		if i == 26 || i == 55 {
			trs[0].Resume(i == 55)
		}
		for h, p := range peers {
			in := p.bot.Sample(p.s.CurrentFrame())
			if err := p.s.AddLocalInput(rollback.PlayerHandle(h), in); err != nil {
				t.Fatal(err)
			}
			if err := p.s.AdvanceFrame(); err != nil {
				var desync *rollback.DesyncError
				if errors.As(err, &desync) {
					t.Fatalf("tick %d: %v", i, desync)
				}
				t.Fatalf("tick %d player %d: %v", i, h, err)
			}
			for _, ev := range p.s.Events() {
				if ev.Kind == rollback.EventRollback {
					rollbacks++
				}
			}
			assertNoDangling(t, p.game.State())
		}
	}
	if rollbacks == 0 {
		t.Error("held messages should have forced a rollback")
	}

	// Peer 1 ticked last and has every input for the frames it simulated.
	ref := newTestGame(t, cfg, 4)
	a, b := NewBotInput(1), NewBotInput(2)
	for f := 0; f < ticks; f++ {
		in := make([]InputRecord, 2)
		if f >= rcfg.InputDelay {
			in[0] = a.Sample(rollbackFrame(f - rcfg.InputDelay))
			in[1] = b.Sample(rollbackFrame(f - rcfg.InputDelay))
		}
		ref.Advance(in)
	}
	if got, want := peers[1].game.Checksum(), ref.Checksum(); got != want {
		t.Errorf("peer checksum %x, reference %x", got, want)
	}
}
