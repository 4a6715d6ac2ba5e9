package rollback

import (
	"errors"
	"testing"
)

// leakyGame keeps state outside its snapshots, so resimulation diverges.
type leakyGame struct {
	*counterGame
	calls int64
}

func (g *leakyGame) Advance(inputs []testInput) {
	g.calls++
	g.counterGame.drift = g.calls
	g.counterGame.Advance(inputs)
}

func TestSyncTestSession(t *testing.T) {
	var tests = []struct {
		name     string
		leaky    bool
		distance int
	}{
		{"deterministic short", false, 1},
		{"deterministic long", false, 7},
		{"leaky", true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := SyncTestConfig{NumPlayers: 2, CheckDistance: tt.distance, Logger: quietLogger()}
			base := newCounterGame(2, tt.distance+2)
			var game Game[testInput] = base
			if tt.leaky {
				game = &leakyGame{counterGame: base}
			}
			s, err := NewSyncTestSession[testInput](cfg, game)
			if err != nil {
				t.Fatal(err)
			}

			var mismatch *MismatchError
			for i := 0; i < 30; i++ {
				for h := PlayerHandle(0); h < 2; h++ {
					if err := s.AddLocalInput(h, varying(h, s.CurrentFrame())); err != nil {
						t.Fatal(err)
					}
				}
				if err := s.AdvanceFrame(); err != nil {
					if !errors.As(err, &mismatch) {
						t.Fatal(err)
					}
					break
				}
			}

			if tt.leaky {
				if mismatch == nil {
					t.Fatal("expected a mismatch")
				}
				if !errors.Is(mismatch, ErrMismatch) || mismatch.Original == mismatch.Resimulated {
					t.Errorf("bad mismatch report %+v", mismatch)
				}
				return
			}
			if mismatch != nil {
				t.Fatalf("unexpected mismatch: %v", mismatch)
			}
			if s.CurrentFrame() != 30 {
				t.Errorf("frame = %d, want 30", s.CurrentFrame())
			}
			want := reference(2, 0, 30, varying)
			if base.checksum() != want.checksum() {
				t.Error("state differs from a straight run")
			}
		})
	}
}

func TestSyncTestSessionRejects(t *testing.T) {
	g := newCounterGame(1, 4)
	if _, err := NewSyncTestSession[testInput](SyncTestConfig{NumPlayers: 1}, g); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero distance: got %v", err)
	}
	s, err := NewSyncTestSession[testInput](SyncTestConfig{NumPlayers: 1, CheckDistance: 2, Logger: quietLogger()}, g)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddLocalInput(1, testInput{}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("bad handle: got %v", err)
	}
	if err := s.AdvanceFrame(); !errors.Is(err, ErrMissingLocalInput) {
		t.Errorf("no input: got %v", err)
	}
}
