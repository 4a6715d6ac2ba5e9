package rollback

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var ErrMismatch = errors.New("rollback: checksum mismatch on resimulation")

// MismatchError reports a frame whose checksum changed when it was simulated
// again from an earlier snapshot.
type MismatchError struct {
	Frame       Frame
	Original    uint64
	Resimulated uint64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("rollback: frame %d resimulated to %016x, originally %016x", e.Frame, e.Resimulated, e.Original)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

// SyncTestConfig configures a SyncTestSession.
type SyncTestConfig struct {
	NumPlayers int
	// CheckDistance is how many frames are rolled back and resimulated on
	// every advance.
	CheckDistance int
	Logger        logrus.FieldLogger
}

// SyncTestSession runs a game locally with every player local, rolling back
// CheckDistance frames on every advance and verifying that resimulation
// reproduces the original checksums.
type SyncTestSession[I Input[I]] struct {
	cfg    SyncTestConfig
	game   Game[I]
	log    logrus.FieldLogger
	inputs map[Frame][]I
	sums   map[Frame]uint64
	staged map[PlayerHandle]I

	current Frame
}

// NewSyncTestSession saves frame 0 of game.
func NewSyncTestSession[I Input[I]](cfg SyncTestConfig, game Game[I]) (*SyncTestSession[I], error) {
	if cfg.NumPlayers < 1 {
		return nil, fmt.Errorf("%w: need at least one player, got %d", ErrInvalidConfig, cfg.NumPlayers)
	}
	if cfg.CheckDistance < 1 {
		return nil, fmt.Errorf("%w: check distance must be positive, got %d", ErrInvalidConfig, cfg.CheckDistance)
	}
	if game == nil {
		return nil, fmt.Errorf("%w: game is required", ErrInvalidConfig)
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &SyncTestSession[I]{
		cfg:    cfg,
		game:   game,
		log:    log.WithField("component", "synctest"),
		inputs: map[Frame][]I{},
		sums:   map[Frame]uint64{},
		staged: map[PlayerHandle]I{},
	}
	s.sums[0] = game.Save(0)
	return s, nil
}

// RewindDepth is the number of snapshots the game must retain.
func (s *SyncTestSession[I]) RewindDepth() int { return s.cfg.CheckDistance + 2 }

func (s *SyncTestSession[I]) CurrentFrame() Frame { return s.current }

func (s *SyncTestSession[I]) AddLocalInput(h PlayerHandle, in I) error {
	if h < 0 || int(h) >= s.cfg.NumPlayers {
		return fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	s.staged[h] = in
	return nil
}

// AdvanceFrame simulates one frame, then rolls back CheckDistance frames and
// compares every resimulated checksum against the first run.
func (s *SyncTestSession[I]) AdvanceFrame() error {
	frame := make([]I, s.cfg.NumPlayers)
	for h := range frame {
		in, ok := s.staged[PlayerHandle(h)]
		if !ok {
			return fmt.Errorf("%w: player %d at frame %d", ErrMissingLocalInput, h, s.current)
		}
		frame[h] = in
	}
	clear(s.staged)

	s.inputs[s.current] = frame
	s.game.Advance(frame)
	s.current++
	s.sums[s.current] = s.game.Save(s.current)

	if s.current > Frame(s.cfg.CheckDistance) {
		start := s.current - Frame(s.cfg.CheckDistance)
		s.game.Load(start)
		for f := start; f < s.current; f++ {
			s.game.Advance(s.inputs[f])
			sum := s.game.Save(f + 1)
			if orig := s.sums[f+1]; sum != orig {
				err := &MismatchError{Frame: f + 1, Original: orig, Resimulated: sum}
				s.log.WithField("frame", f+1).Error(err)
				return err
			}
		}
		delete(s.inputs, start-1)
		delete(s.sums, start-1)
	}
	return nil
}
