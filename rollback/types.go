// Package rollback keeps peers' deterministic simulations in lockstep by
// predicting remote inputs, snapshotting every simulated frame and
// re-simulating from the earliest misprediction once true inputs arrive.
package rollback

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Frame numbers simulation steps. Frame N is the state before step N runs.
type Frame int32

// NullFrame marks "no frame".
const NullFrame Frame = -1

// PlayerHandle identifies one participant for the lifetime of a session.
type PlayerHandle int

// Input is the constraint on per-player input records. Equal must be exact:
// two inputs are equal only if every peer would simulate them identically.
type Input[I any] interface {
	Equal(other I) bool
}

// Game is the deterministic simulation driven by a session.
//
// Save captures the current state, whose frame counter must equal frame, and
// returns its checksum. Load restores the state captured for frame. Advance
// runs exactly one step with one input per player, ordered by handle.
type Game[I any] interface {
	Save(frame Frame) uint64
	Load(frame Frame)
	Advance(inputs []I)
}

var (
	ErrPredictionThreshold = errors.New("rollback: prediction threshold reached")
	ErrMissingLocalInput   = errors.New("rollback: missing local input")
	ErrSessionLost         = errors.New("rollback: session lost")
	ErrSessionClosed       = errors.New("rollback: session closed")
	ErrDesync              = errors.New("rollback: desync detected")
	ErrInvalidConfig       = errors.New("rollback: invalid config")
	ErrInvalidHandle       = errors.New("rollback: invalid player handle")
)

// DesyncError reports diverging checksums for a confirmed frame.
type DesyncError struct {
	Frame  Frame
	Player PlayerHandle
	Local  uint64
	Remote uint64
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("rollback: desync at frame %d with player %d: local %016x remote %016x",
		e.Frame, e.Player, e.Local, e.Remote)
}

func (e *DesyncError) Unwrap() error { return ErrDesync }

// Config holds the session parameters shared by all peers.
type Config struct {
	NumPlayers   int
	LocalPlayers []PlayerHandle

	// MaxPrediction is the number of frames the session may simulate past
	// the last frame with confirmed input for every player.
	MaxPrediction int
	// InputDelay frames are added to every local input before it applies.
	InputDelay int
	// DesyncInterval is the confirmed-frame interval at which checksums are
	// exchanged. Zero disables desync detection.
	DesyncInterval int

	Logger logrus.FieldLogger
}

// DefaultConfig returns a two player configuration with player 0 local.
func DefaultConfig() Config {
	return Config{
		NumPlayers:     2,
		LocalPlayers:   []PlayerHandle{0},
		MaxPrediction:  12,
		InputDelay:     2,
		DesyncInterval: 10,
	}
}

// RewindDepth is the number of snapshots a Game must retain for this config.
func (c Config) RewindDepth() int {
	return c.MaxPrediction + 2
}

func (c Config) validate() error {
	if c.NumPlayers < 1 {
		return fmt.Errorf("%w: need at least one player, got %d", ErrInvalidConfig, c.NumPlayers)
	}
	if c.MaxPrediction < 1 {
		return fmt.Errorf("%w: max prediction must be positive, got %d", ErrInvalidConfig, c.MaxPrediction)
	}
	if c.InputDelay < 0 {
		return fmt.Errorf("%w: negative input delay %d", ErrInvalidConfig, c.InputDelay)
	}
	if c.DesyncInterval < 0 {
		return fmt.Errorf("%w: negative desync interval %d", ErrInvalidConfig, c.DesyncInterval)
	}
	if len(c.LocalPlayers) == 0 {
		return fmt.Errorf("%w: no local players", ErrInvalidConfig)
	}
	seen := map[PlayerHandle]bool{}
	for _, h := range c.LocalPlayers {
		if h < 0 || int(h) >= c.NumPlayers {
			return fmt.Errorf("%w: local handle %d out of range", ErrInvalidConfig, h)
		}
		if seen[h] {
			return fmt.Errorf("%w: local handle %d listed twice", ErrInvalidConfig, h)
		}
		seen[h] = true
	}
	return nil
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}

// EventKind classifies session events.
type EventKind uint8

const (
	EventRollback EventKind = iota + 1
	EventStall
	EventDesync
	EventProtocolViolation
)

func (k EventKind) String() string {
	switch k {
	case EventRollback:
		return "rollback"
	case EventStall:
		return "stall"
	case EventDesync:
		return "desync"
	case EventProtocolViolation:
		return "protocol-violation"
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// Event is something the application may want to log or react to.
type Event struct {
	Kind   EventKind
	Frame  Frame
	Player PlayerHandle
	// Depth is the number of re-simulated frames for EventRollback.
	Depth  int
	Local  uint64
	Remote uint64
	Reason string
}

func (e Event) String() string {
	switch e.Kind {
	case EventRollback:
		return fmt.Sprintf("rollback to frame %d (%d frames)", e.Frame, e.Depth)
	case EventStall:
		return fmt.Sprintf("stalled at frame %d waiting for player %d", e.Frame, e.Player)
	case EventDesync:
		return fmt.Sprintf("desync at frame %d: local %016x remote %016x", e.Frame, e.Local, e.Remote)
	case EventProtocolViolation:
		return fmt.Sprintf("dropped message from player %d for frame %d: %s", e.Player, e.Frame, e.Reason)
	}
	return e.Kind.String()
}
