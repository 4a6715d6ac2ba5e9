package rollback

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// checksumHorizon is how many desync intervals of checksums are retained
// while waiting for the matching remote value.
const checksumHorizon = 16

// Session drives a Game for one peer of a peer-to-peer match.
//
// A Session is not safe for concurrent use; exactly one goroutine calls
// AddLocalInput and AdvanceFrame.
type Session[I Input[I]] struct {
	cfg       Config
	game      Game[I]
	transport Transport[I]
	log       logrus.FieldLogger

	local  map[PlayerHandle]bool
	queues []*inputQueue[I]
	staged map[PlayerHandle]I

	current        Frame
	firstIncorrect Frame

	checksums       map[Frame]uint64
	sentChecksums   map[Frame]uint64
	remoteChecksums map[Frame]map[PlayerHandle]uint64
	nextChecksum    Frame

	events []Event
	closed bool
}

// NewSession saves the initial state of game as frame 0 and sends the blank
// inputs that cover the local input delay.
func NewSession[I Input[I]](cfg Config, game Game[I], transport Transport[I]) (*Session[I], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if game == nil || transport == nil {
		return nil, fmt.Errorf("%w: game and transport are required", ErrInvalidConfig)
	}

	s := &Session[I]{
		cfg:             cfg,
		game:            game,
		transport:       transport,
		log:             cfg.logger().WithField("component", "rollback"),
		local:           map[PlayerHandle]bool{},
		staged:          map[PlayerHandle]I{},
		firstIncorrect:  NullFrame,
		checksums:       map[Frame]uint64{},
		sentChecksums:   map[Frame]uint64{},
		remoteChecksums: map[Frame]map[PlayerHandle]uint64{},
		nextChecksum:    Frame(cfg.DesyncInterval),
	}
	for _, h := range cfg.LocalPlayers {
		s.local[h] = true
	}
	for i := 0; i < cfg.NumPlayers; i++ {
		s.queues = append(s.queues, newInputQueue[I]())
	}

	s.checksums[0] = game.Save(0)

	var blank I
	for _, h := range s.localHandles() {
		for f := Frame(0); f < Frame(cfg.InputDelay); f++ {
			s.queues[h].confirm(f, blank)
			if err := s.send(Message[I]{Kind: MsgInput, Player: h, Frame: f, Input: blank}); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// CurrentFrame is the next frame to be simulated.
func (s *Session[I]) CurrentFrame() Frame { return s.current }

// ConfirmedFrame is the newest frame whose state depends only on confirmed
// inputs.
func (s *Session[I]) ConfirmedFrame() Frame {
	return min(s.confirmedFrontier(), s.current)
}

// Events drains the events collected since the last call.
func (s *Session[I]) Events() []Event {
	ev := s.events
	s.events = nil
	return ev
}

// AddLocalInput stages the input for a local player. It applies InputDelay
// frames after the frame advanced by the next successful AdvanceFrame.
func (s *Session[I]) AddLocalInput(h PlayerHandle, in I) error {
	if !s.local[h] {
		return fmt.Errorf("%w: %d is not local", ErrInvalidHandle, h)
	}
	s.staged[h] = in
	return nil
}

// AdvanceFrame processes network input, rolls back if a prediction turned
// out wrong, and simulates one more frame. ErrPredictionThreshold means the
// tick was skipped and should be retried; any other error is fatal.
func (s *Session[I]) AdvanceFrame() error {
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.poll(); err != nil {
		return err
	}
	if s.firstIncorrect != NullFrame {
		s.rollback()
	}
	if err := s.exchangeChecksums(); err != nil {
		return err
	}

	if lag := s.current - s.confirmedFrontier(); lag >= Frame(s.cfg.MaxPrediction) {
		h := s.laggingPlayer()
		s.events = append(s.events, Event{Kind: EventStall, Frame: s.current, Player: h})
		s.log.WithFields(logrus.Fields{"frame": s.current, "player": h}).Debug("prediction threshold reached")
		return ErrPredictionThreshold
	}

	locals := s.localHandles()
	for _, h := range locals {
		if _, ok := s.staged[h]; !ok {
			return fmt.Errorf("%w: player %d at frame %d", ErrMissingLocalInput, h, s.current)
		}
	}
	target := s.current + Frame(s.cfg.InputDelay)
	for _, h := range locals {
		in := s.staged[h]
		delete(s.staged, h)
		s.queues[h].confirm(target, in)
		if err := s.send(Message[I]{Kind: MsgInput, Player: h, Frame: target, Input: in}); err != nil {
			return err
		}
	}

	s.simulate(s.current)
	s.current++

	if err := s.exchangeChecksums(); err != nil {
		return err
	}
	s.discard()
	return nil
}

// Close tears the session down. The game is not touched.
func (s *Session[I]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.transport.Close()
}

func (s *Session[I]) send(msg Message[I]) error {
	if err := s.transport.Send(msg); err != nil {
		return fmt.Errorf("%w: send: %v", ErrSessionLost, err)
	}
	return nil
}

func (s *Session[I]) poll() error {
	msgs, err := s.transport.Poll()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	for _, msg := range msgs {
		switch msg.Kind {
		case MsgInput:
			s.receiveInput(msg)
		case MsgChecksum:
			s.receiveChecksum(msg)
		default:
			s.violation(msg, fmt.Sprintf("unknown message kind %d", msg.Kind))
		}
	}
	return nil
}

func (s *Session[I]) receiveInput(msg Message[I]) {
	h := msg.Player
	if h < 0 || int(h) >= s.cfg.NumPlayers {
		s.violation(msg, "player out of range")
		return
	}
	if s.local[h] {
		s.violation(msg, "input for a local player")
		return
	}
	horizon := s.current + Frame(2*(s.cfg.MaxPrediction+s.cfg.InputDelay)+1)
	if msg.Frame < 0 || msg.Frame > horizon {
		s.violation(msg, "frame outside the input window")
		return
	}

	res, mispredicted := s.queues[h].confirm(msg.Frame, msg.Input)
	switch res {
	case confirmConflict:
		s.violation(msg, "conflicting duplicate input")
		return
	case confirmDuplicate, confirmStale:
		return
	}
	if mispredicted && msg.Frame < s.current {
		if s.firstIncorrect == NullFrame || msg.Frame < s.firstIncorrect {
			s.firstIncorrect = msg.Frame
		}
	}
}

func (s *Session[I]) receiveChecksum(msg Message[I]) {
	if msg.Frame < 0 || msg.Player < 0 || int(msg.Player) >= s.cfg.NumPlayers || s.local[msg.Player] {
		s.violation(msg, "malformed checksum")
		return
	}
	byPlayer, ok := s.remoteChecksums[msg.Frame]
	if !ok {
		byPlayer = map[PlayerHandle]uint64{}
		s.remoteChecksums[msg.Frame] = byPlayer
	}
	byPlayer[msg.Player] = msg.Checksum
}

func (s *Session[I]) violation(msg Message[I], reason string) {
	s.events = append(s.events, Event{Kind: EventProtocolViolation, Frame: msg.Frame, Player: msg.Player, Reason: reason})
	s.log.WithFields(logrus.Fields{"frame": msg.Frame, "player": msg.Player}).Warnf("dropping message: %s", reason)
}

// rollback restores the earliest mispredicted frame and re-simulates up to
// the current frame.
func (s *Session[I]) rollback() {
	target := s.firstIncorrect
	s.firstIncorrect = NullFrame

	depth := int(s.current - target)
	s.log.WithFields(logrus.Fields{"frame": target, "depth": depth}).Debug("rolling back")
	s.events = append(s.events, Event{Kind: EventRollback, Frame: target, Depth: depth})

	s.game.Load(target)
	for f := target; f < s.current; f++ {
		s.simulate(f)
	}
}

func (s *Session[I]) simulate(frame Frame) {
	inputs := make([]I, len(s.queues))
	for h, q := range s.queues {
		inputs[h] = q.input(frame)
	}
	s.game.Advance(inputs)
	s.checksums[frame+1] = s.game.Save(frame + 1)
}

// exchangeChecksums sends the checksums of newly confirmed frames and
// compares every checksum for which both sides are known.
func (s *Session[I]) exchangeChecksums() error {
	if s.cfg.DesyncInterval == 0 {
		return nil
	}
	confirmed := s.ConfirmedFrame()
	for s.nextChecksum <= confirmed {
		f := s.nextChecksum
		s.nextChecksum += Frame(s.cfg.DesyncInterval)
		sum, ok := s.checksums[f]
		if !ok {
			continue
		}
		s.sentChecksums[f] = sum
		if err := s.send(Message[I]{Kind: MsgChecksum, Player: s.cfg.LocalPlayers[0], Frame: f, Checksum: sum}); err != nil {
			return err
		}
	}

	frames := make([]Frame, 0, len(s.remoteChecksums))
	for f := range s.remoteChecksums {
		frames = append(frames, f)
	}
	slices.Sort(frames)
	for _, f := range frames {
		local, ok := s.sentChecksums[f]
		if !ok {
			continue
		}
		byPlayer := s.remoteChecksums[f]
		players := make([]PlayerHandle, 0, len(byPlayer))
		for h := range byPlayer {
			players = append(players, h)
		}
		slices.Sort(players)
		for _, h := range players {
			if remote := byPlayer[h]; remote != local {
				err := &DesyncError{Frame: f, Player: h, Local: local, Remote: remote}
				s.events = append(s.events, Event{Kind: EventDesync, Frame: f, Player: h, Local: local, Remote: remote})
				s.log.WithFields(logrus.Fields{"frame": f, "player": h}).Error(err)
				return err
			}
		}
		delete(s.remoteChecksums, f)
	}
	return nil
}

// discard forgets inputs, predictions and checksums that no rollback or
// desync check can reach any more.
func (s *Session[I]) discard() {
	// Confirmed inputs of frames not yet simulated must survive.
	floor := s.ConfirmedFrame() - 1
	for _, q := range s.queues {
		q.discard(floor)
	}

	keep := s.current - Frame(s.cfg.RewindDepth())
	if s.cfg.DesyncInterval > 0 {
		keep = min(keep, s.nextChecksum-Frame(s.cfg.DesyncInterval))
	}
	for f := range s.checksums {
		if f < keep {
			delete(s.checksums, f)
		}
	}

	horizon := s.current - Frame(checksumHorizon*max(s.cfg.DesyncInterval, 1))
	for f := range s.sentChecksums {
		if f < horizon {
			delete(s.sentChecksums, f)
		}
	}
	for f := range s.remoteChecksums {
		if f < horizon {
			delete(s.remoteChecksums, f)
		}
	}
}

func (s *Session[I]) confirmedFrontier() Frame {
	frontier := s.queues[0].frontier
	for _, q := range s.queues[1:] {
		frontier = min(frontier, q.frontier)
	}
	return frontier
}

func (s *Session[I]) laggingPlayer() PlayerHandle {
	lag := PlayerHandle(0)
	for h, q := range s.queues {
		if q.frontier < s.queues[lag].frontier {
			lag = PlayerHandle(h)
		}
	}
	return lag
}

func (s *Session[I]) localHandles() []PlayerHandle {
	hs := make([]PlayerHandle, 0, len(s.local))
	for h := range s.local {
		hs = append(hs, h)
	}
	slices.Sort(hs)
	return hs
}
