package main

import (
	"errors"
	"fmt"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/ScottBrooks/supergrab"
	"github.com/ScottBrooks/supergrab/rollback"
	log "github.com/sirupsen/logrus"
)

// MatchScene runs the rollback session inside engo's headless loop, one
// AdvanceFrame per engo update.
type MatchScene struct {
	Session *rollback.Session[supergrab.InputRecord]
	Game    *supergrab.Game
	Sampler *supergrab.InputSampler
	Local   rollback.PlayerHandle
	// Frames stops the match once reached; zero runs until exit.
	Frames int

	sys *SessionSystem
}

func (*MatchScene) Preload() {}

func (ms *MatchScene) Setup(u engo.Updater) {
	w, _ := u.(*ecs.World)
	ms.sys = &SessionSystem{Scene: ms, exit: engo.Exit}
	w.AddSystem(ms.sys)
}

func (*MatchScene) Type() string { return "Match" }

// Err is the error that ended the match, if any.
func (ms *MatchScene) Err() error {
	if ms.sys == nil {
		return nil
	}
	return ms.sys.err
}

// SessionSystem feeds the sampled local input to the session and advances
// it. The engo dt is ignored: the session steps a fixed timestep.
type SessionSystem struct {
	Scene *MatchScene

	exit func()
	err  error
	done bool
}

func (ss *SessionSystem) Remove(ecs.BasicEntity) {}

func (ss *SessionSystem) Update(dt float32) {
	if ss.done {
		return
	}
	ms := ss.Scene
	if err := ms.Session.AddLocalInput(ms.Local, ms.Sampler.Load()); err != nil {
		ss.stop(err)
		return
	}
	err := ms.Session.AdvanceFrame()
	supergrab.LogEvents(ms.Session.Events())
	switch {
	case errors.Is(err, rollback.ErrPredictionThreshold):
		return
	case err != nil:
		ss.stop(err)
		return
	}

	frame := ms.Session.CurrentFrame()
	if fps := ms.Game.Sim.Config.FPS; frame%rollback.Frame(fps) == 0 {
		log.WithFields(log.Fields{
			"frame":     frame,
			"confirmed": ms.Session.ConfirmedFrame(),
			"entities":  ms.Game.State().EntityCount(),
			"checksum":  fmt.Sprintf("%016x", ms.Game.Checksum()),
		}).Info("Tick")
	}
	if ms.Frames > 0 && int(frame) >= ms.Frames {
		log.WithField("frame", frame).Info("Frame limit reached")
		ss.stop(nil)
	}
}

func (ss *SessionSystem) stop(err error) {
	ss.err = err
	ss.done = true
	ss.exit()
}
