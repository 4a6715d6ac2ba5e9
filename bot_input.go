package supergrab

import (
	"math"
	"math/rand"

	"github.com/ScottBrooks/supergrab/rollback"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

// BotInput plays without a human: it picks a marble-sized spot in the
// arena, holds grab there for a while, drags it in a circle and lets go.
// Now and then it also taps a direction.
type BotInput struct {
	rng *rand.Rand

	target     mgl32.Vec2
	grabUntil  rollback.Frame
	nextGrabAt rollback.Frame
	buttons    Buttons
}

func NewBotInput(seed int64) *BotInput {
	return &BotInput{rng: rand.New(rand.NewSource(seed))}
}

func (b *BotInput) Sample(frame rollback.Frame) InputRecord {
	if frame >= b.nextGrabAt && frame >= b.grabUntil {
		b.target = mgl32.Vec2{
			float32(b.rng.Intn(2*marbleHalfRow)-marbleHalfRow) * marbleSpacing,
			float32(b.rng.Intn(2*marbleHalfRow)-marbleHalfRow) * marbleSpacing,
		}
		b.grabUntil = frame + rollback.Frame(30+b.rng.Intn(90))
		b.nextGrabAt = b.grabUntil + rollback.Frame(b.rng.Intn(60))
		b.buttons = 0
		if b.rng.Intn(4) == 0 {
			b.buttons = []Buttons{InputUp, InputLeft, InputRight, InputDown}[b.rng.Intn(4)]
		}
		log.WithFields(log.Fields{"frame": frame, "target": b.target, "until": b.grabUntil}).Debug("Bot picked a target")
	}

	in := InputRecord{Pointer: b.target, Buttons: b.buttons}
	if frame < b.grabUntil {
		angle := float64(frame) * 0.05
		in.Pointer = b.target.Add(mgl32.Vec2{float32(math.Cos(angle)), float32(math.Sin(angle))}.Mul(40))
		in.Buttons |= InputGrab
	}
	return in
}
