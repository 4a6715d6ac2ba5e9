package supergrab

import (
	"github.com/go-gl/mathgl/mgl64"
	log "github.com/sirupsen/logrus"
)

const (
	marbleRadius  = 10.0
	marbleSpacing = 2.5 * marbleRadius
	marbleHalfRow = 3
	wallThickness = 50.0
	arenaHalfSize = 50.0 * 6
)

// DefaultScene builds the arena: four static walls around a 6x6 stack of
// marbles.
func DefaultScene(s *State) {
	walls := []struct {
		pos  mgl64.Vec2
		half mgl64.Vec2
	}{
		// ceiling and floor
		{mgl64.Vec2{0, arenaHalfSize}, mgl64.Vec2{500, wallThickness / 2}},
		{mgl64.Vec2{0, -arenaHalfSize}, mgl64.Vec2{500, wallThickness / 2}},
		// left and right
		{mgl64.Vec2{-wallThickness * 9.5, 0}, mgl64.Vec2{wallThickness / 2, wallThickness * 11 / 2}},
		{mgl64.Vec2{wallThickness * 9.5, 0}, mgl64.Vec2{wallThickness / 2, wallThickness * 11 / 2}},
	}
	for _, w := range walls {
		s.SpawnBody(Body{
			Kind:     BodyStatic,
			Shape:    Box(w.half[0], w.half[1]),
			Position: w.pos,
			Friction: 0.3,
		})
	}

	for x := -marbleHalfRow; x < marbleHalfRow; x++ {
		for y := -marbleHalfRow; y < marbleHalfRow; y++ {
			pos := mgl64.Vec2{float64(x) * marbleSpacing, float64(y) * marbleSpacing}
			s.SpawnBody(Body{
				Kind:             BodyDynamic,
				Shape:            Circle(marbleRadius),
				Position:         pos,
				PreviousPosition: pos,
				Density:          1,
				Marble:           true,
			})
		}
	}
	log.WithField("bodies", len(s.Bodies)).Debug("Spawned scene")
}
