package supergrab

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// GrabConfig tunes the grab interaction.
type GrabConfig struct {
	// CaptureRadius is the largest pointer-to-body distance, in world units,
	// at which a held grab attaches. The boundary is inclusive.
	CaptureRadius float64
	Compliance    float64

	LinearDamping  float64
	AngularDamping float64

	// SolidProjection treats a pointer inside a body as touching it at
	// distance zero. When false the nearest surface point is used.
	SolidProjection bool
	ExcludeStatic   bool
}

func DefaultGrabConfig() GrabConfig {
	return GrabConfig{
		CaptureRadius:   100,
		Compliance:      1e-6,
		LinearDamping:   5,
		AngularDamping:  1,
		SolidProjection: true,
	}
}

// Config is shared by every peer of a match; peers with different configs
// will desync.
type Config struct {
	NumPlayers int
	FPS        int
	Substeps   int

	Gravity mgl64.Vec2
	// PixelsPerMeter scales world units into the solver's units.
	PixelsPerMeter     float64
	VelocityIterations int
	PositionIterations int

	Grab     GrabConfig
	Movement bool

	HashPreviousPosition bool

	// Scene populates frame 0. Nil means DefaultScene.
	Scene func(*State)
}

func DefaultConfig() Config {
	return Config{
		NumPlayers:         2,
		FPS:                60,
		Substeps:           6,
		Gravity:            mgl64.Vec2{0, -1000},
		PixelsPerMeter:     50,
		VelocityIterations: 8,
		PositionIterations: 3,
		Grab:               DefaultGrabConfig(),
		Movement:           true,
	}
}

// Timestep is the simulated duration of one frame in seconds.
func (c Config) Timestep() float64 {
	return 1 / float64(c.FPS)
}

func (c Config) Validate() error {
	switch {
	case c.NumPlayers < 1:
		return fmt.Errorf("%w: need at least one player, got %d", ErrInvalidConfig, c.NumPlayers)
	case c.FPS < 1:
		return fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidConfig, c.FPS)
	case c.Substeps < 1:
		return fmt.Errorf("%w: substeps must be positive, got %d", ErrInvalidConfig, c.Substeps)
	case c.PixelsPerMeter <= 0:
		return fmt.Errorf("%w: pixels per meter must be positive, got %v", ErrInvalidConfig, c.PixelsPerMeter)
	case c.Grab.CaptureRadius < 0:
		return fmt.Errorf("%w: negative capture radius %v", ErrInvalidConfig, c.Grab.CaptureRadius)
	case c.Grab.Compliance <= 0:
		return fmt.Errorf("%w: compliance must be positive, got %v", ErrInvalidConfig, c.Grab.Compliance)
	}
	return nil
}
