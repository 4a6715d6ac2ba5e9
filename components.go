package supergrab

import (
	"github.com/ScottBrooks/supergrab/rollback"
	"github.com/go-gl/mathgl/mgl64"
)

// EntityID names an entity in State. IDs are allocated from State.NextID and
// never reused, so allocation is deterministic across peers.
type EntityID uint64

type BodyKind uint8

const (
	BodyDynamic BodyKind = iota
	BodyStatic
	BodyKinematic
)

func (k BodyKind) String() string {
	switch k {
	case BodyDynamic:
		return "dynamic"
	case BodyStatic:
		return "static"
	case BodyKinematic:
		return "kinematic"
	}
	return "unknown"
}

type ShapeKind uint8

const (
	ShapeCircle ShapeKind = iota
	ShapeBox
)

type Shape struct {
	Kind        ShapeKind  `cbor:"1,keyasint"`
	Radius      float64    `cbor:"2,keyasint,omitempty"`
	HalfExtents mgl64.Vec2 `cbor:"3,keyasint"`
}

func Circle(radius float64) Shape {
	return Shape{Kind: ShapeCircle, Radius: radius}
}

func Box(halfWidth, halfHeight float64) Shape {
	return Shape{Kind: ShapeBox, HalfExtents: mgl64.Vec2{halfWidth, halfHeight}}
}

// Body is a rigid body. Positions and velocities are in world units.
type Body struct {
	Kind  BodyKind `cbor:"1,keyasint"`
	Shape Shape    `cbor:"2,keyasint"`

	Position        mgl64.Vec2 `cbor:"3,keyasint"`
	Angle           float64    `cbor:"4,keyasint"`
	LinearVelocity  mgl64.Vec2 `cbor:"5,keyasint"`
	AngularVelocity float64    `cbor:"6,keyasint"`
	// PreviousPosition is the position at the end of the previous frame.
	PreviousPosition mgl64.Vec2 `cbor:"7,keyasint"`

	Density     float64 `cbor:"8,keyasint"`
	Friction    float64 `cbor:"9,keyasint"`
	Restitution float64 `cbor:"10,keyasint"`

	Marble bool `cbor:"11,keyasint,omitempty"`
}

// Grabber is the kinematic anchor that follows a player's pointer while grab
// is held.
type Grabber struct {
	Player   rollback.PlayerHandle `cbor:"1,keyasint"`
	Position mgl64.Vec2            `cbor:"2,keyasint"`
}

// GrabberJoint pulls Body towards Grabber.
type GrabberJoint struct {
	Player  rollback.PlayerHandle `cbor:"1,keyasint"`
	Grabber EntityID              `cbor:"2,keyasint"`
	Body    EntityID              `cbor:"3,keyasint"`

	Compliance         float64    `cbor:"4,keyasint"`
	LocalAnchorGrabber mgl64.Vec2 `cbor:"5,keyasint"`
	// LocalAnchorBody is in the body's frame.
	LocalAnchorBody mgl64.Vec2 `cbor:"6,keyasint"`
	LinearDamping   float64    `cbor:"7,keyasint"`
	AngularDamping  float64    `cbor:"8,keyasint"`
}
