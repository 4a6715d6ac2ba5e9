package supergrab

import (
	"math"

	"github.com/ByteArena/box2d"
	"github.com/go-gl/mathgl/mgl64"
)

// Box2DEngine runs the box2d solver on a world rebuilt from State on every
// Advance. Contacts are not warm started across frames; in exchange the
// solver holds no state that a rollback could miss.
type Box2DEngine struct {
	Gravity            mgl64.Vec2
	PixelsPerMeter     float64
	Substeps           int
	VelocityIterations int
	PositionIterations int
}

func NewBox2DEngine(cfg Config) *Box2DEngine {
	return &Box2DEngine{
		Gravity:            cfg.Gravity,
		PixelsPerMeter:     cfg.PixelsPerMeter,
		Substeps:           cfg.Substeps,
		VelocityIterations: cfg.VelocityIterations,
		PositionIterations: cfg.PositionIterations,
	}
}

type b2Joint struct {
	joint *GrabberJoint
	body  *box2d.B2Body
}

func (e *Box2DEngine) toB2(v mgl64.Vec2) box2d.B2Vec2 {
	return box2d.MakeB2Vec2(v[0]/e.PixelsPerMeter, v[1]/e.PixelsPerMeter)
}

func (e *Box2DEngine) fromB2(v box2d.B2Vec2) mgl64.Vec2 {
	return mgl64.Vec2{v.X * e.PixelsPerMeter, v.Y * e.PixelsPerMeter}
}

func (e *Box2DEngine) Advance(s *State, dt float64) {
	world := box2d.MakeB2World(e.toB2(e.Gravity))

	bodies := map[EntityID]*box2d.B2Body{}
	for _, id := range SortedIDs(s.Bodies) {
		bodies[id] = e.createBody(&world, s.Bodies[id])
	}
	grabbers := map[EntityID]*box2d.B2Body{}
	for _, id := range SortedIDs(s.Grabbers) {
		bd := box2d.MakeB2BodyDef()
		bd.Type = box2d.B2BodyType.B2_kinematicBody
		bd.Position = e.toB2(s.Grabbers[id].Position)
		bd.AllowSleep = false
		grabbers[id] = world.CreateBody(&bd)
	}

	h := dt / float64(e.Substeps)
	var joints []b2Joint
	for _, id := range SortedIDs(s.Joints) {
		j := s.Joints[id]
		a, okA := grabbers[j.Grabber]
		b, okB := bodies[j.Body]
		if !okA || !okB {
			continue
		}
		jd := box2d.MakeB2DistanceJointDef()
		jd.BodyA = a
		jd.BodyB = b
		jd.LocalAnchorA = e.toB2(j.LocalAnchorGrabber)
		jd.LocalAnchorB = e.toB2(j.LocalAnchorBody)
		jd.Length = 0
		jd.FrequencyHz = jointFrequency(j.Compliance, b.GetMass(), h)
		jd.DampingRatio = 1
		world.CreateJoint(&jd)
		joints = append(joints, b2Joint{joint: j, body: b})
	}

	for i := 0; i < e.Substeps; i++ {
		world.Step(h, e.VelocityIterations, e.PositionIterations)
		for _, bj := range joints {
			damp(bj.body, bj.joint, h)
		}
	}

	for _, id := range SortedIDs(s.Bodies) {
		b := s.Bodies[id]
		if b.Kind == BodyStatic {
			continue
		}
		bb := bodies[id]
		b.Position = e.fromB2(bb.GetPosition())
		b.Angle = bb.GetAngle()
		b.LinearVelocity = e.fromB2(bb.GetLinearVelocity())
		b.AngularVelocity = bb.GetAngularVelocity()
	}
}

func (e *Box2DEngine) createBody(world *box2d.B2World, b *Body) *box2d.B2Body {
	bd := box2d.MakeB2BodyDef()
	switch b.Kind {
	case BodyStatic:
		bd.Type = box2d.B2BodyType.B2_staticBody
	case BodyKinematic:
		bd.Type = box2d.B2BodyType.B2_kinematicBody
	default:
		bd.Type = box2d.B2BodyType.B2_dynamicBody
	}
	bd.Position = e.toB2(b.Position)
	bd.Angle = b.Angle
	bd.LinearVelocity = e.toB2(b.LinearVelocity)
	bd.AngularVelocity = b.AngularVelocity
	bd.AllowSleep = false
	body := world.CreateBody(&bd)

	fd := box2d.MakeB2FixtureDef()
	fd.Density = b.Density
	fd.Friction = b.Friction
	fd.Restitution = b.Restitution
	switch b.Shape.Kind {
	case ShapeBox:
		shape := box2d.MakeB2PolygonShape()
		shape.SetAsBox(b.Shape.HalfExtents[0]/e.PixelsPerMeter, b.Shape.HalfExtents[1]/e.PixelsPerMeter)
		fd.Shape = &shape
	default:
		shape := box2d.MakeB2CircleShape()
		shape.M_radius = b.Shape.Radius / e.PixelsPerMeter
		fd.Shape = &shape
	}
	body.CreateFixtureFromDef(&fd)
	return body
}

// jointFrequency converts a compliance into the spring frequency of a soft
// distance joint pulling mass. The result is capped at the Nyquist rate of
// the substep.
func jointFrequency(compliance, mass, h float64) float64 {
	if mass <= 0 || compliance <= 0 {
		return 0
	}
	f := math.Sqrt(1/(compliance*mass)) / (2 * math.Pi)
	return math.Min(f, 0.5/h)
}

func damp(b *box2d.B2Body, j *GrabberJoint, h float64) {
	v := b.GetLinearVelocity()
	lin := 1 / (1 + h*j.LinearDamping)
	b.SetLinearVelocity(box2d.MakeB2Vec2(v.X*lin, v.Y*lin))
	b.SetAngularVelocity(b.GetAngularVelocity() / (1 + h*j.AngularDamping))
}

func (e *Box2DEngine) Project(s *State, p mgl64.Vec2, filter ProjectionFilter) (Projection, bool) {
	return ProjectPoint(s, p, filter)
}
