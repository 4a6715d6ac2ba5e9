package supergrab

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl64"
)

type ChecksumOptions struct {
	// PreviousPosition includes Body.PreviousPosition in the hash.
	PreviousPosition bool
}

// entity kind tags keep equal ids of different kinds from cancelling out
const (
	tagHeader byte = iota + 1
	tagBody
	tagGrabber
	tagJoint
	tagGrabberIndex
	tagJointIndex
)

type hasher struct {
	d   *xxhash.Digest
	buf []byte
}

func newHasher() *hasher {
	return &hasher{d: xxhash.New(), buf: make([]byte, 0, 128)}
}

func (h *hasher) begin(tag byte, id uint64) {
	h.d.Reset()
	h.buf = append(h.buf[:0], tag)
	h.u64(id)
}

func (h *hasher) u64(v uint64)  { h.buf = binary.LittleEndian.AppendUint64(h.buf, v) }
func (h *hasher) f64(v float64) { h.u64(math.Float64bits(v)) }
func (h *hasher) vec(v mgl64.Vec2) {
	h.f64(v[0])
	h.f64(v[1])
}

func (h *hasher) sum() uint64 {
	h.d.Write(h.buf)
	return h.d.Sum64()
}

// Checksum hashes State for desync detection. Each entity is hashed on its
// own over the raw bits of its fields and the results are added, so the
// value does not depend on map iteration order.
func Checksum(s *State, opts ChecksumOptions) uint64 {
	h := newHasher()

	h.begin(tagHeader, uint64(uint32(s.Frame)))
	h.u64(uint64(s.NextID))
	total := h.sum()

	for id, b := range s.Bodies {
		h.begin(tagBody, uint64(id))
		h.buf = append(h.buf, byte(b.Kind), byte(b.Shape.Kind))
		h.f64(b.Shape.Radius)
		h.vec(b.Shape.HalfExtents)
		h.vec(b.Position)
		h.f64(b.Angle)
		h.vec(b.LinearVelocity)
		h.f64(b.AngularVelocity)
		if opts.PreviousPosition {
			h.vec(b.PreviousPosition)
		}
		h.f64(b.Density)
		h.f64(b.Friction)
		h.f64(b.Restitution)
		if b.Marble {
			h.buf = append(h.buf, 1)
		}
		total += h.sum()
	}
	for id, g := range s.Grabbers {
		h.begin(tagGrabber, uint64(id))
		h.u64(uint64(g.Player))
		h.vec(g.Position)
		total += h.sum()
	}
	for id, j := range s.Joints {
		h.begin(tagJoint, uint64(id))
		h.u64(uint64(j.Player))
		h.u64(uint64(j.Grabber))
		h.u64(uint64(j.Body))
		h.f64(j.Compliance)
		h.vec(j.LocalAnchorGrabber)
		h.vec(j.LocalAnchorBody)
		h.f64(j.LinearDamping)
		h.f64(j.AngularDamping)
		total += h.sum()
	}
	for p, id := range s.GrabberOf {
		h.begin(tagGrabberIndex, uint64(p))
		h.u64(uint64(id))
		total += h.sum()
	}
	for p, id := range s.JointOf {
		h.begin(tagJointIndex, uint64(p))
		h.u64(uint64(id))
		total += h.sum()
	}
	return total
}
