package supergrab

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/ScottBrooks/supergrab/rollback"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// InputRecordSize is the length of an encoded InputRecord.
const InputRecordSize = 12

type Buttons uint8

const (
	InputUp Buttons = 1 << iota
	InputDown
	InputLeft
	InputRight
	InputGrab

	knownButtons = InputUp | InputDown | InputLeft | InputRight | InputGrab
)

func (b Buttons) Has(flag Buttons) bool { return b&flag != 0 }

// InputRecord is one player's input for one frame. Its wire form is
//
//	[0:4]  pointer x, float32 bits, little endian
//	[4:8]  pointer y, float32 bits, little endian
//	[8]    buttons
//	[9:12] zero
type InputRecord struct {
	Pointer mgl32.Vec2
	Buttons Buttons
}

// Equal is bitwise: -0 and +0 differ.
func (in InputRecord) Equal(o InputRecord) bool {
	return math.Float32bits(in.Pointer[0]) == math.Float32bits(o.Pointer[0]) &&
		math.Float32bits(in.Pointer[1]) == math.Float32bits(o.Pointer[1]) &&
		in.Buttons == o.Buttons
}

// PointerWorld widens the pointer for the simulation.
func (in InputRecord) PointerWorld() mgl64.Vec2 {
	return mgl64.Vec2{float64(in.Pointer[0]), float64(in.Pointer[1])}
}

func (in InputRecord) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(in.Pointer[0]))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(in.Pointer[1]))
	return append(b, byte(in.Buttons), 0, 0, 0), nil
}

func (in InputRecord) MarshalBinary() ([]byte, error) {
	return in.AppendBinary(make([]byte, 0, InputRecordSize))
}

func (in *InputRecord) UnmarshalBinary(b []byte) error {
	if len(b) != InputRecordSize {
		return fmt.Errorf("%w: record is %d bytes, want %d", ErrInvalidInput, len(b), InputRecordSize)
	}
	if b[9] != 0 || b[10] != 0 || b[11] != 0 {
		return fmt.Errorf("%w: non-zero padding", ErrInvalidInput)
	}
	buttons := Buttons(b[8])
	if buttons&^knownButtons != 0 {
		return fmt.Errorf("%w: unknown button bits %#02x", ErrInvalidInput, uint8(buttons&^knownButtons))
	}
	x := math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
	for _, v := range []float32{x, y} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: pointer coordinate %v", ErrInvalidInput, v)
		}
	}
	*in = InputRecord{Pointer: mgl32.Vec2{x, y}, Buttons: buttons}
	return nil
}

func (in InputRecord) String() string {
	return fmt.Sprintf("(%g,%g) %05b", in.Pointer[0], in.Pointer[1], uint8(in.Buttons))
}

// InputSource produces the local input for a frame.
type InputSource interface {
	Sample(frame rollback.Frame) InputRecord
}

// InputSampler hands the latest input from the goroutine polling devices to
// the goroutine advancing the session. One writer and one reader.
type InputSampler struct {
	latest atomic.Pointer[InputRecord]
}

func (s *InputSampler) Store(in InputRecord) {
	s.latest.Store(&in)
}

// Load returns the most recently stored input, or the zero record.
func (s *InputSampler) Load() InputRecord {
	if in := s.latest.Load(); in != nil {
		return *in
	}
	return InputRecord{}
}

// Sample makes the sampler an InputSource.
func (s *InputSampler) Sample(rollback.Frame) InputRecord { return s.Load() }
