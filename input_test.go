package supergrab

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestInputRecordLayout(t *testing.T) {
	in := InputRecord{Pointer: mgl32.Vec2{1, -2}, Buttons: InputUp | InputGrab}
	b, err := in.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x00, 0x00, 0x80, 0x3f, // 1.0
		0x00, 0x00, 0x00, 0xc0, // -2.0
		0x11,
		0, 0, 0,
	}
	if !bytes.Equal(b, want) {
		t.Fatalf("got % x, want % x", b, want)
	}

	var out InputRecord
	if err := out.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) {
		t.Errorf("got %v, want %v", out, in)
	}
}

func TestInputRecordRejects(t *testing.T) {
	valid, _ := InputRecord{Pointer: mgl32.Vec2{3, 4}, Buttons: InputLeft}.MarshalBinary()
	nan := math.Float32bits(float32(math.NaN()))
	inf := math.Float32bits(float32(math.Inf(1)))

	var tests = []struct {
		name string
		mod  func([]byte) []byte
	}{
		{"short", func(b []byte) []byte { return b[:11] }},
		{"long", func(b []byte) []byte { return append(b, 0) }},
		{"padding", func(b []byte) []byte { b[10] = 1; return b }},
		{"unknown button", func(b []byte) []byte { b[8] |= 1 << 5; return b }},
		{"nan x", func(b []byte) []byte {
			b[0], b[1], b[2], b[3] = byte(nan), byte(nan>>8), byte(nan>>16), byte(nan>>24)
			return b
		}},
		{"inf y", func(b []byte) []byte {
			b[4], b[5], b[6], b[7] = byte(inf), byte(inf>>8), byte(inf>>16), byte(inf>>24)
			return b
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.mod(bytes.Clone(valid))
			var in InputRecord
			if err := in.UnmarshalBinary(b); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestInputRecordEqual(t *testing.T) {
	negZero := float32(math.Copysign(0, -1))
	var tests = []struct {
		a, b  InputRecord
		equal bool
	}{
		{InputRecord{}, InputRecord{}, true},
		{InputRecord{Buttons: InputGrab}, InputRecord{}, false},
		{InputRecord{Pointer: mgl32.Vec2{1, 2}}, InputRecord{Pointer: mgl32.Vec2{1, 2}}, true},
		{InputRecord{Pointer: mgl32.Vec2{negZero, 0}}, InputRecord{}, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v vs %v", tt.a, tt.b), func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestInputSampler(t *testing.T) {
	var s InputSampler
	if !s.Load().Equal(InputRecord{}) {
		t.Error("empty sampler should return the zero record")
	}

	in := InputRecord{Pointer: mgl32.Vec2{5, 6}, Buttons: InputGrab}
	s.Store(in)
	in.Buttons = 0
	if got := s.Sample(0); got.Buttons != InputGrab {
		t.Errorf("sampler aliased the stored record: %v", got)
	}

	// Every record from here on has a zero y.
	s.Store(InputRecord{Pointer: mgl32.Vec2{-1, 0}})
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			s.Store(InputRecord{Pointer: mgl32.Vec2{float32(i), 0}})
		}
		close(done)
	}()
	for i := 0; i < 1000; i++ {
		if p := s.Load().Pointer; p[1] != 0 {
			t.Fatalf("torn read %v", p)
		}
	}
	<-done
	if got := s.Load().Pointer[0]; got != 999 {
		t.Errorf("last store lost: %v", got)
	}
}

func TestBotInputIsSeeded(t *testing.T) {
	a, b := NewBotInput(7), NewBotInput(7)
	grabbed := false
	for f := 0; f < 300; f++ {
		x, y := a.Sample(rollbackFrame(f)), b.Sample(rollbackFrame(f))
		if !x.Equal(y) {
			t.Fatalf("frame %d: %v != %v", f, x, y)
		}
		grabbed = grabbed || x.Buttons.Has(InputGrab)
	}
	if !grabbed {
		t.Error("bot never grabbed")
	}
}
