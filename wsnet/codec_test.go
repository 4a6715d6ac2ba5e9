package wsnet

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ScottBrooks/supergrab"
	"github.com/ScottBrooks/supergrab/rollback"
	"github.com/go-gl/mathgl/mgl32"
)

func TestEncodeLayout(t *testing.T) {
	b, err := Encode(Message{Kind: rollback.MsgChecksum, Player: 2, Frame: 300, Checksum: 0x0102030405060708})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{2, 2, 0, 0x2c, 0x01, 0, 0, 8, 7, 6, 5, 4, 3, 2, 1}
	if !bytes.Equal(b, want) {
		t.Errorf("got % x, want % x", b, want)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	var tests = []Message{
		{Kind: rollback.MsgInput, Player: 1, Frame: 42, Input: supergrab.InputRecord{
			Pointer: mgl32.Vec2{-12.5, 99},
			Buttons: supergrab.InputGrab | supergrab.InputLeft,
		}},
		{Kind: rollback.MsgChecksum, Player: 0, Frame: 10, Checksum: 0xdeadbeefcafef00d},
	}
	for _, want := range tests {
		b, err := Encode(want)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Decode(b)
		if err != nil {
			t.Fatal(err)
		}
		if got.Kind != want.Kind || got.Player != want.Player || got.Frame != want.Frame ||
			!got.Input.Equal(want.Input) || got.Checksum != want.Checksum {
			t.Errorf("got %+v, want %+v", got, want)
		}
	}
}

func TestDecodeRejects(t *testing.T) {
	input, _ := Encode(Message{Kind: rollback.MsgInput, Frame: 1})
	var tests = []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte{1, 0, 0}},
		{"unknown kind", []byte{9, 0, 0, 0, 0, 0, 0}},
		{"truncated input", input[:len(input)-1]},
		{"bad padding", append(bytes.Clone(input[:len(input)-1]), 1)},
		{"short checksum", []byte{2, 0, 0, 0, 0, 0, 0, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, ErrMalformed) {
				t.Errorf("got %v, want ErrMalformed", err)
			}
		})
	}
}

func TestEncodeRejectsWidePlayer(t *testing.T) {
	if _, err := Encode(Message{Kind: rollback.MsgInput, Player: 1 << 16}); !errors.Is(err, ErrMalformed) {
		t.Errorf("got %v", err)
	}
}
