// Package wsnet carries rollback messages between peers over websockets.
// One peer hosts and relays; the others dial it.
package wsnet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ScottBrooks/supergrab"
	"github.com/ScottBrooks/supergrab/rollback"
	"github.com/google/uuid"
)

type Message = rollback.Message[supergrab.InputRecord]

var ErrMalformed = errors.New("wsnet: malformed message")

const headerSize = 1 + 2 + 4

// Encode lays a message out as
//
//	[0]   kind
//	[1:3] player, little endian
//	[3:7] frame, little endian
//	[7:]  12 byte input record, or 8 byte checksum
func Encode(msg Message) ([]byte, error) {
	if msg.Player < 0 || msg.Player > 0xffff {
		return nil, fmt.Errorf("%w: player %d", ErrMalformed, msg.Player)
	}
	b := make([]byte, headerSize, headerSize+supergrab.InputRecordSize)
	b[0] = byte(msg.Kind)
	binary.LittleEndian.PutUint16(b[1:3], uint16(msg.Player))
	binary.LittleEndian.PutUint32(b[3:7], uint32(msg.Frame))
	switch msg.Kind {
	case rollback.MsgInput:
		return msg.Input.AppendBinary(b)
	case rollback.MsgChecksum:
		return binary.LittleEndian.AppendUint64(b, msg.Checksum), nil
	}
	return nil, fmt.Errorf("%w: kind %d", ErrMalformed, msg.Kind)
}

func Decode(b []byte) (Message, error) {
	var msg Message
	if len(b) < headerSize {
		return msg, fmt.Errorf("%w: %d bytes", ErrMalformed, len(b))
	}
	msg.Kind = rollback.MessageKind(b[0])
	msg.Player = rollback.PlayerHandle(binary.LittleEndian.Uint16(b[1:3]))
	msg.Frame = rollback.Frame(int32(binary.LittleEndian.Uint32(b[3:7])))
	body := b[headerSize:]
	switch msg.Kind {
	case rollback.MsgInput:
		if err := msg.Input.UnmarshalBinary(body); err != nil {
			return msg, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case rollback.MsgChecksum:
		if len(body) != 8 {
			return msg, fmt.Errorf("%w: checksum is %d bytes", ErrMalformed, len(body))
		}
		msg.Checksum = binary.LittleEndian.Uint64(body)
	default:
		return msg, fmt.Errorf("%w: kind %d", ErrMalformed, msg.Kind)
	}
	return msg, nil
}

// hello is the first text frame in each direction. The guest sends its ID;
// the host answers with the guest's player handle and the player count.
type hello struct {
	Peer    uuid.UUID `json:"peer"`
	Player  int       `json:"player,omitempty"`
	Players int       `json:"players,omitempty"`
}
