package rollback

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// SnapshotID names a stored snapshot. It is the frame the snapshot was taken
// at.
type SnapshotID Frame

var snapshotEncMode, snapshotDecMode = func() (cbor.EncMode, cbor.DecMode) {
	enc := cbor.CoreDetEncOptions()
	// Floats must round-trip bit for bit.
	enc.ShortestFloat = cbor.ShortestFloatNone
	enc.NaNConvert = cbor.NaNConvertNone
	enc.InfConvert = cbor.InfConvertNone
	em, err := enc.EncMode()
	if err != nil {
		panic(err)
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return em, dm
}()

// Store keeps deterministic snapshots of a state value, bounded to the last
// depth frames.
type Store[S any] struct {
	depth  int
	frames map[Frame][]byte
	newest Frame
}

// NewStore returns a store that retains snapshots for depth frames.
func NewStore[S any](depth int) *Store[S] {
	if depth < 1 {
		depth = 1
	}
	return &Store[S]{depth: depth, frames: map[Frame][]byte{}, newest: NullFrame}
}

// Snapshot encodes state and stores it under frame, replacing any earlier
// snapshot for that frame. Snapshots at or below frame-depth are dropped.
func (s *Store[S]) Snapshot(frame Frame, state *S) (SnapshotID, error) {
	b, err := snapshotEncMode.Marshal(state)
	if err != nil {
		return SnapshotID(NullFrame), fmt.Errorf("snapshot frame %d: %w", frame, err)
	}
	s.frames[frame] = b
	s.newest = frame
	for f := range s.frames {
		if f <= frame-Frame(s.depth) || f > frame {
			delete(s.frames, f)
		}
	}
	return SnapshotID(frame), nil
}

// Restore decodes the snapshot into state, overwriting it completely.
// Restoring a snapshot that was never taken or has been evicted panics: a
// session asking for it is broken.
func (s *Store[S]) Restore(id SnapshotID, state *S) {
	b, ok := s.frames[Frame(id)]
	if !ok {
		panic(fmt.Sprintf("rollback: no snapshot for frame %d (newest %d, depth %d)", id, s.newest, s.depth))
	}
	var fresh S
	if err := snapshotDecMode.Unmarshal(b, &fresh); err != nil {
		panic(fmt.Sprintf("rollback: corrupt snapshot for frame %d: %v", id, err))
	}
	*state = fresh
}

// Has reports whether a snapshot for frame is available.
func (s *Store[S]) Has(frame Frame) bool {
	_, ok := s.frames[frame]
	return ok
}

// Len is the number of retained snapshots.
func (s *Store[S]) Len() int { return len(s.frames) }

// Clear drops every snapshot.
func (s *Store[S]) Clear() {
	clear(s.frames)
	s.newest = NullFrame
}

// Evict drops every snapshot older than before.
func (s *Store[S]) Evict(before Frame) {
	for f := range s.frames {
		if f < before {
			delete(s.frames, f)
		}
	}
}
