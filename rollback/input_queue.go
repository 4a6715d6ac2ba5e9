package rollback

type confirmResult uint8

const (
	confirmNew confirmResult = iota
	confirmDuplicate
	confirmConflict
	confirmStale
)

// inputQueue tracks one player's confirmed inputs and the predictions that
// were simulated in their place.
type inputQueue[I Input[I]] struct {
	confirmed map[Frame]I
	predicted map[Frame]I
	// frontier is the first frame without a confirmed input; every frame
	// below it is confirmed.
	frontier Frame
	// floor is the oldest frame still retained.
	floor Frame
}

func newInputQueue[I Input[I]]() *inputQueue[I] {
	return &inputQueue[I]{
		confirmed: map[Frame]I{},
		predicted: map[Frame]I{},
	}
}

// confirm records the true input for frame. mispredicted reports whether a
// different prediction was already simulated for it.
func (q *inputQueue[I]) confirm(frame Frame, in I) (res confirmResult, mispredicted bool) {
	if frame < q.floor {
		return confirmStale, false
	}
	if prev, ok := q.confirmed[frame]; ok {
		if prev.Equal(in) {
			return confirmDuplicate, false
		}
		return confirmConflict, false
	}
	q.confirmed[frame] = in
	if guess, ok := q.predicted[frame]; ok {
		mispredicted = !guess.Equal(in)
		delete(q.predicted, frame)
	}
	for {
		if _, ok := q.confirmed[q.frontier]; !ok {
			break
		}
		q.frontier++
	}
	return confirmNew, mispredicted
}

// input returns the input to simulate for frame: the confirmed one if known,
// else the prediction already simulated for it, else a new prediction that
// repeats the last contiguously confirmed input.
func (q *inputQueue[I]) input(frame Frame) I {
	if in, ok := q.confirmed[frame]; ok {
		return in
	}
	if in, ok := q.predicted[frame]; ok {
		return in
	}
	in := q.confirmed[q.frontier-1]
	q.predicted[frame] = in
	return in
}

// discard drops everything below frame, keeping the input prediction
// repeats.
func (q *inputQueue[I]) discard(frame Frame) {
	keep := q.frontier - 1
	for f := q.floor; f < frame; f++ {
		if f != keep {
			delete(q.confirmed, f)
		}
		delete(q.predicted, f)
	}
	if frame > q.floor {
		q.floor = frame
	}
}
