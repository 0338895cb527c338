package viz

import (
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is what the monitor draws: a particle subsample and the matching
// diagnostics row.
type Frame struct {
	Step      int
	Time      float64
	Diag      sim.Diagnostics
	Positions []r3.Vec
}

// Diagnoser measures a state; *sim.Simulator satisfies it.
type Diagnoser interface {
	Diagnose(st *particles.State) (sim.Diagnostics, error)
}

// Feed is a sim.Observer publishing a Frame every n steps. Frames are
// dropped while the consumer is behind so the run never blocks on the UI.
type Feed struct {
	diag      Diagnoser
	every     int
	maxPoints int
	frames    chan Frame
	dropped   int
}

func NewFeed(d Diagnoser, every, maxPoints int) *Feed {
	if every < 1 {
		every = 1
	}
	if maxPoints < 1 {
		maxPoints = 4096
	}
	return &Feed{
		diag:      d,
		every:     every,
		maxPoints: maxPoints,
		frames:    make(chan Frame, 1),
	}
}

func (f *Feed) Frames() <-chan Frame { return f.frames }

// Dropped counts frames skipped because the consumer was busy.
func (f *Feed) Dropped() int { return f.dropped }

func (f *Feed) OnStep(st *particles.State, step int, t float64) {
	if step%f.every != 0 {
		return
	}
	if len(f.frames) == cap(f.frames) {
		f.dropped++
		return
	}
	frame, err := f.Capture(st, step, t)
	if err != nil {
		return
	}
	select {
	case f.frames <- frame:
	default:
		f.dropped++
	}
}

// Capture builds a frame without publishing it.
func (f *Feed) Capture(st *particles.State, step int, t float64) (Frame, error) {
	frame := Frame{Step: step, Time: t}
	if f.diag != nil {
		d, err := f.diag.Diagnose(st)
		if err != nil {
			return frame, err
		}
		frame.Diag = d
	}
	frame.Diag.Step, frame.Diag.Time = step, t

	stride := 1
	if st.Count > f.maxPoints {
		stride = (st.Count + f.maxPoints - 1) / f.maxPoints
	}
	frame.Positions = make([]r3.Vec, 0, st.Count/stride+1)
	for i := 0; i < st.Count; i += stride {
		frame.Positions = append(frame.Positions, st.Position(i))
	}
	return frame, nil
}

// Close ends the frame stream; call it once the run has returned.
func (f *Feed) Close() { close(f.frames) }
