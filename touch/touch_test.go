package touch

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

// step is one scripted poll: whether a sample is pending and, if so, its raw
// coordinates.
type step struct {
	pending bool
	x, y    int
}

// scriptSampler replays a fixed poll script. Once the script is exhausted it
// reports no pending samples forever.
type scriptSampler struct {
	steps []step
	i     int
	cur   step
	err   error
}

func (s *scriptSampler) Pending() (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.i >= len(s.steps) {
		s.cur = step{}
		return false, nil
	}
	s.cur = s.steps[s.i]
	s.i++
	return s.cur.pending, nil
}

func (s *scriptSampler) Sample() (int, int, error) {
	return s.cur.x, s.cur.y, nil
}

// touches appends n pending polls with constant raw coordinates.
func touches(steps []step, n, x, y int) []step {
	for i := 0; i < n; i++ {
		steps = append(steps, step{pending: true, x: x, y: y})
	}
	return steps
}

// quiet appends n polls with nothing pending.
func quiet(steps []step, n int) []step {
	for i := 0; i < n; i++ {
		steps = append(steps, step{})
	}
	return steps
}

// fakeClock freezes the panel's notion of time and turns sleeps into clock
// advances plus a staleness tick, so tests drive the timeout deterministically.
func fakeClock(p *Panel) *time.Time {
	now := time.Unix(0, 0)
	p.now = func() time.Time { return now }
	p.sleep = func(d time.Duration) {
		now = now.Add(d)
		p.Tick()
	}
	p.lastTouch = now
	return &now
}

func identityMatrix() Matrix {
	return Matrix{An: 1, En: 1, Divider: 1}
}

func TestTrimmedMean(t *testing.T) {
	c := qt.New(t)

	// Shuffled 1..16: the sorted middle span is 4..12, summing to 72, and the
	// float divide lands on exactly 9.
	x := [BufSize]int{7, 16, 2, 9, 1, 12, 5, 14, 3, 10, 8, 15, 4, 11, 6, 13}
	c.Assert(trimmedMean(&x), qt.Equals, 9)

	// Shuffled 101..116: middle span sums to 972, divided down to 121.5 and
	// truncated.
	y := [BufSize]int{107, 116, 102, 109, 101, 112, 105, 114, 103, 110, 108, 115, 104, 111, 106, 113}
	c.Assert(trimmedMean(&y), qt.Equals, 121)

	// Constant window: nine mid-span samples over a divisor of eight.
	v := [BufSize]int{}
	for i := range v {
		v[i] = 160
	}
	c.Assert(trimmedMean(&v), qt.Equals, 180)
}

func TestInsertionSort(t *testing.T) {
	c := qt.New(t)

	buf := []int{5, 3, 8, 1, 9, 2, 7, 4, 6, 0}
	insertionSort(buf)
	c.Assert(buf, qt.DeepEquals, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	dup := []int{3, 1, 3, 1, 3}
	insertionSort(dup)
	c.Assert(dup, qt.DeepEquals, []int{1, 1, 3, 3, 3})
}

func TestStateString(t *testing.T) {
	c := qt.New(t)

	c.Assert(StateNoCal.String(), qt.Equals, "no_cal")
	c.Assert(StateNone.String(), qt.Equals, "no_touch")
	c.Assert(StateTouch.String(), qt.Equals, "touch")
	c.Assert(StateHeld.String(), qt.Equals, "held")
	c.Assert(StateRelease.String(), qt.Equals, "release")
	c.Assert(State(99).String(), qt.Equals, "invalid")

	c.Assert(StateTouch.Touched(), qt.IsTrue)
	c.Assert(StateHeld.Touched(), qt.IsTrue)
	c.Assert(StateNone.Touched(), qt.IsFalse)
	c.Assert(StateRelease.Touched(), qt.IsFalse)
}

func TestReadRaw(t *testing.T) {
	c := qt.New(t)

	src := &scriptSampler{steps: touches(nil, 1, 300, 700)}
	p := NewPanel(src)
	fakeClock(p)

	x, y, s, err := p.ReadRaw()
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Equals, StateTouch)
	c.Assert(x, qt.Equals, 300)
	c.Assert(y, qt.Equals, 700)

	_, _, s, err = p.ReadRaw()
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Equals, StateNone)
}

func TestReadFilteredGesture(t *testing.T) {
	c := qt.New(t)

	// 17 pending polls: one full window plus one extra sample into the next.
	src := &scriptSampler{steps: touches(nil, BufSize+1, 500, 600)}
	p := NewPanel(src)
	now := fakeClock(p)
	c.Assert(p.SetMatrix(identityMatrix()), qt.IsNil)

	// Filling the first window reports no touch and zero coordinates.
	for i := 0; i < BufSize-1; i++ {
		x, y, s, err := p.ReadFiltered()
		c.Assert(err, qt.IsNil)
		c.Assert(s, qt.Equals, StateNone)
		c.Assert(x, qt.Equals, 0)
		c.Assert(y, qt.Equals, 0)
	}

	// The window completes: first contact with the trimmed-mean average.
	x, y, s, err := p.ReadFiltered()
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Equals, StateTouch)
	c.Assert(x, qt.Equals, 562)
	c.Assert(y, qt.Equals, 675)

	// Next window filling while touched: held, replaying the last average.
	x, y, s, err = p.ReadFiltered()
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Equals, StateHeld)
	c.Assert(x, qt.Equals, 562)
	c.Assert(y, qt.Equals, 675)

	// Nothing pending while touched: still held.
	_, _, s, err = p.ReadFiltered()
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Equals, StateHeld)

	// Staleness: no sample for longer than the timeout forces a release.
	*now = now.Add(101 * time.Millisecond)
	p.Tick()

	_, _, s, err = p.ReadFiltered()
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Equals, StateRelease)

	// The release is reported exactly once.
	_, _, s, err = p.ReadFiltered()
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Equals, StateNone)
}

func TestReadWithoutCalibration(t *testing.T) {
	c := qt.New(t)

	src := &scriptSampler{steps: touches(nil, BufSize, 500, 600)}
	p := NewPanel(src)
	fakeClock(p)

	var s State
	var err error
	for i := 0; i < BufSize; i++ {
		_, s, err = p.Read()
		c.Assert(err, qt.IsNil)
	}
	// The window completed but no matrix is installed.
	c.Assert(s, qt.Equals, StateNoCal)
}

func TestReadCalibrated(t *testing.T) {
	c := qt.New(t)

	src := &scriptSampler{steps: touches(nil, BufSize, 500, 600)}
	p := NewPanel(src)
	fakeClock(p)
	c.Assert(p.SetMatrix(identityMatrix()), qt.IsNil)

	var pt Point
	var s State
	var err error
	for i := 0; i < BufSize; i++ {
		pt, s, err = p.Read()
		c.Assert(err, qt.IsNil)
	}
	c.Assert(s, qt.Equals, StateTouch)
	c.Assert(pt, qt.Equals, Point{X: 562, Y: 675})
}

func TestWaitPoint(t *testing.T) {
	c := qt.New(t)

	steps := quiet(nil, 3)
	steps = touches(steps, BufSize, 400, 200)
	src := &scriptSampler{steps: steps}
	p := NewPanel(src)
	fakeClock(p)
	c.Assert(p.SetMatrix(identityMatrix()), qt.IsNil)

	pt, s, err := p.WaitPoint(nil)
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Equals, StateTouch)
	c.Assert(pt, qt.Equals, Point{X: 450, Y: 225})
}

func TestWaitPointAbort(t *testing.T) {
	c := qt.New(t)

	p := NewPanel(&scriptSampler{})
	fakeClock(p)
	c.Assert(p.SetMatrix(identityMatrix()), qt.IsNil)

	_, _, err := p.WaitPoint(func() bool { return true })
	c.Assert(err, qt.ErrorIs, ErrAborted)
}

func TestSamplerErrorPropagates(t *testing.T) {
	c := qt.New(t)

	boom := errors.New("bus fault")
	p := NewPanel(&scriptSampler{err: boom})
	fakeClock(p)

	_, _, _, err := p.ReadFiltered()
	c.Assert(err, qt.ErrorIs, boom)
	_, _, _, err = p.ReadRaw()
	c.Assert(err, qt.ErrorIs, boom)
}

func TestSetMatrix(t *testing.T) {
	c := qt.New(t)

	p := NewPanel(&scriptSampler{})
	fakeClock(p)

	c.Assert(p.SetMatrix(Matrix{}), qt.ErrorIs, ErrBadMatrix)
	c.Assert(p.Matrix().Valid(), qt.IsFalse)

	m := identityMatrix()
	c.Assert(p.SetMatrix(m), qt.IsNil)
	c.Assert(p.Matrix(), qt.Equals, m)
}

func TestStartStop(t *testing.T) {
	// Smoke test: the tick goroutine starts and stops cleanly.
	p := NewPanel(&scriptSampler{})
	p.Start(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	p.Stop()
	p.Stop() // idempotent
}
