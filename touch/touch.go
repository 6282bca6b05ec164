// Package touch implements the resistive touch-panel pipeline for the RA8875:
// trimmed-mean filtering of raw ADC samples, the touch state machine, and the
// 3-point affine calibration that maps raw samples to display coordinates.
//
// A Panel owns one touch session. Raw samples come from a Sampler (normally
// the *ra8875.Dev); a periodic Tick drives the staleness timeout that turns a
// held touch into a release once samples stop arriving.
package touch

import (
	"errors"
	"sync"
	"time"
)

// BufSize is the filter window: the number of raw samples collected per axis
// before a filtered coordinate is produced.
const BufSize = 16

const (
	// noTouchTimeout is how long the panel may go without a pending sample
	// before the staleness tick forces a release.
	noTouchTimeout = 100 * time.Millisecond
	// TickInterval is the recommended period for driving Tick.
	TickInterval = time.Millisecond
	// idleWait is the poll cadence inside blocking waits.
	idleWait = 20 * time.Millisecond
)

// State is the touch state machine position.
type State uint8

const (
	// StateNoCal means no calibration matrix has been installed.
	StateNoCal State = iota
	// StateNone means no touch is detected.
	StateNone
	// StateTouch is the first filtered contact of a gesture.
	StateTouch
	// StateHeld follows StateTouch while contact persists.
	StateHeld
	// StateRelease is reported once after contact ends.
	StateRelease
)

func (s State) String() string {
	switch s {
	case StateNoCal:
		return "no_cal"
	case StateNone:
		return "no_touch"
	case StateTouch:
		return "touch"
	case StateHeld:
		return "held"
	case StateRelease:
		return "release"
	}
	return "invalid"
}

// Touched reports whether the state represents an active contact.
func (s State) Touched() bool { return s == StateTouch || s == StateHeld }

var (
	// ErrNoCalibration is returned when a calibrated read is attempted
	// without a valid matrix.
	ErrNoCalibration = errors.New("touch: no calibration matrix")
	// ErrBadMatrix rejects installing a matrix with a zero divider.
	ErrBadMatrix = errors.New("touch: invalid calibration matrix")
	// ErrCollinear rejects degenerate calibration points.
	ErrCollinear = errors.New("touch: calibration points are collinear")
	// ErrTimeout is returned when the calibration ritual exceeds its budget.
	ErrTimeout = errors.New("touch: calibration timed out")
	// ErrAborted is returned when the idle callback requests an abort.
	ErrAborted = errors.New("touch: aborted by idle callback")
)

// Point is a coordinate pair, in raw ADC units or display pixels depending on
// context.
type Point struct {
	X, Y int
}

// Sampler is the raw sample source: the touch ADC of the display controller.
type Sampler interface {
	// Pending reports whether an unread touch sample is waiting.
	Pending() (bool, error)
	// Sample reads one raw (x, y) pair and clears the pending flag.
	Sample() (x, y int, err error)
}

// Panel is a resistive touch session. All methods are safe for concurrent use;
// the state machine, sample buffers and staleness timer move as one unit under
// the panel mutex.
type Panel struct {
	mu  sync.Mutex
	src Sampler

	state        State
	xbuf, ybuf   [BufSize]int
	samples      int
	lastX, lastY int
	lastTouch    time.Time
	matrix       Matrix

	// Injection points for tests.
	now   func() time.Time
	sleep func(time.Duration)

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewPanel returns a Panel reading raw samples from src. The panel starts in
// StateNoCal; install a matrix with SetMatrix or run Calibrate.
func NewPanel(src Sampler) *Panel {
	p := &Panel{
		src:   src,
		state: StateNoCal,
		now:   time.Now,
		sleep: time.Sleep,
	}
	p.lastTouch = p.now()
	return p
}

// SetMatrix installs a calibration matrix. A zero divider marks the matrix as
// invalid and is rejected, leaving the previous calibration untouched.
func (p *Panel) SetMatrix(m Matrix) error {
	if m.Divider == 0 {
		return ErrBadMatrix
	}
	p.mu.Lock()
	p.matrix = m
	p.state = StateNone
	p.mu.Unlock()
	return nil
}

// Matrix returns the currently installed calibration matrix.
func (p *Panel) Matrix() Matrix {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.matrix
}

// Tick advances the staleness timer. It must be called periodically (see
// TickInterval); Start spawns a goroutine that does so.
func (p *Panel) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.now().Sub(p.lastTouch) > noTouchTimeout {
		p.samples = 0
		if p.state == StateHeld {
			p.state = StateRelease
		} else {
			p.state = StateNone
		}
		p.lastTouch = p.now()
	}
}

// Start launches the periodic staleness tick at the given interval.
func (p *Panel) Start(interval time.Duration) {
	if interval <= 0 {
		interval = TickInterval
	}
	p.stop = make(chan struct{})
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				p.Tick()
			case <-p.stop:
				return
			}
		}
	}()
}

// Stop halts the tick goroutine started by Start.
func (p *Panel) Stop() {
	if p.stop != nil {
		close(p.stop)
		p.wg.Wait()
		p.stop = nil
	}
}

// ReadRaw polls the sampler once and returns an unfiltered sample. The state
// moves to StateTouch when a sample was pending, StateNone otherwise.
func (p *Panel) ReadRaw() (x, y int, s State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pending, err := p.src.Pending()
	if err != nil {
		return 0, 0, p.state, err
	}
	if !pending {
		p.state = StateNone
		return 0, 0, p.state, nil
	}
	p.lastTouch = p.now()
	x, y, err = p.src.Sample()
	if err != nil {
		return 0, 0, p.state, err
	}
	p.state = StateTouch
	return x, y, p.state, nil
}

// ReadFiltered polls the sampler once and runs the filter window.
//
// Each call with a pending sample appends one raw pair to the window. When the
// window fills, both axes are sorted, the outer quartiles are discarded and
// the middle half is averaged; that average is reported and the window resets.
// While the window is filling, or when no sample is pending during an ongoing
// touch, the previous average is reported again so callers only ever see
// fully filtered coordinates.
func (p *Panel) ReadFiltered() (x, y int, s State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ret := p.state
	pending, err := p.src.Pending()
	if err != nil {
		return 0, 0, ret, err
	}
	if pending {
		p.lastTouch = p.now()
		rx, ry, err := p.src.Sample()
		if err != nil {
			return 0, 0, ret, err
		}
		p.xbuf[p.samples] = rx
		p.ybuf[p.samples] = ry
		p.samples++
		if p.samples == BufSize {
			p.lastX = trimmedMean(&p.xbuf)
			p.lastY = trimmedMean(&p.ybuf)
			if p.state.Touched() {
				p.state = StateHeld
			} else {
				p.state = StateTouch
			}
			ret = p.state
			p.samples = 0
		} else if p.state.Touched() {
			p.state = StateHeld
			ret = p.state
		}
		return p.lastX, p.lastY, ret, nil
	}

	switch {
	case p.state.Touched():
		p.state = StateHeld
		ret = p.state
	case p.state == StateRelease:
		ret = StateRelease
		p.state = StateNone
	}
	return p.lastX, p.lastY, ret, nil
}

// Read returns a calibrated display-space point. Without a valid matrix the
// state is StateNoCal and the point is zero.
func (p *Panel) Read() (Point, State, error) {
	x, y, s, err := p.ReadFiltered()
	if err != nil || !s.Touched() && s != StateRelease {
		return Point{}, s, err
	}
	p.mu.Lock()
	m := p.matrix
	p.mu.Unlock()
	pt, err := m.Transform(x, y)
	if errors.Is(err, ErrNoCalibration) {
		return Point{}, StateNoCal, nil
	}
	return pt, s, err
}

// WaitPoint blocks until a touch is reported and returns its calibrated
// coordinates. The idle callback, when non-nil, runs once per poll iteration;
// returning true aborts the wait.
func (p *Panel) WaitPoint(idle func() bool) (Point, State, error) {
	for {
		pt, s, err := p.Read()
		if err != nil || s != StateNone && s != StateNoCal {
			return pt, s, err
		}
		if idle != nil && idle() {
			return Point{}, StateNone, ErrAborted
		}
		p.sleep(idleWait)
	}
}

// trimmedMean sorts the window, discards the outer quartiles and averages the
// middle half. With BufSize 16 the summed span is indices 3 through 11 and the
// divisor is BufSize/2; the divide goes through float32. Calibration solves
// against values filtered the same way, so the slight upward bias cancels out.
func trimmedMean(buf *[BufSize]int) int {
	insertionSort(buf[:])
	sum := 0
	for i := BufSize/4 - 1; i < BufSize-BufSize/4; i++ {
		sum += buf[i]
	}
	return int(float32(sum) * 2 / BufSize)
}

// insertionSort sorts in place, ascending. Stable and cheap at this window
// size.
func insertionSort(buf []int) {
	for i := 1; i < len(buf); i++ {
		v := buf[i]
		j := i
		for j > 0 && buf[j-1] > v {
			buf[j] = buf[j-1]
			j--
		}
		buf[j] = v
	}
}
