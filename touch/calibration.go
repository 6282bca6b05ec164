package touch

import (
	"encoding/binary"
	"time"
)

// Matrix is the affine calibration between raw touch-sensor coordinates and
// display pixel coordinates:
//
//	Xd = (An*Xs + Bn*Ys + Cn) / Divider
//	Yd = (Dn*Xs + En*Ys + Fn) / Divider
//
// A zero Divider marks the matrix as invalid. The integer math is exact for
// digitizer resolutions up to 10 bits; wider ADCs need 64-bit coefficients or
// rescaled inputs.
//
// The derivation follows the public-domain 3-point calibration by
// Carlos E. Vidales (Embedded Systems Programming, 2002).
type Matrix struct {
	An, Bn, Cn int32
	Dn, En, Fn int32
	Divider    int32
}

// matrixSize is the serialized size: seven little-endian int32 values in
// field order, compatible with calibration files written by the C driver.
const matrixSize = 28

// Valid reports whether the matrix can be applied.
func (m Matrix) Valid() bool { return m.Divider != 0 }

// Transform applies the matrix to a raw sample pair. Division truncates
// toward zero. All terms are summed before dividing so no remainder is
// rounded off prematurely.
func (m Matrix) Transform(x, y int) (Point, error) {
	if m.Divider == 0 {
		return Point{}, ErrNoCalibration
	}
	return Point{
		X: int((m.An*int32(x) + m.Bn*int32(y) + m.Cn) / m.Divider),
		Y: int((m.Dn*int32(x) + m.En*int32(y) + m.Fn) / m.Divider),
	}, nil
}

// MarshalBinary serializes the matrix in the on-disk layout.
func (m Matrix) MarshalBinary() ([]byte, error) {
	buf := make([]byte, matrixSize)
	for i, v := range [7]int32{m.An, m.Bn, m.Cn, m.Dn, m.En, m.Fn, m.Divider} {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
	}
	return buf, nil
}

// UnmarshalBinary restores a matrix from its on-disk layout. A restored
// matrix with a zero divider is rejected.
func (m *Matrix) UnmarshalBinary(data []byte) error {
	if len(data) != matrixSize {
		return ErrBadMatrix
	}
	var v [7]int32
	for i := range v {
		v[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
	}
	if v[6] == 0 {
		return ErrBadMatrix
	}
	*m = Matrix{An: v[0], Bn: v[1], Cn: v[2], Dn: v[3], En: v[4], Fn: v[5], Divider: v[6]}
	return nil
}

// Solve computes the calibration matrix from three display points and the
// raw sample points observed while touching them. The three sample points
// must not be collinear or the system is degenerate.
func Solve(display, sample [3]Point) (Matrix, error) {
	var m Matrix

	m.Divider = int32(((sample[0].X-sample[2].X)*(sample[1].Y-sample[2].Y) -
		(sample[1].X-sample[2].X)*(sample[0].Y-sample[2].Y)))
	if m.Divider == 0 {
		return Matrix{}, ErrCollinear
	}

	m.An = int32((display[0].X-display[2].X)*(sample[1].Y-sample[2].Y) -
		(display[1].X-display[2].X)*(sample[0].Y-sample[2].Y))

	m.Bn = int32((sample[0].X-sample[2].X)*(display[1].X-display[2].X) -
		(display[0].X-display[2].X)*(sample[1].X-sample[2].X))

	m.Cn = int32((sample[2].X*display[1].X-sample[1].X*display[2].X)*sample[0].Y +
		(sample[0].X*display[2].X-sample[2].X*display[0].X)*sample[1].Y +
		(sample[1].X*display[0].X-sample[0].X*display[1].X)*sample[2].Y)

	m.Dn = int32((display[0].Y-display[2].Y)*(sample[1].Y-sample[2].Y) -
		(display[1].Y-display[2].Y)*(sample[0].Y-sample[2].Y))

	m.En = int32((sample[0].X-sample[2].X)*(display[1].Y-display[2].Y) -
		(display[0].Y-display[2].Y)*(sample[1].X-sample[2].X))

	m.Fn = int32((sample[2].X*display[1].Y-sample[1].X*display[2].Y)*sample[0].Y +
		(sample[0].X*display[2].Y-sample[2].X*display[0].Y)*sample[1].Y +
		(sample[1].X*display[0].Y-sample[0].X*display[1].Y)*sample[2].Y)

	return m, nil
}

// TargetDisplay draws and clears calibration targets. The display is also the
// source of the screen dimensions the targets are placed on.
type TargetDisplay interface {
	// Size returns the display dimensions in pixels.
	Size() (w, h int)
	// ShowTarget draws a calibration target centered at (x, y).
	ShowTarget(x, y int) error
	// ClearTarget erases the calibration target at (x, y).
	ClearTarget(x, y int) error
}

// calibrationTargets returns the three reference points: top-left,
// right-middle and bottom-center, each inset 50 pixels from the edges.
func calibrationTargets(w, h int) [3]Point {
	return [3]Point{
		{X: 50, Y: 50},
		{X: w - 50, Y: h / 2},
		{X: w / 2, Y: h - 50},
	}
}

// Calibrate runs the interactive 3-point calibration ritual.
//
// For each target in turn it waits for a touch, records the filtered raw
// sample, then waits for the release. The whole ritual shares one wall-clock
// budget; exceeding it returns ErrTimeout with the previous calibration left
// untouched. The idle callback, when non-nil, runs at least once per poll
// iteration; returning true aborts immediately with ErrAborted.
//
// The staleness tick must be running (see Start) so that lifted touches
// decay to release between targets.
//
// On success the solved matrix is installed on the panel and returned.
func (p *Panel) Calibrate(disp TargetDisplay, timeout time.Duration, idle func() bool) (Matrix, error) {
	w, h := disp.Size()
	targets := calibrationTargets(w, h)
	var samples [3]Point

	deadline := p.now().Add(timeout)

	// Drain any touch in progress before presenting the first target.
	if _, _, err := p.waitTouchState(false, deadline, idle); err != nil {
		return Matrix{}, err
	}

	for i, tgt := range targets {
		if err := disp.ShowTarget(tgt.X, tgt.Y); err != nil {
			return Matrix{}, err
		}
		x, y, err := p.waitTouchState(true, deadline, idle)
		if err != nil {
			return Matrix{}, err
		}
		samples[i] = Point{X: x, Y: y}
		if err := disp.ClearTarget(tgt.X, tgt.Y); err != nil {
			return Matrix{}, err
		}
		if _, _, err := p.waitTouchState(false, deadline, idle); err != nil {
			return Matrix{}, err
		}
	}

	m, err := Solve(targets, samples)
	if err != nil {
		return Matrix{}, err
	}
	if err := p.SetMatrix(m); err != nil {
		return Matrix{}, err
	}
	return m, nil
}

// waitTouchState polls the filter until the touched condition matches want
// and returns the last filtered coordinates. It fails when the deadline
// passes (ErrTimeout) or the idle callback aborts (ErrAborted).
func (p *Panel) waitTouchState(want bool, deadline time.Time, idle func() bool) (x, y int, err error) {
	for {
		x, y, s, err := p.ReadFiltered()
		if err != nil {
			return 0, 0, err
		}
		if s.Touched() == want {
			return x, y, nil
		}
		if !p.now().Before(deadline) {
			return 0, 0, ErrTimeout
		}
		if idle != nil && idle() {
			return 0, 0, ErrAborted
		}
		p.sleep(idleWait)
	}
}
