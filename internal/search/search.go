// Package search implements the threshold escalation loop that drives
// repeated binarize/register/validate attempts for a single image pair.
//
// Binarizing adjacent cross-sections at a fixed pair of thresholds can over-
// or under-segment one of the two images, which shows up downstream as an
// implausible scale factor in the fitted transform. The search compensates
// by moving the two thresholds toward each other in lockstep: the reference
// threshold sweeps down while the target threshold sweeps up, one symmetric
// delta per attempt, until the recovered scale is plausible or the schedule
// is exhausted. The sweep is deliberately one-dimensional rather than a 2D
// grid: it keeps the run deterministic and bounded.
package search

import (
	"fmt"

	"section-aligner/pkg/geometry"
)

// ThresholdPair holds the binarization thresholds for one attempt.
type ThresholdPair struct {
	Reference int
	Target    int
}

// Offset returns the candidate pair at the given delta: the reference
// threshold moves down, the target threshold moves up.
func (p ThresholdPair) Offset(delta int) ThresholdPair {
	return ThresholdPair{Reference: p.Reference - delta, Target: p.Target + delta}
}

func (p ThresholdPair) String() string {
	return fmt.Sprintf("ref=%d tgt=%d", p.Reference, p.Target)
}

// Bounds is the acceptable range for a recovered scale factor.
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether the scale lies within the bounds, inclusive.
func (b Bounds) Contains(scale float64) bool {
	return b.Min <= scale && scale <= b.Max
}

// Config controls the escalation schedule.
type Config struct {
	Step      int // threshold change per escalation, must be positive
	MaxChange int // largest delta tried, inclusive
}

// Validate rejects schedules that cannot run. A zero or negative step would
// never terminate; a negative max change would skip even the first attempt.
func (c Config) Validate() error {
	if c.Step <= 0 {
		return fmt.Errorf("search: step must be positive, got %d", c.Step)
	}
	if c.MaxChange < 0 {
		return fmt.Errorf("search: max change must not be negative, got %d", c.MaxChange)
	}
	return nil
}

// State is the terminal state of a search.
type State int

const (
	// Accepted means an attempt produced a transform with an in-bounds scale.
	Accepted State = iota
	// Exhausted means every delta in the schedule was tried without success.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Attempt records a single binarize/register/validate evaluation.
type Attempt struct {
	Thresholds  ThresholdPair
	Delta       int
	Transform   geometry.AffineTransform
	Scale       float64
	RotationDeg float64
	Err         error // non-nil when binarization or registration rejected the attempt
	Accepted    bool
}

// Result is the terminal outcome of a search for one image pair.
type Result struct {
	State     State
	Attempt   Attempt // populated when State == Accepted
	LastDelta int     // largest delta actually evaluated
	Trace     []Attempt
}

// Evaluator runs one binarize+register attempt at the candidate thresholds
// and returns the fitted transform. Errors are treated as rejections, not
// failures: the search continues with the next delta. Implementations must
// be deterministic for fixed inputs, otherwise retry semantics are
// meaningless.
type Evaluator func(ThresholdPair) (geometry.AffineTransform, error)

// Run sweeps the escalation schedule until an attempt yields an in-bounds
// scale factor or the schedule is exhausted. The first acceptable attempt
// wins; no further deltas are evaluated after it. cfg must have passed
// Validate.
func Run(cfg Config, base ThresholdPair, bounds Bounds, eval Evaluator) Result {
	var res Result

	for delta := 0; ; delta += cfg.Step {
		if delta > cfg.MaxChange {
			res.State = Exhausted
			return res
		}

		att := Attempt{Thresholds: base.Offset(delta), Delta: delta}

		// Out-of-range candidates are not clamped here; the binarizer
		// rejects them and the attempt counts as a failed one.
		tr, err := eval(att.Thresholds)
		if err != nil {
			att.Err = err
		} else {
			att.Transform = tr
			att.Scale = tr.ScaleFactor()
			att.RotationDeg = tr.RotationDegrees()
			att.Accepted = bounds.Contains(att.Scale)
		}

		res.LastDelta = delta
		res.Trace = append(res.Trace, att)

		if att.Accepted {
			res.State = Accepted
			res.Attempt = att
			return res
		}
	}
}
