/*
Package route
File: route.go
Description:
    PlannedRoute is the ordered list of segment-to-segment steps a rider intends
    to follow, plus the progression cursor that tracks where the rider is on it.

    The cursor only ever moves forward by one step, and only when the rider enters
    the segment the current step says comes next. Anything else is a contract
    violation reported to the caller, never silently corrected.
*/

package route

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/everforgeworks/roadnav/internal/segment"
)

var ErrNavigationContract = errors.New("navigation contract violated")

// ContractError describes an EnteredSegment call with an id that is not the legal next step.
type ContractError struct {
	Step     int
	Expected string
	Got      string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("step %d: expected segment %q, entered %q", e.Step, e.Expected, e.Got)
}

func (e *ContractError) Unwrap() error { return ErrNavigationContract }

// MissingSegmentError is returned when a route references a segment that is not loaded.
type MissingSegmentError struct {
	SegmentID string
}

func (e *MissingSegmentError) Error() string {
	return fmt.Sprintf("route references segment %s which is not in the loaded segments", e.SegmentID)
}

// SegmentSequence is one step of a route.
// An empty NextSegmentID marks the terminal step.
type SegmentSequence struct {
	SegmentID     string                `json:"segment" yaml:"segment"`
	TurnToNext    segment.TurnDirection `json:"turn" yaml:"turn"`
	NextSegmentID string                `json:"next,omitempty" yaml:"next,omitempty"`
	Direction     segment.Direction     `json:"direction" yaml:"direction"`
}

// IsTerminal reports whether the step has no successor.
func (s SegmentSequence) IsTerminal() bool { return s.NextSegmentID == "" }

// Transition is the observable outcome of EnteredSegment.
type Transition int

const (
	Started Transition = iota + 1
	Advanced
	Completed
	// Looped means a lap was completed. The cursor stays on the last step,
	// whose turn leads back to the first, until the rider enters the first
	// segment and the next lap starts.
	Looped
)

func (t Transition) String() string {
	switch t {
	case Started:
		return "started"
	case Advanced:
		return "advanced"
	case Completed:
		return "completed"
	case Looped:
		return "looped"
	default:
		return "none"
	}
}

type PlannedRoute struct {
	ID       string
	Name     string
	World    string
	Sport    string
	Loop     bool
	Sequence []SegmentSequence

	segmentIndex int
	hasStarted   bool
	hasCompleted bool
	lapCompleted bool
}

// New creates an unstarted route. It fails for an empty sequence.
func New(name string, sequence []SegmentSequence) (*PlannedRoute, error) {
	if len(sequence) == 0 {
		return nil, fmt.Errorf("route %q has no steps", name)
	}
	return &PlannedRoute{
		ID:       uuid.NewString(),
		Name:     name,
		Sequence: sequence,
	}, nil
}

func (r *PlannedRoute) SegmentIndex() int  { return r.segmentIndex }
func (r *PlannedRoute) HasStarted() bool   { return r.hasStarted }
func (r *PlannedRoute) HasCompleted() bool { return r.hasCompleted }

// LapCompleted reports whether a loop route finished its lap and waits for the
// rider to come back to the first segment.
func (r *PlannedRoute) LapCompleted() bool { return r.lapCompleted }

// Current returns the step under the cursor.
func (r *PlannedRoute) Current() SegmentSequence { return r.Sequence[r.segmentIndex] }

func (r *PlannedRoute) First() SegmentSequence { return r.Sequence[0] }

func (r *PlannedRoute) Last() SegmentSequence { return r.Sequence[len(r.Sequence)-1] }

// IsLoop reports whether the route repeats: loop mode is on and the last step leads back to the first.
func (r *PlannedRoute) IsLoop() bool {
	return r.Loop && r.Last().NextSegmentID == r.First().SegmentID
}

// Expected returns the one segment id EnteredSegment currently accepts.
func (r *PlannedRoute) Expected() string {
	if !r.hasStarted {
		return r.First().SegmentID
	}
	return r.Current().NextSegmentID
}

// EnteredSegment advances the route when the rider enters segmentID.
func (r *PlannedRoute) EnteredSegment(segmentID string) (Transition, error) {
	if !r.hasStarted {
		if segmentID != r.First().SegmentID {
			return 0, &ContractError{Step: 0, Expected: r.First().SegmentID, Got: segmentID}
		}
		r.hasStarted = true
		if len(r.Sequence) == 1 {
			return r.complete(), nil
		}
		return Started, nil
	}

	current := r.Current()
	if current.IsTerminal() || r.hasCompleted || segmentID != current.NextSegmentID {
		return 0, &ContractError{Step: r.segmentIndex, Expected: current.NextSegmentID, Got: segmentID}
	}
	if r.lapCompleted {
		r.Reset()
		return r.EnteredSegment(segmentID)
	}

	r.segmentIndex++
	if r.segmentIndex == len(r.Sequence)-1 {
		return r.complete(), nil
	}
	return Advanced, nil
}

func (r *PlannedRoute) complete() Transition {
	if r.IsLoop() {
		r.lapCompleted = true
		return Looped
	}
	r.hasCompleted = true
	return Completed
}

// Reset moves the cursor back to the first step and clears the progress flags.
func (r *PlannedRoute) Reset() {
	r.segmentIndex = 0
	r.hasStarted = false
	r.hasCompleted = false
	r.lapCompleted = false
}

// Validate checks the route against a loaded graph. It fails with a MissingSegmentError
// for the first unknown segment id and with a descriptive error for steps whose next
// segment cannot be reached from the step's segment.
func (r *PlannedRoute) Validate(g *segment.Graph) error {
	for i, step := range r.Sequence {
		seg, ok := g.Segment(step.SegmentID)
		if !ok {
			return &MissingSegmentError{SegmentID: step.SegmentID}
		}
		if step.IsTerminal() {
			if i != len(r.Sequence)-1 {
				return fmt.Errorf("step %d (%s) has no next segment but is not the last step", i, step.SegmentID)
			}
			continue
		}
		if _, ok := g.Segment(step.NextSegmentID); !ok {
			return &MissingSegmentError{SegmentID: step.NextSegmentID}
		}
		if i < len(r.Sequence)-1 && r.Sequence[i+1].SegmentID != step.NextSegmentID {
			return fmt.Errorf("step %d leads to %s but step %d is %s", i, step.NextSegmentID, i+1, r.Sequence[i+1].SegmentID)
		}
		if step.Direction == segment.DirectionUnknown {
			continue
		}
		turn, ok := segment.TurnTo(seg, step.Direction, step.NextSegmentID)
		if !ok {
			return fmt.Errorf("step %d: %s is not reachable from %s travelling %s", i, step.NextSegmentID, step.SegmentID, step.Direction)
		}
		if step.TurnToNext != segment.TurnNone && turn != step.TurnToNext {
			return fmt.Errorf("step %d: turn to %s is %s, route says %s", i, step.NextSegmentID, turn, step.TurnToNext)
		}
	}
	return nil
}
