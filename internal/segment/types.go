/*
Package segment
File: types.go
Description:
    Value types of the road network: travel direction along a segment,
    turn directions at segment ends and the Turn adjacency entry.
*/

package segment

import (
	"fmt"
	"strings"
)

// Direction is the direction of travel along a segment.
type Direction int

const (
	DirectionUnknown Direction = iota
	AtoB
	BtoA
)

func (d Direction) String() string {
	switch d {
	case AtoB:
		return "AtoB"
	case BtoA:
		return "BtoA"
	default:
		return "Unknown"
	}
}

// Reverse returns the opposite direction. Unknown stays Unknown.
func (d Direction) Reverse() Direction {
	switch d {
	case AtoB:
		return BtoA
	case BtoA:
		return AtoB
	default:
		return DirectionUnknown
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "atob":
		*d = AtoB
	case "btoa":
		*d = BtoA
	case "", "unknown":
		*d = DirectionUnknown
	default:
		return fmt.Errorf("invalid direction %q", text)
	}
	return nil
}

// TurnDirection is the choice a rider makes at the end of a segment.
type TurnDirection int

const (
	TurnNone TurnDirection = iota
	TurnLeft
	TurnRight
	GoStraight
)

func (t TurnDirection) String() string {
	switch t {
	case TurnLeft:
		return "Left"
	case TurnRight:
		return "Right"
	case GoStraight:
		return "GoStraight"
	default:
		return "None"
	}
}

func (t TurnDirection) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TurnDirection) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "left":
		*t = TurnLeft
	case "right":
		*t = TurnRight
	case "gostraight", "straight":
		*t = GoStraight
	case "", "none":
		*t = TurnNone
	default:
		return fmt.Errorf("invalid turn direction %q", text)
	}
	return nil
}

// Turn is one outgoing connection at a segment end. Turns are compared by value.
type Turn struct {
	Direction TurnDirection `json:"direction" yaml:"direction"`
	SegmentID string        `json:"segment" yaml:"segment"`
}

func (t Turn) String() string {
	return fmt.Sprintf("%s->%s", t.Direction, t.SegmentID)
}

// Directions returns the distinct turn directions of the given turns, in order of first appearance.
func Directions(turns []Turn) []TurnDirection {
	var out []TurnDirection
	seen := map[TurnDirection]bool{}
	for _, t := range turns {
		if !seen[t.Direction] {
			seen[t.Direction] = true
			out = append(out, t.Direction)
		}
	}
	return out
}
