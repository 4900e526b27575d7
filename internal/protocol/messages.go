/*
Package protocol
File: messages.go
Description:
    The wire format spoken between the game and the companion.

    Every frame is a 4-byte big-endian body length followed by the body.
    Inbound bodies start with a one-byte message kind:

        0x01 rider position      3 x float32 (engine X, Y, Z)
        0x02 command available   uint16 length + kind string, uint64 sequence
        0x03 power-up available  uint16 length + kind string
        0x04 ping                uint32 rider id

    Outbound bodies are plain text commands such as "ENDACTIVITY;<label>".
*/

package protocol

import (
	"fmt"

	"github.com/everforgeworks/roadnav/internal/segment"
)

// Kind is the first byte of an inbound frame body.
type Kind byte

const (
	KindRiderPosition    Kind = 0x01
	KindCommandAvailable Kind = 0x02
	KindPowerUpAvailable Kind = 0x03
	KindPing             Kind = 0x04
)

// Message is one decoded inbound message. The set of implementations is closed.
type Message interface {
	Kind() Kind
}

// RiderPosition carries the rider's raw engine position: X and Y across the
// map, Z up. They are engine-space values, not degrees.
type RiderPosition struct {
	X float32
	Y float32
	Z float32
}

// CommandAvailable announces that the game accepts a command, e.g. a turn, until the sequence moves on.
type CommandAvailable struct {
	Command  string
	Sequence uint64
}

type PowerUpAvailable struct {
	PowerUp string
}

// Ping is the keep-alive sent by the game.
type Ping struct {
	RiderID uint32
}

func (RiderPosition) Kind() Kind    { return KindRiderPosition }
func (CommandAvailable) Kind() Kind { return KindCommandAvailable }
func (PowerUpAvailable) Kind() Kind { return KindPowerUpAvailable }
func (Ping) Kind() Kind             { return KindPing }

// Commands the game announces through CommandAvailable.
const (
	CommandTurnLeft   = "TURN_LEFT"
	CommandTurnRight  = "TURN_RIGHT"
	CommandGoStraight = "GO_STRAIGHT"
)

// TurnForCommand maps an announced command to the turn it enables.
func TurnForCommand(command string) (segment.TurnDirection, bool) {
	switch command {
	case CommandTurnLeft:
		return segment.TurnLeft, true
	case CommandTurnRight:
		return segment.TurnRight, true
	case CommandGoStraight:
		return segment.GoStraight, true
	default:
		return segment.TurnNone, false
	}
}

// EndActivity is the outbound command that finishes the rider's activity.
func EndActivity(label string) string {
	return "ENDACTIVITY;" + label
}

// Turn is the outbound command that takes the given turn at the junction announced with sequence.
func Turn(direction segment.TurnDirection, sequence uint64) string {
	return fmt.Sprintf("TURN;%s;%d", direction, sequence)
}
