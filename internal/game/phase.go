package game

import "fmt"

type transition string

const (
	opStart       transition = "start"
	opNext        transition = "next"
	opBeginVoting transition = "beginVoting"
	opComplete    transition = "complete"
	opEnd         transition = "end"
)

// transitions lists, per source phase, the operations allowed to leave it.
// completed only admits end, which is a no-op there.
var transitions = map[Phase]map[transition]bool{
	PhaseWaiting: {
		opStart:    true,
		opNext:     true,
		opComplete: true,
		opEnd:      true,
	},
	PhaseActive: {
		opNext:        true,
		opBeginVoting: true,
		opComplete:    true,
		opEnd:         true,
	},
	PhaseVoting: {
		opComplete: true,
		opEnd:      true,
	},
	PhaseCompleted: {
		opEnd: true,
	},
}

func checkTransition(from Phase, op transition) error {
	if transitions[from][op] {
		return nil
	}
	return fmt.Errorf("%w: %s from %s", ErrInvalidPhase, op, from)
}

func (p Phase) Terminal() bool {
	return p == PhaseCompleted
}
