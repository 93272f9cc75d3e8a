// Package kernel implements the probability kernel: a pure function from a rally
// state and the two teams' stats to a distribution over the next state. It holds
// no RNG and no mutable state; sampling from the returned distribution is the
// caller's job (internal/rally).
package kernel

import "github.com/lox/rallysim/internal/team"

// StateKind tags a RallyState without requiring a type switch on payload.
type StateKind uint8

const (
	ServeAttempt StateKind = iota
	ServeInPlay
	ReceptionPerfect
	ReceptionGood
	ReceptionPoor
	SetPerfect
	SetGood
	SetPoor
	AttackDefended
	PointFor // terminal; Winner field holds the team
)

func (k StateKind) String() string {
	switch k {
	case ServeAttempt:
		return "ServeAttempt"
	case ServeInPlay:
		return "ServeInPlay"
	case ReceptionPerfect:
		return "ReceptionPerfect"
	case ReceptionGood:
		return "ReceptionGood"
	case ReceptionPoor:
		return "ReceptionPoor"
	case SetPerfect:
		return "SetPerfect"
	case SetGood:
		return "SetGood"
	case SetPoor:
		return "SetPoor"
	case AttackDefended:
		return "AttackDefended"
	case PointFor:
		return "PointFor"
	default:
		return "Unknown"
	}
}

// RallyState is a single point in the finite state machine. Non-terminal
// states carry no payload beyond Kind; PointFor carries the winning team.
type RallyState struct {
	Kind   StateKind
	Winner team.ID // only meaningful when Kind == PointFor
}

func (s RallyState) Terminal() bool { return s.Kind == PointFor }

func (s RallyState) String() string {
	if s.Kind == PointFor {
		return "PointFor(" + s.Winner.String() + ")"
	}
	return s.Kind.String()
}

// Point constructs a terminal state awarding the point to the given team.
func Point(winner team.ID) RallyState { return RallyState{Kind: PointFor, Winner: winner} }

// receptionQuality maps a reception state to the Quality key used to index
// the conditional model's reception->set row.
func receptionQuality(k StateKind) team.Quality {
	switch k {
	case ReceptionPerfect:
		return team.QualityPerfect
	case ReceptionGood:
		return team.QualityGood
	default:
		return team.QualityPoor
	}
}

// setQuality maps a set state to the Quality key used to index the
// conditional model's set->attack row.
func setQuality(k StateKind) team.Quality {
	switch k {
	case SetPerfect:
		return team.QualityPerfect
	case SetGood:
		return team.QualityGood
	default:
		return team.QualityPoor
	}
}

func receptionState(q team.Quality) RallyState {
	switch q {
	case team.QualityPerfect:
		return RallyState{Kind: ReceptionPerfect}
	case team.QualityGood:
		return RallyState{Kind: ReceptionGood}
	default:
		return RallyState{Kind: ReceptionPoor}
	}
}

func setState(q team.Quality) RallyState {
	switch q {
	case team.QualityPerfect:
		return RallyState{Kind: SetPerfect}
	case team.QualityGood:
		return RallyState{Kind: SetGood}
	default:
		return RallyState{Kind: SetPoor}
	}
}
