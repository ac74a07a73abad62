package fsm

import "github.com/librescoot/librefsm"

// NewDefinition creates the hub mode FSM. Every mode is reachable from every
// other mode; there is no transition for the current mode's own event, so a
// redundant mode change is a no-op at the machine level.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateDemo,
			librefsm.WithOnEnter(actions.EnterDemo),
		).
		State(StateField,
			librefsm.WithOnEnter(actions.EnterField),
		).
		State(StateRobotTeleop,
			librefsm.WithOnEnter(actions.EnterRobotTeleop),
		).
		State(StateRobotPractice,
			librefsm.WithOnEnter(actions.EnterRobotPractice),
		).

		// From Demo
		Transition(StateDemo, EvSetField, StateField).
		Transition(StateDemo, EvSetRobotTeleop, StateRobotTeleop).
		Transition(StateDemo, EvSetRobotPractice, StateRobotPractice).

		// From Field
		Transition(StateField, EvSetDemo, StateDemo).
		Transition(StateField, EvSetRobotTeleop, StateRobotTeleop).
		Transition(StateField, EvSetRobotPractice, StateRobotPractice).

		// From RobotTeleop
		Transition(StateRobotTeleop, EvSetDemo, StateDemo).
		Transition(StateRobotTeleop, EvSetField, StateField).
		Transition(StateRobotTeleop, EvSetRobotPractice, StateRobotPractice).

		// From RobotPractice
		Transition(StateRobotPractice, EvSetDemo, StateDemo).
		Transition(StateRobotPractice, EvSetField, StateField).
		Transition(StateRobotPractice, EvSetRobotTeleop, StateRobotTeleop).

		// Hubs power up in demo mode; the persisted mode is restored on start.
		Initial(StateDemo)
}

// EventForState maps a mode state to the event that enters it.
func EventForState(state librefsm.StateID) (librefsm.EventID, bool) {
	switch state {
	case StateDemo:
		return EvSetDemo, true
	case StateField:
		return EvSetField, true
	case StateRobotTeleop:
		return EvSetRobotTeleop, true
	case StateRobotPractice:
		return EvSetRobotPractice, true
	}
	return "", false
}
