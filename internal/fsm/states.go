package fsm

import "github.com/librescoot/librefsm"

// Hub operating modes
const (
	StateDemo          librefsm.StateID = "demo"
	StateField         librefsm.StateID = "field"
	StateRobotTeleop   librefsm.StateID = "robot_teleop"
	StateRobotPractice librefsm.StateID = "robot_practice"
)

// Mode change events (from the dashboard or the persisted state file)
const (
	EvSetDemo          librefsm.EventID = "set-demo"
	EvSetField         librefsm.EventID = "set-field"
	EvSetRobotTeleop   librefsm.EventID = "set-robot-teleop"
	EvSetRobotPractice librefsm.EventID = "set-robot-practice"
)
