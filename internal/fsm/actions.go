package fsm

import "github.com/librescoot/librefsm"

// Actions is implemented by the hub orchestrator. Each mode's entry action
// reconciles the adapter set: it starts what the new mode needs and stops
// what it doesn't, so transitions between any two modes behave the same.
type Actions interface {
	EnterDemo(c *librefsm.Context) error
	EnterField(c *librefsm.Context) error
	EnterRobotTeleop(c *librefsm.Context) error
	EnterRobotPractice(c *librefsm.Context) error
}
