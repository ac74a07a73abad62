package counter

// NullEngine is the no-hardware engine. Scoring events still reach the
// orchestrator through the simulated-event operator endpoint, which feeds the
// same queue the hardware engine would.
type NullEngine struct{}

func (NullEngine) Start(chan<- int) error { return nil }
func (NullEngine) Stop()                  {}
