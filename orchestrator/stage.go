package orchestrator

import "log"

// stageLog logs "Stage N: description" transitions the way the
// teacher's exploit scripts log stages, minus the interactive
// Goto/pause behavior - a fuzzing loop runs unattended, so there is no
// operator at a terminal to resume it.
type stageLog struct {
	logger *log.Logger

	num      int
	prevDesc string
}

// next advances to the next stage, logging the previous stage's
// completion before announcing the new one.
func (o *stageLog) next(description string) {
	logger := o.logger
	if logger == nil {
		logger = log.Default()
	}

	if o.num > 0 {
		logger.Printf("completed stage %d: %s", o.num, o.prevDesc)
	}

	o.num++
	o.prevDesc = description

	logger.Printf("starting stage %d: %s", o.num, description)
}
