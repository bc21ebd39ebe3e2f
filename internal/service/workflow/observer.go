package workflow

import (
	"time"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

// Observer receives workflow events for metrics.
type Observer interface {
	StepCompleted(step core.Step, branch core.Branch, d time.Duration)
	Degraded(step core.Step, err error)
	QuestionAnswered(r core.Result, repairs int, d time.Duration)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) StepCompleted(core.Step, core.Branch, time.Duration) {}
func (NopObserver) Degraded(core.Step, error) {}
func (NopObserver) QuestionAnswered(core.Result, int, time.Duration) {}
