package services

// Metrics - счетчики, которые сервисы обновляют по ходу работы.
type Metrics interface {
	EventHandled(outcome string)
	IndexDispatched(target string, err error)
	SearchExecuted(scope string, hits int)
}

// Значения outcome для EventHandled.
const (
	OutcomeIndexed    = "indexed"
	OutcomeDropped    = "dropped"
	OutcomeIneligible = "ineligible"
	OutcomeSkipped    = "skipped"
)

// Цели для IndexDispatched.
const (
	TargetText    = "text"
	TargetImage   = "image"
	TargetProfile = "profile"
)

type noopMetrics struct{}

func (noopMetrics) EventHandled(string)           {}
func (noopMetrics) IndexDispatched(string, error) {}
func (noopMetrics) SearchExecuted(string, int)    {}
