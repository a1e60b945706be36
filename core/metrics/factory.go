package metrics

import (
	"errors"

	"github.com/kilianp07/evsync/core/factory"
)

var sinkRegistry = factory.NewRegistry[OutcomeRecorder]()

// RegisterSink adds a sink factory identified by name.
func RegisterSink(name string, f factory.Factory[OutcomeRecorder]) error {
	return sinkRegistry.Register(name, f)
}

// NewSinks creates the configured sinks. An empty configuration yields no
// sink; the caller decides how to combine several of them.
func NewSinks(cfgs []factory.ModuleConfig) ([]OutcomeRecorder, error) {
	sinks := make([]OutcomeRecorder, 0, len(cfgs))
	var errs []error
	for _, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sinks = append(sinks, s)
	}
	return sinks, errors.Join(errs...)
}
