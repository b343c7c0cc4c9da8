package engine

import (
	"context"
	"sync"

	"github.com/evoforge/evoforge/pkg/logging"
)

// TerminationReason explains why a run stopped.
type TerminationReason string

const (
	ReasonMaxGenerations TerminationReason = "max_generations"
	ReasonStagnation     TerminationReason = "stagnation"
	ReasonWallClock      TerminationReason = "wall_clock_budget"
	ReasonCanceled       TerminationReason = "canceled"
)

// Summary describes one completed, evaluated generation.
type Summary struct {
	Generation     int     `json:"generation" yaml:"generation"`
	Best           float64 `json:"best" yaml:"best"`
	Mean           float64 `json:"mean" yaml:"mean"`
	Worst          float64 `json:"worst" yaml:"worst"`
	ValidOffspring int     `json:"valid_offspring" yaml:"valid_offspring"`
}

// Telemetry receives progress events from the engine. Sinks may be slow or
// unavailable; the engine dispatches fire-and-forget and never blocks a
// phase on a sink.
type Telemetry interface {
	GenerationStarted(runID string, generation int)
	GenerationSummary(runID string, summary Summary)
	RunTerminated(runID string, reason TerminationReason)
}

// NopTelemetry discards all events.
type NopTelemetry struct{}

func (NopTelemetry) GenerationStarted(string, int)           {}
func (NopTelemetry) GenerationSummary(string, Summary)       {}
func (NopTelemetry) RunTerminated(string, TerminationReason) {}

// LogTelemetry forwards events to the global logger.
type LogTelemetry struct{}

func (LogTelemetry) GenerationStarted(runID string, generation int) {
	logging.GetLogger().Info(context.Background(), "Generation %d started (run %s)", generation, runID)
}

func (LogTelemetry) GenerationSummary(runID string, s Summary) {
	logging.GetLogger().Info(context.Background(),
		"Generation %d summary (run %s): best=%.3f mean=%.3f worst=%.3f valid_offspring=%d",
		s.Generation, runID, s.Best, s.Mean, s.Worst, s.ValidOffspring)
}

func (LogTelemetry) RunTerminated(runID string, reason TerminationReason) {
	logging.GetLogger().Info(context.Background(), "Run %s terminated: %s", runID, reason)
}

// telemetryEvent is one queued sink delivery.
type telemetryEvent func(sink Telemetry)

// telemetryDispatcher decouples the engine from the sink: events go onto a
// bounded queue consumed by a single goroutine, and are dropped when the
// queue is full rather than stalling a phase.
type telemetryDispatcher struct {
	sink   Telemetry
	events chan telemetryEvent
	wg     sync.WaitGroup
}

func newTelemetryDispatcher(sink Telemetry) *telemetryDispatcher {
	d := &telemetryDispatcher{
		sink:   sink,
		events: make(chan telemetryEvent, 64),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for event := range d.events {
			event(d.sink)
		}
	}()
	return d
}

func (d *telemetryDispatcher) dispatch(event telemetryEvent) {
	select {
	case d.events <- event:
	default:
		// Sink too slow; dropping beats blocking the run.
	}
}

func (d *telemetryDispatcher) generationStarted(runID string, generation int) {
	d.dispatch(func(sink Telemetry) { sink.GenerationStarted(runID, generation) })
}

func (d *telemetryDispatcher) generationSummary(runID string, s Summary) {
	d.dispatch(func(sink Telemetry) { sink.GenerationSummary(runID, s) })
}

func (d *telemetryDispatcher) runTerminated(runID string, reason TerminationReason) {
	d.dispatch(func(sink Telemetry) { sink.RunTerminated(runID, reason) })
}

// close drains queued events and stops the consumer.
func (d *telemetryDispatcher) close() {
	close(d.events)
	d.wg.Wait()
}
