package logging

import "context"

// LogEntry represents a structured log record with fields particularly
// relevant to evolution runs and oracle calls.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Run-specific fields
	RunID       string // The evolution run emitting this entry
	Generation  int    // Generation counter at emit time, -1 when unknown
	CandidateID string // Lineage id of the candidate being processed

	// General structured data
	Fields map[string]interface{}
}

type contextKey string

const (
	runIDKey       contextKey = "run_id"
	generationKey  contextKey = "generation"
	candidateIDKey contextKey = "candidate_id"
)

// WithRunID attaches a run identifier to the context so every log entry
// emitted below it carries the run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID retrieves a run identifier from the context.
func GetRunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok
}

// WithGeneration attaches the current generation counter to the context.
func WithGeneration(ctx context.Context, generation int) context.Context {
	return context.WithValue(ctx, generationKey, generation)
}

// GetGeneration retrieves the generation counter from the context.
func GetGeneration(ctx context.Context) (int, bool) {
	g, ok := ctx.Value(generationKey).(int)
	return g, ok
}

// WithCandidateID attaches a candidate lineage id to the context.
func WithCandidateID(ctx context.Context, candidateID string) context.Context {
	return context.WithValue(ctx, candidateIDKey, candidateID)
}

// GetCandidateID retrieves a candidate lineage id from the context.
func GetCandidateID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(candidateIDKey).(string)
	return id, ok
}
