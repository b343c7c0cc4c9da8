package core

import (
	"math"
	"time"
)

// WorstScore is the sentinel assigned to a candidate whose evaluation
// exhausted its retry budget. It loses every comparison, so degraded
// candidates are never selected over scored ones, and the run keeps going.
var WorstScore = math.Inf(-1)

// Candidate wraps a gene with its evolutionary bookkeeping. Candidates are
// value records: they are immutable after scoring, and every state change
// produces a new candidate instead of mutating in place. This is what lets
// the engine evaluate a whole generation concurrently without per-candidate
// locking.
type Candidate struct {
	LineageID  string
	Generation int
	Gene       Gene
	Score      float64
	Scored     bool
	Valid      bool
	ParentIDs  []string
	CreatedAt  time.Time

	fingerprint string
}

// NewCandidate creates an unscored candidate for a gene. The content
// fingerprint is computed eagerly since the gene never changes afterwards.
func NewCandidate(lineageID string, generation int, gene Gene, parentIDs []string) *Candidate {
	return &Candidate{
		LineageID:   lineageID,
		Generation:  generation,
		Gene:        gene,
		ParentIDs:   parentIDs,
		CreatedAt:   time.Now(),
		fingerprint: Fingerprint(gene),
	}
}

// Fingerprint returns the content hash of the candidate's serialized gene.
func (c *Candidate) Fingerprint() string {
	return c.fingerprint
}

// WithScore returns a scored copy of the candidate. The receiver is left
// untouched.
func (c *Candidate) WithScore(score float64) *Candidate {
	scored := *c
	scored.Score = score
	scored.Scored = true
	return &scored
}

// WithGeneration returns a copy of the candidate carried into generation g.
// Elites survive this way: same lineage, same gene, same fingerprint.
func (c *Candidate) WithGeneration(g int) *Candidate {
	carried := *c
	carried.Generation = g
	return &carried
}

// MarkValid returns a copy flagged as having passed constraint validation.
func (c *Candidate) MarkValid() *Candidate {
	valid := *c
	valid.Valid = true
	return &valid
}
