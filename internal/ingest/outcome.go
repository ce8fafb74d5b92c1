package ingest

// Outcome classifies what happened to one ingested event.
type Outcome string

const (
	// OutcomeApplied means the handler ran and the mirror changed.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means the dedup key was already applied; no side effects.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeDeferred means the event arrived before its causal predecessor
	// and was buffered for a later attempt.
	OutcomeDeferred Outcome = "deferred"
	// OutcomeSkipped means the event type is unknown; the row is persisted
	// and never dispatched.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the handler rejected the event; the row stays
	// received and is a redelivery candidate.
	OutcomeFailed Outcome = "failed"
)

// Result reports the per-event outcome of a batch ingestion.
type Result struct {
	DedupKey string  `json:"dedupKey"`
	Outcome  Outcome `json:"outcome"`
	Error    string  `json:"error,omitempty"`
}
