package transform

// Options configures one Transform Engine run (spec §4.5: "entityType,
// optional extractSyncId, options{batchSize, cancellationToken}").
type Options struct {
	BatchSize int
	// ExtractSyncID, when set, restricts raw-row selection to exactly one
	// Extract run's batch (legacy single-batch mode). Leave nil for the
	// default batch-agnostic mode, which picks up pending rows from every
	// completed Extract run for the entity type.
	ExtractSyncID *string
}
