package types

// Indexer pagination constants
const (
	DefaultOwnedPageSize      = 100
	DefaultOwnedMaxTotal      = 2000
	DefaultCollectionPageSize = 100
	DefaultCollectionMaxTotal = 5000

	// Hard ceilings so a server that never reports the last page cannot
	// keep a FetchAll loop running forever.
	MaxIterationsOwned       = 300
	MaxIterationsCollections = 200

	// MaxFloorLookups bounds the sequential per-collection floor queries.
	MaxFloorLookups = 40
)

// Batch enrichment group sizes, tuned by field weight.
const (
	ImageBatchSize   = 20
	DetailsBatchSize = 12
)

// Chain query constants
const (
	OwnerTokensLimit        = 50
	DefaultMediaConcurrency = 4
	MaxMediaConcurrency     = 6

	// DefaultDenom is the minor unit used for Stargaze floor prices.
	DefaultDenom = "ustars"
)
