package indexer

import "context"

// maxDiscoveryRounds bounds how often a single call may ask the generator
// for new candidates after the static list is exhausted.
const maxDiscoveryRounds = 1

// VariantGenerator synthesizes extra candidates at runtime, e.g. from schema
// introspection. Generated variants are tried for the current call only and
// never join the static registry.
type VariantGenerator[T any] interface {
	Generate(ctx context.Context, lastErr error) ([]Variant[T], error)
}

// NopGenerator is the default generator and never produces candidates.
type NopGenerator[T any] struct{}

func (NopGenerator[T]) Generate(context.Context, error) ([]Variant[T], error) {
	return nil, nil
}

// GeneratorFunc adapts a function to VariantGenerator.
type GeneratorFunc[T any] func(ctx context.Context, lastErr error) ([]Variant[T], error)

func (f GeneratorFunc[T]) Generate(ctx context.Context, lastErr error) ([]Variant[T], error) {
	return f(ctx, lastErr)
}
