package indexer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/usemiddleman/middleman/graphql"
)

// Transport sends one GraphQL document and returns its data field.
type Transport interface {
	Send(ctx context.Context, document string, variables map[string]any) (json.RawMessage, error)
}

// Mode is the pagination model a variant speaks.
type Mode int

const (
	ModeNone Mode = iota
	ModeOffset
	ModeCursor
)

func (m Mode) String() string {
	switch m {
	case ModeOffset:
		return "offset"
	case ModeCursor:
		return "cursor"
	default:
		return "none"
	}
}

// Extraction is the uniform shape every variant's Extract produces.
type Extraction[T any] struct {
	Items []T

	// RawCount is the number of entities the server returned before
	// normalization dropped incomplete ones.
	RawCount int

	// Offset mode: Total is nil when the server did not report it.
	Total *int

	// Cursor mode.
	HasNextPage bool
	EndCursor   string
}

// Variant is one concrete query shape hypothesized to satisfy a logical
// operation. Variants are immutable once defined.
type Variant[T any] struct {
	Name     string
	Document string
	Mode     Mode

	// Extract returns false when the response does not have the shape this
	// variant expects. It must never panic on unexpected input.
	Extract func(data json.RawMessage) (*Extraction[T], bool)

	// BuildVariables receives the raw (decoded) cursor, empty on the first page.
	BuildVariables func(target string, limit int, cursor string) map[string]any
}

// Registry is the fixed, ordered candidate list of one logical operation.
type Registry[T any] struct {
	Operation string
	Variants  []Variant[T]
	Generator VariantGenerator[T]
}

// Validate checks that names are unique and every document parses.
func (r Registry[T]) Validate() error {
	if r.Operation == "" {
		return fmt.Errorf("registry without operation name")
	}
	if len(r.Variants) == 0 {
		return fmt.Errorf("%s: registry has no variants", r.Operation)
	}
	seen := make(map[string]struct{}, len(r.Variants))
	for _, v := range r.Variants {
		if v.Name == "" || v.Extract == nil || v.BuildVariables == nil {
			return fmt.Errorf("%s: incomplete variant %q", r.Operation, v.Name)
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("%s: duplicate variant %q", r.Operation, v.Name)
		}
		seen[v.Name] = struct{}{}
		if err := graphql.Validate(v.Document); err != nil {
			return fmt.Errorf("%s: variant %q: %w", r.Operation, v.Name, err)
		}
	}
	return nil
}
