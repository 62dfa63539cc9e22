package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/usemiddleman/middleman/types"
)

// IndexerConfig points the GraphQL client at the indexer.
type IndexerConfig struct {
	URL             string
	UserAgent       string
	Timeout         time.Duration
	MaxGetURLLength int
}

func (ic IndexerConfig) Validate() error {
	if len(ic.URL) == 0 {
		return types.NewValidationError("INDEXER_URL", "required field is missing")
	}
	if u, err := url.Parse(ic.URL); err != nil {
		return types.NewInvalidValueError("INDEXER_URL", ic.URL, fmt.Sprintf("invalid URL: %v", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		return types.NewInvalidValueError("INDEXER_URL", ic.URL, fmt.Sprintf("must use http or https scheme, got: %s", u.Scheme))
	}
	if len(ic.UserAgent) == 0 {
		return types.NewValidationError("INDEXER_UA", "required field is missing")
	}
	if ic.Timeout <= 0 {
		return types.NewValidationError("INDEXER_TIMEOUT", "must be positive")
	}
	if ic.MaxGetURLLength < 256 {
		return types.NewInvalidValueError("INDEXER_MAX_GET_URL", fmt.Sprintf("%d", ic.MaxGetURLLength), "must be at least 256")
	}
	return nil
}
