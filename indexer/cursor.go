package indexer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/usemiddleman/middleman/types"
)

type cursorPayload struct {
	Variant string `json:"v"`
	Raw     string `json:"c"`
}

// EncodeCursor wraps a variant's continuation token so it is only ever
// replayed against the variant that minted it. Encoding is deterministic.
func EncodeCursor(variant, raw string) string {
	b, _ := json.Marshal(cursorPayload{Variant: variant, Raw: raw})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor is the inverse of EncodeCursor.
func DecodeCursor(cursor string) (variant, raw string, err error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", fmt.Errorf("%w: malformed cursor: %v", types.ErrCursorInvalidated, err)
	}
	var p cursorPayload
	if err := json.Unmarshal(b, &p); err != nil || p.Variant == "" {
		return "", "", fmt.Errorf("%w: malformed cursor payload", types.ErrCursorInvalidated)
	}
	return p.Variant, p.Raw, nil
}

// nextRaw derives the variant-level continuation token from an extraction,
// or "" when there are no more pages.
func nextRaw[T any](mode Mode, ext *Extraction[T], raw string, limit int) string {
	switch mode {
	case ModeOffset:
		if ext.RawCount == 0 {
			return ""
		}
		offset := 0
		if raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				offset = n
			}
		}
		if ext.Total != nil {
			if offset+limit >= *ext.Total {
				return ""
			}
		} else if ext.RawCount < limit {
			return ""
		}
		return strconv.Itoa(offset + limit)
	case ModeCursor:
		if ext.HasNextPage && ext.EndCursor != "" {
			return ext.EndCursor
		}
		return ""
	default:
		return ""
	}
}
