package provision

import (
	"context"
	"encoding/json"
	"fmt"
)

// =============================================================================
// RECORD HELPERS - Typed reads over the raw path store
// =============================================================================

// getRecord loads and decodes one document. Returns (nil, nil) when the path
// does not exist so callers can map absence to their own not-found error.
func getRecord[T any](ctx context.Context, store Store, path string) (*T, error) {
	raw, err := store.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if raw == nil {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &out, nil
}

// listRecords loads and decodes every document under prefix. Order is
// unspecified; callers sort by their own criteria.
func listRecords[T any](ctx context.Context, store Store, prefix string) ([]T, error) {
	raws, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	out := make([]T, 0, len(raws))
	for path, raw := range raws {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
