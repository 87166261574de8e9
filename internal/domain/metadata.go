package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	MaxMetadataKeys  = 32
	MaxMetadataBytes = 4096

	// TruncatedKey marks metadata that lost keys to the size cap.
	TruncatedKey = "_truncated"

	emptyMetadata = "{}"
)

// EncodeMetadata serializes metadata to JSON, enforcing the key and byte caps.
// Oversize metadata keeps the lexically first keys that fit and gains
// "_truncated": true. When metadata cannot be encoded "{}" is returned along
// with the error so the caller can still enqueue the event.
func EncodeMetadata(metadata map[string]any) (string, bool, error) {
	if len(metadata) == 0 {
		return emptyMetadata, false, nil
	}

	encoded, err := json.Marshal(metadata)
	if err != nil {
		return emptyMetadata, false, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if len(metadata) <= MaxMetadataKeys && len(encoded) <= MaxMetadataBytes {
		return string(encoded), false, nil
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		if k != TruncatedKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	kept := map[string]any{TruncatedKey: true}
	current, _ := json.Marshal(kept)
	for _, k := range keys {
		if len(kept)-1 >= MaxMetadataKeys {
			break
		}
		kept[k] = metadata[k]
		candidate, err := json.Marshal(kept)
		if err != nil || len(candidate) > MaxMetadataBytes {
			delete(kept, k)
			continue
		}
		current = candidate
	}

	return string(current), true, nil
}

// DecodeMetadata parses stored metadata JSON.
func DecodeMetadata(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}
