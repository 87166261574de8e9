package clickhouse

import (
	"sort"
	"strings"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

// buildWhere renders a filter into a WHERE clause with positional arguments.
func buildWhere(f repository.EventFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if len(f.EventTypes) > 0 {
		types := make([]string, 0, len(f.EventTypes))
		for _, t := range f.EventTypes {
			types = append(types, string(t))
		}
		conds = append(conds, "has(?, event_type)")
		args = append(args, types)
	}
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if len(f.UserIDs) > 0 {
		conds = append(conds, "has(?, user_id)")
		args = append(args, f.UserIDs)
	}
	if len(f.SessionIDs) > 0 {
		conds = append(conds, "has(?, session_id)")
		args = append(args, f.SessionIDs)
	}
	if f.EntityType != "" {
		conds = append(conds, "entity_type = ?")
		args = append(args, f.EntityType)
	}
	if f.EntityID != "" {
		conds = append(conds, "entity_id = ?")
		args = append(args, f.EntityID)
	}
	if len(f.Metadata) > 0 {
		keys := make([]string, 0, len(f.Metadata))
		for k := range f.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			conds = append(conds, "JSONExtractString(metadata, ?) = ?")
			args = append(args, k, f.Metadata[k])
		}
	}
	if !f.Start.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Start.UTC())
	}
	if !f.End.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, f.End.UTC())
	}
	if f.IdentifiedOnly {
		conds = append(conds, "user_id != ''")
	}
	if f.WithSession {
		conds = append(conds, "session_id != ''")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
