package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

func TestBuildWhere_Empty(t *testing.T) {
	where, args := buildWhere(repository.EventFilter{})

	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildWhere_AllFields(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	where, args := buildWhere(repository.EventFilter{
		EventTypes:     []domain.EventType{domain.EventPromptViewed, domain.EventPromptClicked},
		UserID:         "u1",
		EntityType:     "prompt",
		EntityID:       "p1",
		Metadata:       map[string]string{"source": "search", "category": "writing"},
		Start:          start,
		End:            end,
		IdentifiedOnly: true,
		WithSession:    true,
	})

	assert.Equal(t, "WHERE has(?, event_type) AND user_id = ? AND entity_type = ? AND entity_id = ?"+
		" AND JSONExtractString(metadata, ?) = ? AND JSONExtractString(metadata, ?) = ?"+
		" AND created_at >= ? AND created_at < ? AND user_id != '' AND session_id != ''", where)
	assert.Equal(t, []any{
		[]string{"prompt_viewed", "prompt_clicked"},
		"u1", "prompt", "p1",
		"category", "writing", "source", "search",
		start, end,
	}, args)
}

func TestBuildWhere_IDLists(t *testing.T) {
	where, args := buildWhere(repository.EventFilter{
		UserIDs:    []string{"u1", "u2"},
		SessionIDs: []string{"s1"},
	})

	assert.Equal(t, "WHERE has(?, user_id) AND has(?, session_id)", where)
	assert.Equal(t, []any{[]string{"u1", "u2"}, []string{"s1"}}, args)
}
