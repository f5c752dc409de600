package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_SetReplacesTopLevelFields(t *testing.T) {
	doc := Document{"name": "Ana", "level": float64(1), "history": []any{"a"}}
	err := apply(doc, Update{Set: map[string]any{
		"level":   3,
		"history": []string{"b", "a"},
	}})
	require.NoError(t, err)
	assert.Equal(t, Document{"name": "Ana", "level": float64(3), "history": []any{"b", "a"}}, doc)
}

func TestApply_UnionSkipsPresentValues(t *testing.T) {
	doc := Document{"achievements": []any{"first-use"}}
	err := apply(doc, Update{Union: map[string][]any{
		"achievements": {"first-use", "level-5", "level-5"},
		"badges":       {"x"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []any{"first-use", "level-5"}, doc["achievements"])
	assert.Equal(t, []any{"x"}, doc["badges"])
}

func TestApply_UnionOnNonArrayFails(t *testing.T) {
	doc := Document{"achievements": "oops"}
	err := apply(doc, Update{Union: map[string][]any{"achievements": {"a"}}})
	assert.Error(t, err)
}

func TestApply_EmptyUnionKeepsArray(t *testing.T) {
	doc := Document{}
	require.NoError(t, apply(doc, Update{Union: map[string][]any{"achievements": nil}}))
	assert.Equal(t, []any{}, doc["achievements"])
	assert.True(t, Update{}.Empty())
	assert.False(t, Update{Set: map[string]any{"a": 1}}.Empty())
}
