package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "filters.json")
	m, err := NewManager(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var f Filters
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Empty(t, f.IgnoreSenders)
	assert.Empty(t, m.GetFilters().IgnoreKeywordsInBody)
}

func TestManagerPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.json")
	m, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, m.AddIgnoreSender("news@example.com"))
	require.NoError(t, m.AddIgnoreSender("news@example.com"))
	require.NoError(t, m.AddIgnoreKeywordInSubject("sale"))
	require.NoError(t, m.AddIgnoreKeywordInBody("unsubscribe"))

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	f := reloaded.GetFilters()
	assert.Equal(t, []string{"news@example.com"}, f.IgnoreSenders)
	assert.Equal(t, []string{"sale"}, f.IgnoreKeywordsInSubject)
	assert.Equal(t, []string{"unsubscribe"}, f.IgnoreKeywordsInBody)

	require.NoError(t, reloaded.RemoveIgnoreSender("news@example.com"))
	require.NoError(t, reloaded.RemoveIgnoreKeywordInSubject("absent"))
	require.NoError(t, reloaded.RemoveIgnoreKeywordInBody("unsubscribe"))
	f = reloaded.GetFilters()
	assert.Empty(t, f.IgnoreSenders)
	assert.Equal(t, []string{"sale"}, f.IgnoreKeywordsInSubject)
	assert.Empty(t, f.IgnoreKeywordsInBody)
}

func TestManagerMatch(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "filters.json"))
	require.NoError(t, err)
	require.NoError(t, m.AddIgnoreSender("News@Example.com"))
	require.NoError(t, m.AddIgnoreKeywordInSubject("SALE"))
	require.NoError(t, m.AddIgnoreKeywordInBody("unsubscribe"))

	tests := []struct {
		from, subject, body string
		rule                string
		hit                 bool
	}{
		{"Weekly <news@example.com>", "hello", "", "sender:News@Example.com", true},
		{"bob@example.com", "Big sale today", "", "subject:SALE", true},
		{"bob@example.com", "hi", "click to Unsubscribe", "body:unsubscribe", true},
		{"bob@example.com", "hi", "lunch?", "", false},
	}
	for _, tc := range tests {
		rule, hit := m.Match(tc.from, tc.subject, tc.body)
		assert.Equal(t, tc.hit, hit, tc.subject)
		assert.Equal(t, tc.rule, rule, tc.subject)
	}
}

func TestManagerBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))
	_, err := NewManager(path)
	assert.Error(t, err)
}

func TestGetFiltersReturnsCopy(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "filters.json"))
	require.NoError(t, err)
	require.NoError(t, m.AddIgnoreSender("a"))

	f := m.GetFilters()
	f.IgnoreSenders[0] = "changed"
	assert.Equal(t, []string{"a"}, m.GetFilters().IgnoreSenders)
}
