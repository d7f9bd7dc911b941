package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Filters defines which messages watch mode hides.
type Filters struct {
	IgnoreSenders           []string `json:"ignoreSenders"`
	IgnoreKeywordsInSubject []string `json:"ignoreKeywordsInSubject"`
	IgnoreKeywordsInBody    []string `json:"ignoreKeywordsInBody"`
}

// Manager handles loading, saving, and matching filter rules.
type Manager struct {
	filePath string
	filters  *Filters
	mu       sync.RWMutex
}

// NewManager creates a filter manager backed by filePath. A missing file is
// created with empty rules.
func NewManager(filePath string) (*Manager, error) {
	m := &Manager{
		filePath: filePath,
		filters:  emptyFilters(),
	}
	if err := m.LoadFilters(); err != nil {
		return nil, err
	}
	return m, nil
}

func emptyFilters() *Filters {
	return &Filters{
		IgnoreSenders:           []string{},
		IgnoreKeywordsInSubject: []string{},
		IgnoreKeywordsInBody:    []string{},
	}
}

// LoadFilters loads filter rules from the JSON file.
func (m *Manager) LoadFilters() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.filters = emptyFilters()
			return m.saveFilters()
		}
		return err
	}

	filters := emptyFilters()
	if err := json.Unmarshal(data, filters); err != nil {
		return err
	}
	m.filters = filters
	return nil
}

// saveFilters writes the rules to disk; callers hold m.mu.
func (m *Manager) saveFilters() error {
	data, err := json.MarshalIndent(m.filters, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(m.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(m.filePath, data, 0644)
}

// GetFilters returns a copy of the current filters.
func (m *Manager) GetFilters() Filters {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Filters{
		IgnoreSenders:           append([]string{}, m.filters.IgnoreSenders...),
		IgnoreKeywordsInSubject: append([]string{}, m.filters.IgnoreKeywordsInSubject...),
		IgnoreKeywordsInBody:    append([]string{}, m.filters.IgnoreKeywordsInBody...),
	}
}

// AddIgnoreSender adds a sender to the ignore list and saves.
func (m *Manager) AddIgnoreSender(sender string) error {
	return m.add(&m.filters.IgnoreSenders, sender)
}

// AddIgnoreKeywordInSubject adds a subject keyword to the ignore list and saves.
func (m *Manager) AddIgnoreKeywordInSubject(keyword string) error {
	return m.add(&m.filters.IgnoreKeywordsInSubject, keyword)
}

// AddIgnoreKeywordInBody adds a body keyword to the ignore list and saves.
func (m *Manager) AddIgnoreKeywordInBody(keyword string) error {
	return m.add(&m.filters.IgnoreKeywordsInBody, keyword)
}

// RemoveIgnoreSender removes a sender from the ignore list and saves.
func (m *Manager) RemoveIgnoreSender(sender string) error {
	return m.remove(&m.filters.IgnoreSenders, sender)
}

// RemoveIgnoreKeywordInSubject removes a subject keyword and saves.
func (m *Manager) RemoveIgnoreKeywordInSubject(keyword string) error {
	return m.remove(&m.filters.IgnoreKeywordsInSubject, keyword)
}

// RemoveIgnoreKeywordInBody removes a body keyword and saves.
func (m *Manager) RemoveIgnoreKeywordInBody(keyword string) error {
	return m.remove(&m.filters.IgnoreKeywordsInBody, keyword)
}

func (m *Manager) add(list *[]string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range *list {
		if s == value {
			return nil
		}
	}
	*list = append(*list, value)
	return m.saveFilters()
}

func (m *Manager) remove(list *[]string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := (*list)[:0]
	found := false
	for _, s := range *list {
		if s == value {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		return nil
	}
	*list = kept
	return m.saveFilters()
}

// Match reports whether a message with the given sender, subject and body is
// hidden by a rule, and which rule it was. Comparisons ignore case.
func (m *Manager) Match(from, subject, body string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rule, ok := containsAny(from, m.filters.IgnoreSenders); ok {
		return "sender:" + rule, true
	}
	if rule, ok := containsAny(subject, m.filters.IgnoreKeywordsInSubject); ok {
		return "subject:" + rule, true
	}
	if rule, ok := containsAny(body, m.filters.IgnoreKeywordsInBody); ok {
		return "body:" + rule, true
	}
	return "", false
}

func containsAny(s string, needles []string) (string, bool) {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return n, true
		}
	}
	return "", false
}
