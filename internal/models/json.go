package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONMap maps to a jsonb column.
type JSONMap map[string]any

func (m *JSONMap) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*m = nil
		return err
	}
	return json.Unmarshal(raw, m)
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

const MaxSearchHistory = 20

type SearchEntry struct {
	Query      string    `json:"query"`
	Filters    string    `json:"filters,omitempty"`
	SearchedAt time.Time `json:"searched_at"`
}

// SearchHistory maps to a jsonb array, most recent entry first.
type SearchHistory []SearchEntry

func (h *SearchHistory) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*h = nil
		return err
	}
	return json.Unmarshal(raw, h)
}

func (h SearchHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	b, err := json.Marshal(h)
	return string(b), err
}

// Record prepends e, dropping an older entry with the same query and
// trimming to MaxSearchHistory.
func (h SearchHistory) Record(e SearchEntry) SearchHistory {
	out := make(SearchHistory, 0, MaxSearchHistory)
	out = append(out, e)
	for _, old := range h {
		if len(out) == MaxSearchHistory {
			break
		}
		if old.Query == e.Query && old.Filters == e.Filters {
			continue
		}
		out = append(out, old)
	}
	return out
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan %T into json column", src)
	}
}
