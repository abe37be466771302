// internal/domain/models/page.go
package models

import (
	"encoding/json"
	"fmt"
)

// Entity is anything listed on a dashboard page. The id is the backend's
// numeric primary key.
type Entity interface {
	EntityID() int64
}

// PageMeta is the pagination summary the backend returns next to list data.
// From and To are nil when Total is zero.
type PageMeta struct {
	CurrentPage int    `json:"current_page"`
	From        *int   `json:"from"`
	To          *int   `json:"to"`
	Total       int    `json:"total"`
	LastPage    int    `json:"last_page"`
	PerPage     int    `json:"per_page"`
	Path        string `json:"path,omitempty"`
}

// Page is one page of list results.
type Page[T any] struct {
	Items []T       `json:"data"`
	Meta  *PageMeta `json:"meta"`
}

// Merge shallow-merges the top-level fields of server into cur: every key
// present in server wins, keys absent from server (typically nested
// relations the endpoint did not load) keep their current value.
func Merge[T any](cur T, server json.RawMessage) (T, error) {
	var out T

	base, err := json.Marshal(cur)
	if err != nil {
		return out, fmt.Errorf("merge: encode current: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return out, fmt.Errorf("merge: decode current: %w", err)
	}

	patch := map[string]json.RawMessage{}
	if err := json.Unmarshal(server, &patch); err != nil {
		return out, fmt.Errorf("merge: decode server: %w", err)
	}
	for k, v := range patch {
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("merge: encode merged: %w", err)
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, fmt.Errorf("merge: decode merged: %w", err)
	}
	return out, nil
}
