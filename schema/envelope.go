// Package schema defines the wire-level and cached entity types served by the
// blog API, together with client-side validation and the pure state transforms
// applied by optimistic mutations.
package schema

import (
	json "github.com/goccy/go-json"
)

// Envelope is the standard response wrapper returned by every API endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Page is a single page of a paginated listing.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}
