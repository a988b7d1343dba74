package fhir

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bundle represents a FHIR Bundle resource. Entry resources are kept as
// generic maps so the aggregation pipeline can rewrite references and ids
// without a full typed model.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Meta         *Meta         `json:"meta,omitempty"`
	Identifier   *Identifier   `json:"identifier,omitempty"`
	Type         string        `json:"type"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

type BundleEntry struct {
	FullURL  string                 `json:"fullUrl,omitempty"`
	Resource map[string]interface{} `json:"resource,omitempty"`
}

// ParseBundle decodes a JSON document into a Bundle.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}
	if b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("resource is not a Bundle (resourceType=%q)", b.ResourceType)
	}
	return &b, nil
}

// FirstResource returns the resource of the first entry whose resourceType
// matches, or nil.
func (b *Bundle) FirstResource(resourceType string) map[string]interface{} {
	for _, e := range b.Entry {
		if ResourceType(e.Resource) == resourceType {
			return e.Resource
		}
	}
	return nil
}

// ResourceByFullURL returns the resource stored under the given fullUrl, or nil.
func (b *Bundle) ResourceByFullURL(fullURL string) map[string]interface{} {
	for _, e := range b.Entry {
		if e.FullURL == fullURL {
			return e.Resource
		}
	}
	return nil
}

// HasFullURL reports whether any entry carries the given fullUrl.
func (b *Bundle) HasFullURL(fullURL string) bool {
	for _, e := range b.Entry {
		if e.FullURL == fullURL {
			return true
		}
	}
	return false
}

// AddEntry appends an entry. Callers are responsible for fullUrl uniqueness;
// use HasFullURL when re-adding shared actors.
func (b *Bundle) AddEntry(fullURL string, resource map[string]interface{}) {
	b.Entry = append(b.Entry, BundleEntry{FullURL: fullURL, Resource: resource})
}
