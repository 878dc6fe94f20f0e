package fhir

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bundle represents a FHIR searchset Bundle.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode string `json:"mode,omitempty"`
}

// NewSearchBundle creates a searchset Bundle from resources rendered with
// ToFHIR. Each entry gets a fullUrl built from baseURL and the resource id.
func NewSearchBundle(resources []map[string]interface{}, total int, baseURL string) *Bundle {
	now := time.Now().UTC()
	entries := make([]BundleEntry, len(resources))
	for i, r := range resources {
		raw, _ := json.Marshal(r)
		entries[i] = BundleEntry{
			FullURL:  fullURL(r, baseURL),
			Resource: raw,
			Search:   &BundleSearch{Mode: "match"},
		}
	}
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
		Link:         []BundleLink{{Relation: "self", URL: baseURL}},
		Entry:        entries,
		Timestamp:    &now,
	}
}

func fullURL(r map[string]interface{}, baseURL string) string {
	id, ok := r["id"].(string)
	if !ok || id == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", baseURL, id)
}
