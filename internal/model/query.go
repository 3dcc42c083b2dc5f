package model

import "time"

// DiscoveryFilters are the search parameters for one discovery invocation.
type DiscoveryFilters struct {
	Keywords   []string `json:"keywords,omitempty"`
	Locations  []string `json:"locations,omitempty"`
	Categories []string `json:"categories,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
}

// QueryCounters partitions discovery results by dedup outcome. The counters
// always sum to Found.
type QueryCounters struct {
	Found            int `json:"found"`
	Saved            int `json:"saved"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	SkippedExisting  int `json:"skipped_existing"`
	Failed           int `json:"failed"`
}

// DiscoveryQuery records one discovery invocation and its outcome counters.
type DiscoveryQuery struct {
	ID          string           `json:"id" db:"id"`
	SourceType  SourceType       `json:"source_type" db:"source_type"`
	Platform    string           `json:"platform,omitempty" db:"platform"`
	Filters     DiscoveryFilters `json:"filters" db:"filters"`
	Counters    QueryCounters    `json:"counters" db:"counters"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
}

// Candidate is a normalized discovery result, enough to compute a natural key
// and seed a lead row.
type Candidate struct {
	SourceType     SourceType `json:"source_type"`
	SourcePlatform string     `json:"source_platform,omitempty"`
	NaturalKey     string     `json:"natural_key"`
	Name           string     `json:"name,omitempty"`
	URL            string     `json:"url,omitempty"`
}
