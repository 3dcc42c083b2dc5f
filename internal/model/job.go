package model

import "time"

// JobType identifies which pipeline stage a job executes.
type JobType string

const (
	JobDiscover JobType = "discover"
	JobScrape   JobType = "scrape"
	JobVerify   JobType = "verify"
	JobDraft    JobType = "draft"
	JobSend     JobType = "send"
	JobFollowUp JobType = "follow_up"
)

// JobStatus is the lifecycle of one asynchronous job run.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ItemOutcome is the terminal result for a single lead within a job run.
type ItemOutcome string

const (
	ItemSucceeded ItemOutcome = "succeeded"
	ItemFailed    ItemOutcome = "failed"
	ItemSkipped   ItemOutcome = "skipped"
)

// ItemResult records the outcome of processing one lead in a job.
type ItemResult struct {
	LeadID  string      `json:"lead_id"`
	Outcome ItemOutcome `json:"outcome"`
	Detail  string      `json:"detail,omitempty"`
}

// JobResult aggregates per-item outcomes. A job completes with this summary
// even when individual items failed; only job-level faults fail the job.
type JobResult struct {
	Claimed   int          `json:"claimed"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Items     []ItemResult `json:"items,omitempty"`
}

// Record merges one item outcome into the summary counts.
func (r *JobResult) Record(item ItemResult) {
	r.Items = append(r.Items, item)
	switch item.Outcome {
	case ItemSucceeded:
		r.Succeeded++
	case ItemFailed:
		r.Failed++
	case ItemSkipped:
		r.Skipped++
	}
}

// JobParams carries the submission parameters persisted with a job.
type JobParams struct {
	LeadIDs  []string          `json:"lead_ids,omitempty"`
	Manual   bool              `json:"manual,omitempty"`
	Discover *DiscoveryRequest `json:"discover,omitempty"`
}

// DiscoveryRequest targets a discovery job at one adapter platform.
type DiscoveryRequest struct {
	SourceType SourceType       `json:"source_type"`
	Platform   string           `json:"platform,omitempty"`
	Filters    DiscoveryFilters `json:"filters"`
}

// Job is one asynchronous unit of work over a batch of eligible leads.
type Job struct {
	ID           string     `json:"id" db:"id"`
	Type         JobType    `json:"type" db:"type"`
	Status       JobStatus  `json:"status" db:"status"`
	Params       JobParams  `json:"params" db:"params"`
	Result       *JobResult `json:"result,omitempty" db:"result"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}
