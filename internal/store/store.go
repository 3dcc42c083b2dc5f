// Package store provides persistence for leads, discovery queries, jobs, and
// messages, with SQLite and Postgres backends.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/craftline/outreach-cli/internal/model"
)

// Sentinel errors surfaced to callers. ErrSchemaUnavailable distinguishes
// "storage not provisioned" from empty results; ErrConflict marks a lead no
// longer in the expected state when a write attempted to transition it.
var (
	ErrNotFound          = eris.New("store: not found")
	ErrConflict          = eris.New("store: state conflict")
	ErrSchemaUnavailable = eris.New("store: schema unavailable")
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	SourceType     model.SourceType     `json:"source_type,omitempty"`
	ApprovalStatus model.ApprovalStatus `json:"approval_status,omitempty"`
	SendStatus     model.SendStatus     `json:"send_status,omitempty"`
	ThreadID       string               `json:"thread_id,omitempty"`
	Limit          int                  `json:"limit,omitempty"`
	Offset         int                  `json:"offset,omitempty"`
}

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Type   model.JobType   `json:"type,omitempty"`
	Status model.JobStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the outreach pipeline.
type Store interface {
	// Leads
	CreateLead(ctx context.Context, lead *model.Lead) error
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	GetThreadRoot(ctx context.Context, sourceType model.SourceType, naturalKey string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	DeleteLeads(ctx context.Context, ids []string) (int, error)
	MaxSequenceIndex(ctx context.Context, threadID string) (int, error)

	// Gate transitions (sole writers of approval_status / review_status)
	SetApproval(ctx context.Context, ids []string, status model.ApprovalStatus) (int, error)
	ConfirmReview(ctx context.Context, ids []string) (int, error)

	// Stage claiming and resolution. ClaimLeads transitions eligible leads to
	// the stage's claimed marker one row at a time, validating each row is
	// still in the expected prior state. Resolve* commit a claimed lead's
	// terminal status and return ErrConflict when the claim is gone.
	ClaimLeads(ctx context.Context, jobType model.JobType, ids []string, limit int) ([]model.Lead, error)
	ReleaseClaim(ctx context.Context, jobType model.JobType, id string) error
	ResolveScrape(ctx context.Context, id string, status model.ScrapeStatus, email, contactName string) error
	ResolveVerification(ctx context.Context, id string, status model.VerificationStatus) error
	ResolveDraft(ctx context.Context, id string, status model.DraftStatus, subject, body string) error
	ResolveSend(ctx context.Context, id string, status model.SendStatus) error

	// Aggregation
	CountByStage(ctx context.Context) (map[model.Stage]int, error)

	// Discovery queries
	CreateQuery(ctx context.Context, q *model.DiscoveryQuery) error
	CompleteQuery(ctx context.Context, id string, counters model.QueryCounters) error
	GetQuery(ctx context.Context, id string) (*model.DiscoveryQuery, error)

	// Jobs
	CreateJob(ctx context.Context, jobType model.JobType, params model.JobParams) (*model.Job, error)
	StartJob(ctx context.Context, id string) error
	CompleteJob(ctx context.Context, id string, result *model.JobResult) error
	FailJob(ctx context.Context, id string, errMsg string) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)

	// Messages
	InsertMessage(ctx context.Context, m *model.Message) error
	ThreadMessages(ctx context.Context, threadID string) ([]model.Message, error)

	// Settings
	GetSettings(ctx context.Context) (*model.Settings, error)
	SetAutomation(ctx context.Context, enabled bool) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
