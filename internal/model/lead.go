// Package model defines the core entities of the outreach pipeline: leads,
// discovery queries, jobs, and messages.
package model

import "time"

// SourceType distinguishes website leads from social-profile leads.
type SourceType string

const (
	SourceWebsite SourceType = "website"
	SourceSocial  SourceType = "social"
)

// ApprovalStatus tracks the human approval gate.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ScrapeStatus tracks the contact-scraping stage.
type ScrapeStatus string

const (
	ScrapePending        ScrapeStatus = "pending"
	ScrapeClaimed        ScrapeStatus = "claimed"
	ScrapeScraped        ScrapeStatus = "scraped"
	ScrapeNoContactFound ScrapeStatus = "no_contact_found"
	ScrapeFailed         ScrapeStatus = "failed"
)

// VerificationStatus tracks the contact-verification stage.
type VerificationStatus string

const (
	VerificationPending      VerificationStatus = "pending"
	VerificationClaimed      VerificationStatus = "claimed"
	VerificationVerified     VerificationStatus = "verified"
	VerificationUnverifiable VerificationStatus = "unverifiable"
)

// ReviewStatus tracks the human review confirmation before drafting.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewConfirmed ReviewStatus = "confirmed"
)

// DraftStatus tracks the message-drafting stage.
type DraftStatus string

const (
	DraftPending DraftStatus = "pending"
	DraftClaimed DraftStatus = "claimed"
	DraftDrafted DraftStatus = "drafted"
	DraftFailed  DraftStatus = "failed"
)

// SendStatus tracks the outbound send stage.
type SendStatus string

const (
	SendPending SendStatus = "pending"
	SendClaimed SendStatus = "claimed"
	SendSent    SendStatus = "sent"
	SendFailed  SendStatus = "failed"
)

// Lead is one contactable entity moving through the pipeline. Exactly one
// lead exists per (source_type, natural_key); re-discovery of a sent lead
// creates a follow-up touch in the same thread instead.
type Lead struct {
	ID             string     `json:"id" db:"id"`
	SourceType     SourceType `json:"source_type" db:"source_type"`
	SourcePlatform string     `json:"source_platform,omitempty" db:"source_platform"`
	NaturalKey     string     `json:"natural_key" db:"natural_key"`

	Name        string `json:"name,omitempty" db:"name"`
	URL         string `json:"url,omitempty" db:"url"`
	ContactName string `json:"contact_name,omitempty" db:"contact_name"`
	Email       string `json:"email,omitempty" db:"email"`

	ApprovalStatus     ApprovalStatus     `json:"approval_status" db:"approval_status"`
	ScrapeStatus       ScrapeStatus       `json:"scrape_status" db:"scrape_status"`
	VerificationStatus VerificationStatus `json:"verification_status" db:"verification_status"`
	ReviewStatus       ReviewStatus       `json:"review_status" db:"review_status"`
	DraftStatus        DraftStatus        `json:"draft_status" db:"draft_status"`
	SendStatus         SendStatus         `json:"send_status" db:"send_status"`

	DraftSubject string `json:"draft_subject,omitempty" db:"draft_subject"`
	DraftBody    string `json:"draft_body,omitempty" db:"draft_body"`

	// ThreadID is the original lead's id when this row is a follow-up touch;
	// empty means this row is the original.
	ThreadID         string `json:"thread_id,omitempty" db:"thread_id"`
	SequenceIndex    int    `json:"sequence_index" db:"sequence_index"`
	DiscoveryQueryID string `json:"discovery_query_id,omitempty" db:"discovery_query_id"`

	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty" db:"last_contacted_at"`
}

// ThreadRoot returns the id of the thread's original lead.
func (l *Lead) ThreadRoot() string {
	if l.ThreadID != "" {
		return l.ThreadID
	}
	return l.ID
}

// IsFollowUp reports whether this lead is a follow-up touch rather than an
// original discovery.
func (l *Lead) IsFollowUp() bool {
	return l.SequenceIndex > 0
}

// Sendable reports whether the lead satisfies the send precondition:
// verified contact and a composed draft.
func (l *Lead) Sendable() bool {
	return l.VerificationStatus == VerificationVerified && l.DraftStatus == DraftDrafted
}
