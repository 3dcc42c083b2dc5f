package jobs

import (
	"context"

	"github.com/craftline/outreach-cli/internal/model"
)

// Adapter discovers candidate leads for one source platform. The dispatcher
// selects an adapter once per discovery job and never branches on platform
// inside pipeline logic.
type Adapter interface {
	Platform() string
	Discover(ctx context.Context, filters model.DiscoveryFilters) ([]model.Candidate, error)
}

// ScrapeResult is the contact information pulled from a lead's page.
type ScrapeResult struct {
	Email       string
	ContactName string
}

// Scraper extracts a contact identifier from a lead's site or profile.
type Scraper interface {
	Scrape(ctx context.Context, lead *model.Lead) (*ScrapeResult, error)
}

// VerifyResult is the outcome of probing a contact identifier.
type VerifyResult struct {
	Deliverable bool
	Reason      string
}

// Verifier probes a scraped contact identifier for deliverability.
type Verifier interface {
	Verify(ctx context.Context, email string) (*VerifyResult, error)
}

// Draft is a composed outreach message.
type Draft struct {
	Subject string
	Body    string
}

// ComposeRequest carries everything the generator needs. History is the
// thread's prior messages, populated only for follow-ups; FollowUp tells the
// generator explicitly which mode to compose in.
type ComposeRequest struct {
	Lead     *model.Lead
	History  []model.Message
	FollowUp bool
}

// Drafter composes an outreach message for a lead.
type Drafter interface {
	Compose(ctx context.Context, req ComposeRequest) (*Draft, error)
}

// Sender delivers a drafted message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, lead *model.Lead, subject, body string) (string, error)
}
