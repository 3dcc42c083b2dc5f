// Package jobs dispatches and executes asynchronous pipeline stage jobs:
// discover, scrape, verify, draft, send, and follow-up. Each run claims its
// eligible leads, processes them with per-item isolation, and commits
// terminal statuses one lead at a time.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/craftline/outreach-cli/internal/config"
	"github.com/craftline/outreach-cli/internal/dedup"
	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/internal/resilience"
	"github.com/craftline/outreach-cli/internal/store"
)

// SubmitRequest asks the dispatcher to run one stage job.
type SubmitRequest struct {
	Type model.JobType `json:"type"`
	// LeadIDs restricts the run to an explicit id list; empty means all
	// currently eligible leads.
	LeadIDs []string `json:"lead_ids,omitempty"`
	// Manual marks an operator-triggered run, which bypasses the automation
	// master switch.
	Manual   bool                    `json:"manual,omitempty"`
	Discover *model.DiscoveryRequest `json:"discover,omitempty"`
}

// JobReceipt is returned for an accepted submission.
type JobReceipt struct {
	JobID         string `json:"job_id"`
	AcceptedCount int    `json:"accepted_count"`
}

// Dispatcher validates submissions, creates job rows, and executes them.
type Dispatcher struct {
	store    store.Store
	resolver *dedup.Resolver
	adapters map[string]Adapter
	scraper  Scraper
	verifier Verifier
	drafter  Drafter
	sender   Sender
	cfg      config.JobsConfig
	retry    resilience.RetryConfig
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAdapter registers a discovery adapter under its platform name.
func WithAdapter(a Adapter) Option {
	return func(d *Dispatcher) { d.adapters[a.Platform()] = a }
}

// WithScraper sets the contact scraper.
func WithScraper(s Scraper) Option {
	return func(d *Dispatcher) { d.scraper = s }
}

// WithVerifier sets the contact verifier.
func WithVerifier(v Verifier) Option {
	return func(d *Dispatcher) { d.verifier = v }
}

// WithDrafter sets the message drafter.
func WithDrafter(dr Drafter) Option {
	return func(d *Dispatcher) { d.drafter = dr }
}

// WithSender sets the message sender.
func WithSender(s Sender) Option {
	return func(d *Dispatcher) { d.sender = s }
}

// WithRetryConfig overrides the per-item external-call retry policy.
func WithRetryConfig(rc resilience.RetryConfig) Option {
	return func(d *Dispatcher) { d.retry = rc }
}

// NewDispatcher creates a job dispatcher.
func NewDispatcher(st store.Store, cfg config.JobsConfig, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    st,
		resolver: dedup.NewResolver(st),
		adapters: make(map[string]Adapter),
		cfg:      cfg,
		retry:    resilience.DefaultRetryConfig(),
	}
	d.retry.MaxAttempts = cfg.ItemRetries + 1
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit validates a request, creates the job row, and executes it to
// completion. Validation failures and a paused automation switch reject the
// request before any job row exists.
func (d *Dispatcher) Submit(ctx context.Context, req SubmitRequest) (*JobReceipt, error) {
	if err := d.validate(req); err != nil {
		return nil, err
	}

	if !req.Manual {
		settings, err := d.store.GetSettings(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "jobs: read automation settings")
		}
		if !settings.AutomationEnabled {
			return nil, ErrAutomationPaused
		}
	}

	job, err := d.store.CreateJob(ctx, req.Type, model.JobParams{
		LeadIDs:  req.LeadIDs,
		Manual:   req.Manual,
		Discover: req.Discover,
	})
	if err != nil {
		return nil, eris.Wrap(err, "jobs: create job")
	}

	accepted, runErr := d.run(ctx, job, req)
	if runErr != nil {
		if failErr := d.store.FailJob(ctx, job.ID, runErr.Error()); failErr != nil {
			zap.L().Error("jobs: record job failure",
				zap.String("job_id", job.ID), zap.Error(failErr))
		}
		return nil, runErr
	}

	return &JobReceipt{JobID: job.ID, AcceptedCount: accepted}, nil
}

func (d *Dispatcher) validate(req SubmitRequest) error {
	switch req.Type {
	case model.JobDiscover:
		if req.Discover == nil {
			return validationf("discover job requires discovery parameters")
		}
		f := req.Discover.Filters
		if len(f.Keywords) == 0 && len(f.Categories) == 0 {
			return validationf("discovery requires at least one keyword or category")
		}
		if req.Discover.SourceType == model.SourceSocial && req.Discover.Platform == "" {
			return validationf("social discovery requires a platform")
		}
	case model.JobScrape, model.JobVerify, model.JobDraft, model.JobSend, model.JobFollowUp:
		if req.Discover != nil {
			return validationf("discovery parameters are only valid for discover jobs")
		}
	default:
		return validationf("unknown job type %q", req.Type)
	}
	return nil
}

// run executes the job and returns the accepted (claimed) item count. A
// returned error is a job-level fault; per-item failures are folded into the
// job result instead.
func (d *Dispatcher) run(ctx context.Context, job *model.Job, req SubmitRequest) (int, error) {
	if err := d.store.StartJob(ctx, job.ID); err != nil {
		return 0, eris.Wrap(err, "jobs: start job")
	}

	var (
		result *model.JobResult
		err    error
	)
	if job.Type == model.JobDiscover {
		result, err = d.runDiscover(ctx, job, req.Discover)
	} else {
		result, err = d.runStage(ctx, job, req.LeadIDs)
	}
	if err != nil {
		return 0, err
	}

	if err := d.store.CompleteJob(ctx, job.ID, result); err != nil {
		return 0, eris.Wrap(err, "jobs: complete job")
	}

	zap.L().Info("jobs: job completed",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.Int("claimed", result.Claimed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result.Claimed, nil
}

// runStage claims eligible leads for the job type and processes them with
// bounded parallelism. One lead's failure never blocks another's commit.
func (d *Dispatcher) runStage(ctx context.Context, job *model.Job, ids []string) (*model.JobResult, error) {
	runner, err := d.runnerFor(job.Type)
	if err != nil {
		return nil, err
	}

	claimed, err := d.store.ClaimLeads(ctx, job.Type, ids, d.cfg.MaxClaimPerRun)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: claim leads")
	}

	result := &model.JobResult{Claimed: len(claimed)}
	if len(claimed) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	limit := d.cfg.MaxConcurrentItems
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range claimed {
		lead := claimed[i]
		g.Go(func() error {
			item := d.processItem(gCtx, job.Type, &lead, runner)
			mu.Lock()
			result.Record(item)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures are per-item results. The group
	// context is already cancelled once Wait returns, so cancellation must be
	// read from the caller's context.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "jobs: run cancelled")
	}
	return result, nil
}

// processItem runs one claimed lead through the stage runner and commits its
// terminal status. A runner failure releases the claim so a later run of the
// same job type can retry the lead.
func (d *Dispatcher) processItem(ctx context.Context, jobType model.JobType, lead *model.Lead, runner stageRunner) model.ItemResult {
	err := resilience.Do(ctx, d.retry, func(ctx context.Context) error {
		return runner(ctx, lead)
	})
	if err == nil {
		return model.ItemResult{LeadID: lead.ID, Outcome: model.ItemSucceeded}
	}

	if errors.Is(err, store.ErrConflict) {
		// Another run resolved the lead first.
		return model.ItemResult{LeadID: lead.ID, Outcome: model.ItemSkipped, Detail: "state conflict"}
	}

	zap.L().Warn("jobs: item failed",
		zap.String("job_type", string(jobType)),
		zap.String("lead_id", lead.ID),
		zap.Error(err),
	)
	if relErr := d.releaseOrFail(ctx, jobType, lead.ID); relErr != nil {
		zap.L().Error("jobs: release claim",
			zap.String("lead_id", lead.ID), zap.Error(relErr))
	}
	return model.ItemResult{LeadID: lead.ID, Outcome: model.ItemFailed, Detail: err.Error()}
}

// releaseOrFail commits the stage's failure variant where one exists and
// otherwise returns the lead to pending for the next run.
func (d *Dispatcher) releaseOrFail(ctx context.Context, jobType model.JobType, id string) error {
	// Cancellation of the run context must not strand the claim marker.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	switch jobType {
	case model.JobScrape:
		return d.store.ResolveScrape(releaseCtx, id, model.ScrapeFailed, "", "")
	case model.JobDraft, model.JobFollowUp:
		return d.store.ResolveDraft(releaseCtx, id, model.DraftFailed, "", "")
	case model.JobSend:
		return d.store.ResolveSend(releaseCtx, id, model.SendFailed)
	default:
		return d.store.ReleaseClaim(releaseCtx, jobType, id)
	}
}

// stageRunner processes one claimed lead and commits its terminal status.
type stageRunner func(ctx context.Context, lead *model.Lead) error

func (d *Dispatcher) runnerFor(jobType model.JobType) (stageRunner, error) {
	switch jobType {
	case model.JobScrape:
		if d.scraper == nil {
			return nil, &AdapterError{Adapter: "scraper", Err: eris.New("not configured")}
		}
		return d.scrapeLead, nil
	case model.JobVerify:
		if d.verifier == nil {
			return nil, &AdapterError{Adapter: "verifier", Err: eris.New("not configured")}
		}
		return d.verifyLead, nil
	case model.JobDraft, model.JobFollowUp:
		if d.drafter == nil {
			return nil, &AdapterError{Adapter: "drafter", Err: eris.New("not configured")}
		}
		return d.draftLead, nil
	case model.JobSend:
		if d.sender == nil {
			return nil, &AdapterError{Adapter: "sender", Err: eris.New("not configured")}
		}
		return d.sendLead, nil
	default:
		return nil, validationf("job type %q has no stage runner", jobType)
	}
}
