package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/craftline/outreach-cli/internal/config"
	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testJobsConfig() config.JobsConfig {
	return config.JobsConfig{MaxConcurrentItems: 2, MaxClaimPerRun: 50, ItemRetries: 0}
}

// --- stubs ---

type stubAdapter struct {
	platform   string
	candidates []model.Candidate
	err        error
}

func (a *stubAdapter) Platform() string { return a.platform }

func (a *stubAdapter) Discover(_ context.Context, _ model.DiscoveryFilters) ([]model.Candidate, error) {
	return a.candidates, a.err
}

type stubScraper struct {
	mu      sync.Mutex
	emails  map[string]string
	failFor map[string]bool
	calls   int
}

func (s *stubScraper) Scrape(_ context.Context, lead *model.Lead) (*ScrapeResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.failFor[lead.NaturalKey] {
		return nil, eris.New("scrape blew up")
	}
	return &ScrapeResult{Email: s.emails[lead.NaturalKey]}, nil
}

type stubVerifier struct {
	deliverable bool
	err         error
}

func (v *stubVerifier) Verify(_ context.Context, _ string) (*VerifyResult, error) {
	if v.err != nil {
		return nil, v.err
	}
	return &VerifyResult{Deliverable: v.deliverable}, nil
}

type stubDrafter struct {
	mu       sync.Mutex
	requests []ComposeRequest
	err      error
}

func (d *stubDrafter) Compose(_ context.Context, req ComposeRequest) (*Draft, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return &Draft{Subject: "Hello", Body: "Hi there"}, nil
}

type stubSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *stubSender) Send(_ context.Context, lead *model.Lead, _, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	s.sent = append(s.sent, lead.ID)
	s.mu.Unlock()
	return "msg-" + lead.ID, nil
}

func websiteCandidates(n int) []model.Candidate {
	out := make([]model.Candidate, 0, n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("site%d.com", i)
		out = append(out, model.Candidate{
			SourceType: model.SourceWebsite,
			NaturalKey: key,
			Name:       key,
			URL:        "https://" + key,
		})
	}
	return out
}

func seedWebsiteLeads(t *testing.T, st store.Store, n int, mutate func(*model.Lead)) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lead := &model.Lead{
			SourceType: model.SourceWebsite,
			NaturalKey: fmt.Sprintf("site%d.com", i),
			URL:        fmt.Sprintf("https://site%d.com", i),
		}
		if mutate != nil {
			mutate(lead)
		}
		require.NoError(t, st.CreateLead(context.Background(), lead))
		ids = append(ids, lead.ID)
	}
	return ids
}

func discoverRequest() SubmitRequest {
	return SubmitRequest{
		Type:   model.JobDiscover,
		Manual: true,
		Discover: &model.DiscoveryRequest{
			SourceType: model.SourceWebsite,
			Filters:    model.DiscoveryFilters{Categories: []string{"gift_guides"}, Locations: []string{"usa"}},
		},
	}
}

// --- validation and automation ---

func TestSubmit_ValidationErrors(t *testing.T) {
	d := NewDispatcher(newTestStore(t), testJobsConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"unknown type", SubmitRequest{Type: "nonsense", Manual: true}},
		{"discover without params", SubmitRequest{Type: model.JobDiscover, Manual: true}},
		{"discover without terms", SubmitRequest{
			Type: model.JobDiscover, Manual: true,
			Discover: &model.DiscoveryRequest{SourceType: model.SourceWebsite},
		}},
		{"social without platform", SubmitRequest{
			Type: model.JobDiscover, Manual: true,
			Discover: &model.DiscoveryRequest{
				SourceType: model.SourceSocial,
				Filters:    model.DiscoveryFilters{Keywords: []string{"x"}},
			},
		}},
		{"stage job with discover params", SubmitRequest{
			Type: model.JobScrape, Manual: true,
			Discover: &model.DiscoveryRequest{},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Submit(ctx, tt.req)
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestSubmit_AutomationPaused(t *testing.T) {
	st := newTestStore(t)
	d := NewDispatcher(st, testJobsConfig(), WithScraper(&stubScraper{}))
	ctx := context.Background()

	require.NoError(t, st.SetAutomation(ctx, false))

	_, err := d.Submit(ctx, SubmitRequest{Type: model.JobScrape})
	assert.ErrorIs(t, err, ErrAutomationPaused)

	// A manual run bypasses the switch.
	_, err = d.Submit(ctx, SubmitRequest{Type: model.JobScrape, Manual: true})
	assert.NoError(t, err)
}

// --- discovery ---

func TestDiscover_FreshCandidatesAllSaved(t *testing.T) {
	st := newTestStore(t)
	adapter := &stubAdapter{platform: PlatformWebsite, candidates: websiteCandidates(10)}
	d := NewDispatcher(st, testJobsConfig(), WithAdapter(adapter))
	ctx := context.Background()

	receipt, err := d.Submit(ctx, discoverRequest())
	require.NoError(t, err)
	assert.Equal(t, 10, receipt.AcceptedCount)

	job, err := st.GetJob(ctx, receipt.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, 10, job.Result.Succeeded)
	assert.Equal(t, 0, job.Result.Skipped)

	leads, err := st.ListLeads(ctx, store.LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, leads, 10)
}

func TestDiscover_RerunSkipsDuplicates(t *testing.T) {
	st := newTestStore(t)
	adapter := &stubAdapter{platform: PlatformWebsite, candidates: websiteCandidates(10)}
	d := NewDispatcher(st, testJobsConfig(), WithAdapter(adapter))
	ctx := context.Background()

	_, err := d.Submit(ctx, discoverRequest())
	require.NoError(t, err)

	receipt, err := d.Submit(ctx, discoverRequest())
	require.NoError(t, err)

	job, err := st.GetJob(ctx, receipt.JobID)
	require.NoError(t, err)
	assert.Equal(t, 0, job.Result.Succeeded)
	assert.Equal(t, 10, job.Result.Skipped)

	leads, err := st.ListLeads(ctx, store.LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, leads, 10)
}

func TestDiscover_QueryCountersSumToFound(t *testing.T) {
	st := newTestStore(t)
	adapter := &stubAdapter{platform: PlatformWebsite, candidates: websiteCandidates(5)}
	d := NewDispatcher(st, testJobsConfig(), WithAdapter(adapter))
	ctx := context.Background()

	receipt, err := d.Submit(ctx, discoverRequest())
	require.NoError(t, err)

	job, err := st.GetJob(ctx, receipt.JobID)
	require.NoError(t, err)

	// The query id is recorded on every created lead.
	leads, err := st.ListLeads(ctx, store.LeadFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, leads)
	q, err := st.GetQuery(ctx, leads[0].DiscoveryQueryID)
	require.NoError(t, err)

	c := q.Counters
	assert.Equal(t, 5, c.Found)
	assert.Equal(t, c.Found, c.Saved+c.SkippedDuplicate+c.SkippedExisting+c.Failed)
	assert.Equal(t, model.JobCompleted, job.Status)
}

func TestDiscover_AdapterFailureFailsJob(t *testing.T) {
	st := newTestStore(t)
	adapter := &stubAdapter{platform: PlatformWebsite, err: eris.New("search api down")}
	d := NewDispatcher(st, testJobsConfig(), WithAdapter(adapter))
	ctx := context.Background()

	_, err := d.Submit(ctx, discoverRequest())
	var aErr *AdapterError
	require.ErrorAs(t, err, &aErr)

	list, err := st.ListJobs(ctx, store.JobFilter{Status: model.JobFailed})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].ErrorMessage, "search api down")
}

func TestDiscover_NoAdapterRegistered(t *testing.T) {
	d := NewDispatcher(newTestStore(t), testJobsConfig())

	_, err := d.Submit(context.Background(), discoverRequest())
	var aErr *AdapterError
	assert.ErrorAs(t, err, &aErr)
}

// --- scrape ---

func TestScrape_OnlyApprovedLeadsProcessed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ids := seedWebsiteLeads(t, st, 10, nil)
	_, err := st.SetApproval(ctx, ids[:3], model.ApprovalApproved)
	require.NoError(t, err)

	scraper := &stubScraper{emails: map[string]string{
		"site0.com": "a@site0.com",
		"site1.com": "b@site1.com",
	}}
	d := NewDispatcher(st, testJobsConfig(), WithScraper(scraper))

	receipt, err := d.Submit(ctx, SubmitRequest{Type: model.JobScrape, Manual: true})
	require.NoError(t, err)
	assert.Equal(t, 3, receipt.AcceptedCount)
	assert.Equal(t, 3, scraper.calls)

	// Two found contacts, one terminal no_contact_found; nothing pending
	// among the approved.
	counts := map[model.ScrapeStatus]int{}
	leads, err := st.ListLeads(ctx, store.LeadFilter{})
	require.NoError(t, err)
	for _, l := range leads {
		counts[l.ScrapeStatus]++
	}
	assert.Equal(t, 2, counts[model.ScrapeScraped])
	assert.Equal(t, 1, counts[model.ScrapeNoContactFound])
	assert.Equal(t, 7, counts[model.ScrapePending])
}

func TestScrape_AllItemsSucceedCompletesJob(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedWebsiteLeads(t, st, 1, func(l *model.Lead) {
		l.ApprovalStatus = model.ApprovalApproved
	})
	scraper := &stubScraper{emails: map[string]string{"site0.com": "a@site0.com"}}
	d := NewDispatcher(st, testJobsConfig(), WithScraper(scraper))

	receipt, err := d.Submit(ctx, SubmitRequest{Type: model.JobScrape, Manual: true})
	require.NoError(t, err)

	job, err := st.GetJob(ctx, receipt.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, 1, job.Result.Claimed)
	assert.Equal(t, 1, job.Result.Succeeded)
	assert.Empty(t, job.ErrorMessage)

	failed, err := st.ListJobs(ctx, store.JobFilter{Status: model.JobFailed})
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestScrape_ItemFailureDoesNotBlockOthers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ids := seedWebsiteLeads(t, st, 3, func(l *model.Lead) {
		l.ApprovalStatus = model.ApprovalApproved
	})
	scraper := &stubScraper{
		emails:  map[string]string{"site0.com": "a@site0.com", "site2.com": "c@site2.com"},
		failFor: map[string]bool{"site1.com": true},
	}
	d := NewDispatcher(st, testJobsConfig(), WithScraper(scraper))

	receipt, err := d.Submit(ctx, SubmitRequest{Type: model.JobScrape, Manual: true})
	require.NoError(t, err)

	job, err := st.GetJob(ctx, receipt.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)
	assert.Equal(t, 3, job.Result.Claimed)
	assert.Equal(t, 2, job.Result.Succeeded)
	assert.Equal(t, 1, job.Result.Failed)

	failed, err := st.GetLead(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, model.ScrapeFailed, failed.ScrapeStatus)
}

// --- verify ---

func TestVerify_UndeliverableBecomesUnverifiable(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ids := seedWebsiteLeads(t, st, 1, func(l *model.Lead) {
		l.ApprovalStatus = model.ApprovalApproved
		l.ScrapeStatus = model.ScrapeScraped
		l.Email = "x@site0.com"
	})
	d := NewDispatcher(st, testJobsConfig(), WithVerifier(&stubVerifier{deliverable: false}))

	_, err := d.Submit(ctx, SubmitRequest{Type: model.JobVerify, Manual: true})
	require.NoError(t, err)

	got, err := st.GetLead(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.VerificationUnverifiable, got.VerificationStatus)
}

func TestVerify_ProbeErrorReleasesClaim(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ids := seedWebsiteLeads(t, st, 1, func(l *model.Lead) {
		l.ApprovalStatus = model.ApprovalApproved
		l.ScrapeStatus = model.ScrapeScraped
		l.Email = "x@site0.com"
	})
	d := NewDispatcher(st, testJobsConfig(),
		WithVerifier(&stubVerifier{err: eris.New("dns flake")}))

	receipt, err := d.Submit(ctx, SubmitRequest{Type: model.JobVerify, Manual: true})
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.AcceptedCount)

	// The lead is back to pending for the next run.
	got, err := st.GetLead(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.VerificationPending, got.VerificationStatus)
}

// --- draft ---

func draftReady(l *model.Lead) {
	l.ApprovalStatus = model.ApprovalApproved
	l.ScrapeStatus = model.ScrapeScraped
	l.Email = "x@site0.com"
	l.VerificationStatus = model.VerificationVerified
	l.ReviewStatus = model.ReviewConfirmed
}

func TestDraft_RequiresConfirmedReview(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedWebsiteLeads(t, st, 1, func(l *model.Lead) {
		draftReady(l)
		l.ReviewStatus = model.ReviewPending
	})
	drafter := &stubDrafter{}
	d := NewDispatcher(st, testJobsConfig(), WithDrafter(drafter))

	receipt, err := d.Submit(ctx, SubmitRequest{Type: model.JobDraft, Manual: true})
	require.NoError(t, err)
	assert.Equal(t, 0, receipt.AcceptedCount)
	assert.Empty(t, drafter.requests)
}

func TestDraft_InitialMessage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ids := seedWebsiteLeads(t, st, 1, draftReady)
	drafter := &stubDrafter{}
	d := NewDispatcher(st, testJobsConfig(), WithDrafter(drafter))

	_, err := d.Submit(ctx, SubmitRequest{Type: model.JobDraft, Manual: true})
	require.NoError(t, err)

	require.Len(t, drafter.requests, 1)
	assert.False(t, drafter.requests[0].FollowUp)
	assert.Empty(t, drafter.requests[0].History)

	got, err := st.GetLead(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.DraftDrafted, got.DraftStatus)
	assert.Equal(t, "Hello", got.DraftSubject)
}

func TestFollowUp_DrafterReceivesThreadHistory(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Sent thread root plus a follow-up touch awaiting drafting.
	rootIDs := seedWebsiteLeads(t, st, 1, func(l *model.Lead) {
		draftReady(l)
		l.DraftStatus = model.DraftDrafted
		l.SendStatus = model.SendSent
	})
	require.NoError(t, st.InsertMessage(ctx, &model.Message{
		LeadID: rootIDs[0], ThreadID: rootIDs[0], SequenceIndex: 0,
		Subject: "First touch", Body: "Hello!",
	}))

	touch := &model.Lead{
		SourceType:         model.SourceWebsite,
		NaturalKey:         "site0.com",
		Email:              "x@site0.com",
		ApprovalStatus:     model.ApprovalApproved,
		ScrapeStatus:       model.ScrapeScraped,
		VerificationStatus: model.VerificationVerified,
		ReviewStatus:       model.ReviewConfirmed,
		ThreadID:           rootIDs[0],
		SequenceIndex:      1,
	}
	require.NoError(t, st.CreateLead(ctx, touch))

	drafter := &stubDrafter{}
	d := NewDispatcher(st, testJobsConfig(), WithDrafter(drafter))

	receipt, err := d.Submit(ctx, SubmitRequest{Type: model.JobFollowUp, Manual: true})
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.AcceptedCount)

	require.Len(t, drafter.requests, 1)
	req := drafter.requests[0]
	assert.True(t, req.FollowUp)
	require.Len(t, req.History, 1)
	assert.Equal(t, "First touch", req.History[0].Subject)
}

// --- send ---

func TestSend_CommitsAndRecordsMessage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ids := seedWebsiteLeads(t, st, 1, func(l *model.Lead) {
		draftReady(l)
		l.DraftStatus = model.DraftDrafted
		l.DraftSubject = "Hello"
		l.DraftBody = "Hi there"
	})
	sender := &stubSender{}
	d := NewDispatcher(st, testJobsConfig(), WithSender(sender))

	_, err := d.Submit(ctx, SubmitRequest{Type: model.JobSend, Manual: true})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0]}, sender.sent)

	got, err := st.GetLead(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.SendSent, got.SendStatus)
	require.NotNil(t, got.LastContactedAt)

	msgs, err := st.ThreadMessages(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "msg-"+ids[0], msgs[0].ProviderMessageID)
}

func TestSend_UndraftedLeadNeverClaimed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedWebsiteLeads(t, st, 1, func(l *model.Lead) {
		draftReady(l) // verified but draft still pending
	})
	sender := &stubSender{}
	d := NewDispatcher(st, testJobsConfig(), WithSender(sender))

	receipt, err := d.Submit(ctx, SubmitRequest{Type: model.JobSend, Manual: true})
	require.NoError(t, err)
	assert.Equal(t, 0, receipt.AcceptedCount)
	assert.Empty(t, sender.sent)
}

func TestSend_TransportFailureMarksFailed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ids := seedWebsiteLeads(t, st, 1, func(l *model.Lead) {
		draftReady(l)
		l.DraftStatus = model.DraftDrafted
	})
	d := NewDispatcher(st, testJobsConfig(),
		WithSender(&stubSender{err: eris.New("smtp 550")}))

	receipt, err := d.Submit(ctx, SubmitRequest{Type: model.JobSend, Manual: true})
	require.NoError(t, err)

	job, err := st.GetJob(ctx, receipt.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)
	assert.Equal(t, 1, job.Result.Failed)

	got, err := st.GetLead(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.SendFailed, got.SendStatus)
}

// --- explicit id lists and claims ---

func TestRun_ExplicitIDsSkipIneligible(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ids := seedWebsiteLeads(t, st, 2, nil)
	_, err := st.SetApproval(ctx, ids[:1], model.ApprovalApproved)
	require.NoError(t, err)

	scraper := &stubScraper{emails: map[string]string{"site0.com": "a@site0.com"}}
	d := NewDispatcher(st, testJobsConfig(), WithScraper(scraper))

	receipt, err := d.Submit(ctx, SubmitRequest{
		Type: model.JobScrape, LeadIDs: ids, Manual: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.AcceptedCount)
}

func TestRun_MissingCollaboratorIsJobLevelFault(t *testing.T) {
	st := newTestStore(t)
	seedWebsiteLeads(t, st, 1, func(l *model.Lead) {
		l.ApprovalStatus = model.ApprovalApproved
	})
	d := NewDispatcher(st, testJobsConfig()) // no scraper wired

	_, err := d.Submit(context.Background(), SubmitRequest{Type: model.JobScrape, Manual: true})
	var aErr *AdapterError
	assert.ErrorAs(t, err, &aErr)
}
