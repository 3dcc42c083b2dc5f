package jobs

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/craftline/outreach-cli/internal/dedup"
	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/internal/resilience"
	"github.com/craftline/outreach-cli/pkg/places"
	"github.com/craftline/outreach-cli/pkg/serp"
)

// runDiscover executes a discovery job: select the adapter, record the query
// row, resolve each candidate through dedup, and persist the outcome
// counters. Adapter failure before any candidate is a job-level fault.
func (d *Dispatcher) runDiscover(ctx context.Context, job *model.Job, req *model.DiscoveryRequest) (*model.JobResult, error) {
	platform := req.Platform
	if req.SourceType == model.SourceWebsite {
		platform = PlatformWebsite
	}
	adapter, ok := d.adapters[platform]
	if !ok {
		return nil, &AdapterError{Adapter: platform, Err: eris.New("no adapter registered")}
	}

	query := &model.DiscoveryQuery{
		ID:         uuid.New().String(),
		SourceType: req.SourceType,
		Platform:   req.Platform,
		Filters:    req.Filters,
		CreatedAt:  time.Now().UTC(),
	}
	if err := d.store.CreateQuery(ctx, query); err != nil {
		return nil, eris.Wrap(err, "jobs: create discovery query")
	}

	candidates, err := resilience.DoVal(ctx, d.retry, func(ctx context.Context) ([]model.Candidate, error) {
		return adapter.Discover(ctx, req.Filters)
	})
	if err != nil {
		return nil, &AdapterError{Adapter: platform, Err: err}
	}

	var (
		counters model.QueryCounters
		result   model.JobResult
	)
	counters.Found = len(candidates)
	result.Claimed = len(candidates)

	for _, cand := range candidates {
		res, resolveErr := d.resolver.Resolve(ctx, cand, query.ID)
		if resolveErr != nil {
			counters.Failed++
			result.Record(model.ItemResult{Outcome: model.ItemFailed, Detail: resolveErr.Error()})
			zap.L().Warn("jobs: candidate resolution failed",
				zap.String("natural_key", cand.NaturalKey), zap.Error(resolveErr))
			continue
		}
		switch res.Outcome {
		case dedup.OutcomeSaved:
			counters.Saved++
			result.Record(model.ItemResult{LeadID: res.Lead.ID, Outcome: model.ItemSucceeded})
		case dedup.OutcomeSkippedDuplicate:
			counters.SkippedDuplicate++
			result.Record(model.ItemResult{LeadID: res.Lead.ID, Outcome: model.ItemSkipped, Detail: "duplicate"})
		case dedup.OutcomeSkippedExisting:
			counters.SkippedExisting++
			result.Record(model.ItemResult{LeadID: res.Lead.ID, Outcome: model.ItemSkipped, Detail: "follow-up touch"})
		}
	}

	if err := d.store.CompleteQuery(ctx, query.ID, counters); err != nil {
		return nil, eris.Wrap(err, "jobs: complete discovery query")
	}

	zap.L().Info("jobs: discovery finished",
		zap.String("platform", platform),
		zap.Int("found", counters.Found),
		zap.Int("saved", counters.Saved),
		zap.Int("skipped_duplicate", counters.SkippedDuplicate),
		zap.Int("skipped_existing", counters.SkippedExisting),
		zap.Int("failed", counters.Failed),
	)
	return &result, nil
}

// PlatformWebsite is the registry key for the website discovery adapter.
const PlatformWebsite = "website"

// PlacesAdapter discovers website leads through a text search over a places
// API. Each result with a website becomes a candidate keyed by its domain.
type PlacesAdapter struct {
	client  places.Client
	limiter *rate.Limiter
}

// NewPlacesAdapter creates the website discovery adapter. rps bounds request
// rate against the places API.
func NewPlacesAdapter(client places.Client, rps float64) *PlacesAdapter {
	if rps <= 0 {
		rps = 1
	}
	return &PlacesAdapter{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (a *PlacesAdapter) Platform() string { return PlatformWebsite }

func (a *PlacesAdapter) Discover(ctx context.Context, filters model.DiscoveryFilters) ([]model.Candidate, error) {
	terms := append([]string{}, filters.Keywords...)
	terms = append(terms, filters.Categories...)
	if len(terms) == 0 {
		return nil, eris.New("places adapter: no search terms")
	}

	locations := filters.Locations
	if len(locations) == 0 {
		locations = []string{""}
	}

	maxResults := filters.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	seen := make(map[string]bool)
	var out []model.Candidate
	for _, loc := range locations {
		if len(out) >= maxResults {
			break
		}
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "places adapter: rate limit wait")
		}

		query := strings.Join(terms, " ")
		if loc != "" {
			query += " in " + loc
		}
		resp, err := a.client.TextSearch(ctx, places.TextSearchRequest{
			TextQuery:      query,
			MaxResultCount: maxResults - len(out),
		})
		if err != nil {
			return nil, eris.Wrap(err, "places adapter: text search")
		}

		for _, p := range resp.Places {
			if p.WebsiteURI == "" {
				continue
			}
			key := model.NormalizeDomain(p.WebsiteURI)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, model.Candidate{
				SourceType: model.SourceWebsite,
				NaturalKey: key,
				Name:       p.DisplayName.Text,
				URL:        p.WebsiteURI,
			})
			if len(out) >= maxResults {
				break
			}
		}
	}
	return out, nil
}

// SerpAdapter discovers social-profile leads by asking a SERP completion API
// for profile URLs on one platform and parsing them out of the answer.
type SerpAdapter struct {
	client   serp.Client
	platform string
	domain   string
	limiter  *rate.Limiter
}

// NewSerpAdapter creates a social discovery adapter for one platform.
// domain is the platform's profile host, e.g. "instagram.com".
func NewSerpAdapter(client serp.Client, platform, domain string, rps float64) *SerpAdapter {
	if rps <= 0 {
		rps = 1
	}
	return &SerpAdapter{
		client:   client,
		platform: platform,
		domain:   domain,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (a *SerpAdapter) Platform() string { return a.platform }

func (a *SerpAdapter) Discover(ctx context.Context, filters model.DiscoveryFilters) ([]model.Candidate, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "serp adapter: rate limit wait")
	}

	maxResults := filters.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	prompt := a.buildPrompt(filters, maxResults)
	resp, err := a.client.ChatCompletion(ctx, serp.ChatCompletionRequest{
		Messages: []serp.Message{
			{Role: "system", Content: "You find public social media profiles. Answer with one profile URL per line and nothing else."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "serp adapter: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("serp adapter: empty completion")
	}

	return a.parseProfiles(resp.Choices[0].Message.Content, maxResults), nil
}

func (a *SerpAdapter) buildPrompt(filters model.DiscoveryFilters, maxResults int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find up to %d %s profiles", maxResults, a.platform)
	if len(filters.Keywords) > 0 || len(filters.Categories) > 0 {
		terms := append(append([]string{}, filters.Keywords...), filters.Categories...)
		fmt.Fprintf(&b, " for: %s", strings.Join(terms, ", "))
	}
	if len(filters.Locations) > 0 {
		fmt.Fprintf(&b, " located in %s", strings.Join(filters.Locations, ", "))
	}
	b.WriteString(".")
	return b.String()
}

var profilePathRe = regexp.MustCompile(`^/?@?([A-Za-z0-9._-]{2,64})/?$`)

// parseProfiles extracts profile handles from completion text. Only URLs on
// the adapter's platform domain count; everything else is ignored.
func (a *SerpAdapter) parseProfiles(content string, maxResults int) []model.Candidate {
	seen := make(map[string]bool)
	var out []model.Candidate
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "-*• "))
		if line == "" {
			continue
		}
		idx := strings.Index(line, a.domain)
		if idx < 0 {
			continue
		}
		path := line[idx+len(a.domain):]
		if i := strings.IndexAny(path, "?# "); i >= 0 {
			path = path[:i]
		}
		m := profilePathRe.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		handle := m[1]
		key := model.SocialKey(a.platform, handle)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Candidate{
			SourceType:     model.SourceSocial,
			SourcePlatform: a.platform,
			NaturalKey:     key,
			Name:           handle,
			URL:            "https://" + a.domain + "/" + handle,
		})
		if len(out) >= maxResults {
			break
		}
	}
	return out
}
