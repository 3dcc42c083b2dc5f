package jobs

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/pkg/firecrawl"
	"github.com/craftline/outreach-cli/pkg/jina"
)

// scrapeLead runs one claimed lead through the scraper and commits the
// outcome. A page without a contact identifier is a normal terminal state,
// not a failure.
func (d *Dispatcher) scrapeLead(ctx context.Context, lead *model.Lead) error {
	res, err := d.scraper.Scrape(ctx, lead)
	if err != nil {
		return eris.Wrap(err, "jobs: scrape lead")
	}
	if res.Email == "" {
		return d.store.ResolveScrape(ctx, lead.ID, model.ScrapeNoContactFound, "", "")
	}
	return d.store.ResolveScrape(ctx, lead.ID, model.ScrapeScraped, res.Email, res.ContactName)
}

// PageScraper extracts contact emails from a lead's site: Firecrawl first,
// Jina Reader as fallback when Firecrawl errors or returns no content.
type PageScraper struct {
	fc   firecrawl.Client
	jina jina.Client
}

// NewPageScraper creates the page-based contact scraper.
func NewPageScraper(fc firecrawl.Client, jinaClient jina.Client) *PageScraper {
	return &PageScraper{fc: fc, jina: jinaClient}
}

func (s *PageScraper) Scrape(ctx context.Context, lead *model.Lead) (*ScrapeResult, error) {
	target := lead.URL
	if target == "" && lead.SourceType == model.SourceWebsite {
		target = "https://" + lead.NaturalKey
	}
	if target == "" {
		return nil, eris.New("scraper: lead has no target url")
	}

	content, err := s.fetch(ctx, target)
	if err != nil {
		return nil, err
	}

	email := extractEmail(content, lead.NaturalKey)
	return &ScrapeResult{Email: email}, nil
}

func (s *PageScraper) fetch(ctx context.Context, target string) (string, error) {
	resp, err := s.fc.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     target,
		Formats: []string{"markdown"},
	})
	if err == nil && resp.Success && resp.Data.Markdown != "" {
		return resp.Data.Markdown, nil
	}
	if err != nil {
		zap.L().Debug("scraper: firecrawl failed, falling back to jina",
			zap.String("url", target), zap.Error(err))
	}

	read, jinaErr := s.jina.Read(ctx, target)
	if jinaErr != nil {
		if err != nil {
			return "", eris.Wrap(err, "scraper: firecrawl and jina both failed")
		}
		return "", eris.Wrap(jinaErr, "scraper: jina read")
	}
	return read.Data.Content, nil
}

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// assetExts excludes image references that match the email pattern, e.g.
// "logo@2x.png".
var assetExts = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"}

// extractEmail picks the best contact email from page content, preferring
// addresses on the lead's own domain.
func extractEmail(content, leadDomain string) string {
	matches := emailRe.FindAllString(content, -1)
	var fallback string
	for _, m := range matches {
		lower := strings.ToLower(m)
		if isAssetRef(lower) || strings.HasSuffix(lower, "example.com") {
			continue
		}
		if leadDomain != "" && strings.HasSuffix(lower, "@"+leadDomain) {
			return lower
		}
		if fallback == "" {
			fallback = lower
		}
	}
	return fallback
}

func isAssetRef(s string) bool {
	for _, ext := range assetExts {
		if strings.HasSuffix(s, ext) {
			return true
		}
	}
	return false
}
