package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/craftline/outreach-cli/internal/dedup"
	"github.com/craftline/outreach-cli/internal/gate"
	"github.com/craftline/outreach-cli/internal/jobs"
	"github.com/craftline/outreach-cli/internal/pipeline"
	"github.com/craftline/outreach-cli/internal/store"
	"github.com/craftline/outreach-cli/pkg/anthropic"
	"github.com/craftline/outreach-cli/pkg/emailverify"
	"github.com/craftline/outreach-cli/pkg/firecrawl"
	"github.com/craftline/outreach-cli/pkg/jina"
	"github.com/craftline/outreach-cli/pkg/mailer"
	"github.com/craftline/outreach-cli/pkg/places"
	"github.com/craftline/outreach-cli/pkg/serp"
)

// socialPlatforms maps each supported social platform to its profile host.
var socialPlatforms = map[string]string{
	"instagram": "instagram.com",
	"tiktok":    "tiktok.com",
	"youtube":   "youtube.com",
}

// appEnv bundles the wired application components for a command run.
type appEnv struct {
	Store      store.Store
	Resolver   *dedup.Resolver
	Gate       *gate.Gate
	Dispatcher *jobs.Dispatcher
	Aggregator *pipeline.Aggregator
}

func (e *appEnv) Close() {
	_ = e.Store.Close()
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "outreach.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv wires the store, dedup resolver, gate, dispatcher with all stage
// adapters, and the status aggregator.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}

	placesClient := places.NewClient(cfg.Places.Key,
		places.WithBaseURL(cfg.Places.BaseURL),
		places.WithHTTPClient(httpClient),
	)
	serpClient := serp.NewClient(cfg.Serp.Key,
		serp.WithBaseURL(cfg.Serp.BaseURL),
		serp.WithModel(cfg.Serp.Model),
		serp.WithHTTPClient(httpClient),
	)
	fcClient := firecrawl.NewClient(cfg.Firecrawl.Key,
		firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL),
		firecrawl.WithHTTPClient(httpClient),
	)
	jinaClient := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithHTTPClient(httpClient),
	)
	claudeClient := anthropic.NewClient(cfg.Anthropic.Key)
	smtpSender := mailer.NewSMTP(mailer.Config{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
	})

	var drafterOpts []jobs.DrafterOption
	if cfg.Anthropic.StyleFile != "" {
		style, err := jobs.LoadStyle(cfg.Anthropic.StyleFile)
		if err != nil {
			return nil, err
		}
		drafterOpts = append(drafterOpts, jobs.WithStyle(style))
	}

	opts := []jobs.Option{
		jobs.WithAdapter(jobs.NewPlacesAdapter(placesClient, cfg.Places.RateLimit)),
		jobs.WithScraper(jobs.NewPageScraper(fcClient, jinaClient)),
		jobs.WithVerifier(jobs.NewEmailVerifier(emailverify.New())),
		jobs.WithDrafter(jobs.NewClaudeDrafter(claudeClient, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, drafterOpts...)),
		jobs.WithSender(jobs.NewMailSender(smtpSender)),
	}
	for platform, domain := range socialPlatforms {
		opts = append(opts, jobs.WithAdapter(
			jobs.NewSerpAdapter(serpClient, platform, domain, cfg.Serp.RateLimit)))
	}

	return &appEnv{
		Store:      st,
		Resolver:   dedup.NewResolver(st),
		Gate:       gate.New(st),
		Dispatcher: jobs.NewDispatcher(st, cfg.Jobs, opts...),
		Aggregator: pipeline.NewAggregator(st),
	}, nil
}
