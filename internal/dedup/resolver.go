// Package dedup resolves discovery candidates against existing leads by
// natural key, turning a re-discovery of a contacted lead into a follow-up
// touch instead of a duplicate row.
package dedup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/internal/store"
)

// Outcome classifies how a candidate was resolved.
type Outcome string

const (
	// OutcomeSaved means a brand-new lead was created.
	OutcomeSaved Outcome = "saved"
	// OutcomeSkippedDuplicate means the natural key already exists and the
	// existing lead has not been contacted yet.
	OutcomeSkippedDuplicate Outcome = "skipped_duplicate"
	// OutcomeSkippedExisting means the natural key belongs to an already
	// contacted lead; a follow-up touch was appended to its thread.
	OutcomeSkippedExisting Outcome = "skipped_existing"
	// OutcomeFailed means the candidate could not be resolved.
	OutcomeFailed Outcome = "failed"
)

// Resolution is the result of resolving one candidate.
type Resolution struct {
	Outcome Outcome
	// Lead is the created row for saved and skipped_existing outcomes, the
	// matched existing row for skipped_duplicate, nil for failed.
	Lead *model.Lead
}

// Resolver applies the dedup and thread-tracking rules. Both automated
// discovery and manual lead entry go through Resolve.
type Resolver struct {
	store store.Store
}

// NewResolver creates a dedup resolver.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Resolve looks up the candidate's natural key and either creates a new
// lead, skips a not-yet-contacted duplicate, or appends a follow-up touch
// to an already-contacted thread. queryID links created rows back to the
// discovery invocation; empty for manual entry.
func (r *Resolver) Resolve(ctx context.Context, cand model.Candidate, queryID string) (*Resolution, error) {
	if cand.NaturalKey == "" {
		return nil, eris.New("dedup: candidate natural key is required")
	}
	if cand.SourceType == model.SourceSocial && cand.SourcePlatform == "" {
		return nil, eris.New("dedup: social candidate requires a platform")
	}

	root, err := r.store.GetThreadRoot(ctx, cand.SourceType, cand.NaturalKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return r.createOriginal(ctx, cand, queryID)
	case err != nil:
		return nil, eris.Wrap(err, "dedup: lookup natural key")
	}

	if root.SendStatus != model.SendSent {
		zap.L().Debug("dedup: skipped duplicate",
			zap.String("natural_key", cand.NaturalKey),
			zap.String("lead_id", root.ID),
		)
		return &Resolution{Outcome: OutcomeSkippedDuplicate, Lead: root}, nil
	}

	touch, err := r.createFollowUp(ctx, cand, root, queryID)
	if err != nil {
		return nil, err
	}
	return &Resolution{Outcome: OutcomeSkippedExisting, Lead: touch}, nil
}

func (r *Resolver) createOriginal(ctx context.Context, cand model.Candidate, queryID string) (*Resolution, error) {
	now := time.Now().UTC()
	lead := &model.Lead{
		ID:                 uuid.New().String(),
		SourceType:         cand.SourceType,
		SourcePlatform:     cand.SourcePlatform,
		NaturalKey:         cand.NaturalKey,
		Name:               cand.Name,
		URL:                cand.URL,
		ApprovalStatus:     model.ApprovalPending,
		ScrapeStatus:       model.ScrapePending,
		VerificationStatus: model.VerificationPending,
		ReviewStatus:       model.ReviewPending,
		DraftStatus:        model.DraftPending,
		SendStatus:         model.SendPending,
		SequenceIndex:      0,
		DiscoveryQueryID:   queryID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := r.store.CreateLead(ctx, lead); err != nil {
		// Lost a create race to a concurrent discovery of the same key; the
		// winner's row stands.
		if errors.Is(err, store.ErrConflict) {
			existing, lookupErr := r.store.GetThreadRoot(ctx, cand.SourceType, cand.NaturalKey)
			if lookupErr != nil {
				return nil, eris.Wrap(lookupErr, "dedup: reload after create conflict")
			}
			return &Resolution{Outcome: OutcomeSkippedDuplicate, Lead: existing}, nil
		}
		return nil, eris.Wrap(err, "dedup: create lead")
	}
	zap.L().Debug("dedup: saved new lead",
		zap.String("natural_key", cand.NaturalKey),
		zap.String("lead_id", lead.ID),
	)
	return &Resolution{Outcome: OutcomeSaved, Lead: lead}, nil
}

// maxSequenceAttempts bounds the re-reads when concurrent re-discoveries of
// the same key race for the next sequence slot.
const maxSequenceAttempts = 3

// createFollowUp appends a touch to the root's thread. Upstream statuses are
// inherited from the contacted root so only drafting and sending remain for
// the new touch. A lost race for the sequence slot re-reads the max and takes
// the next one.
func (r *Resolver) createFollowUp(ctx context.Context, cand model.Candidate, root *model.Lead, queryID string) (*model.Lead, error) {
	for attempt := 0; attempt < maxSequenceAttempts; attempt++ {
		maxSeq, err := r.store.MaxSequenceIndex(ctx, root.ThreadRoot())
		if err != nil {
			return nil, eris.Wrap(err, "dedup: max sequence index")
		}

		now := time.Now().UTC()
		touch := &model.Lead{
			ID:                 uuid.New().String(),
			SourceType:         root.SourceType,
			SourcePlatform:     root.SourcePlatform,
			NaturalKey:         root.NaturalKey,
			Name:               firstNonEmpty(cand.Name, root.Name),
			URL:                firstNonEmpty(cand.URL, root.URL),
			ContactName:        root.ContactName,
			Email:              root.Email,
			ApprovalStatus:     model.ApprovalApproved,
			ScrapeStatus:       model.ScrapeScraped,
			VerificationStatus: model.VerificationVerified,
			ReviewStatus:       model.ReviewConfirmed,
			DraftStatus:        model.DraftPending,
			SendStatus:         model.SendPending,
			ThreadID:           root.ThreadRoot(),
			SequenceIndex:      maxSeq + 1,
			DiscoveryQueryID:   queryID,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		err = r.store.CreateLead(ctx, touch)
		if errors.Is(err, store.ErrConflict) {
			zap.L().Debug("dedup: sequence slot taken, retrying",
				zap.String("thread_id", touch.ThreadID),
				zap.Int("sequence_index", touch.SequenceIndex),
			)
			continue
		}
		if err != nil {
			return nil, eris.Wrap(err, "dedup: create follow-up touch")
		}
		zap.L().Info("dedup: follow-up touch created",
			zap.String("natural_key", root.NaturalKey),
			zap.String("thread_id", touch.ThreadID),
			zap.Int("sequence_index", touch.SequenceIndex),
		)
		return touch, nil
	}
	return nil, eris.Errorf("dedup: no free sequence slot in thread %s", root.ThreadRoot())
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
