package jobs

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/pkg/emailverify"
)

// verifyLead probes the scraped contact and commits verified or
// unverifiable. A probe error releases the claim for a later run.
func (d *Dispatcher) verifyLead(ctx context.Context, lead *model.Lead) error {
	if lead.Email == "" {
		return eris.New("jobs: verify lead has no email")
	}
	res, err := d.verifier.Verify(ctx, lead.Email)
	if err != nil {
		return eris.Wrap(err, "jobs: verify lead")
	}

	status := model.VerificationUnverifiable
	if res.Deliverable {
		status = model.VerificationVerified
	}
	return d.store.ResolveVerification(ctx, lead.ID, status)
}

// EmailVerifier adapts the emailverify probe to the dispatcher's Verifier.
type EmailVerifier struct {
	probe emailverify.Verifier
}

// NewEmailVerifier creates the email verification adapter.
func NewEmailVerifier(probe emailverify.Verifier) *EmailVerifier {
	return &EmailVerifier{probe: probe}
}

func (v *EmailVerifier) Verify(ctx context.Context, email string) (*VerifyResult, error) {
	res, err := v.probe.Verify(ctx, email)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Deliverable: res.Deliverable, Reason: res.Reason}, nil
}
