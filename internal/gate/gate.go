// Package gate implements the human approval gate and review confirmation.
// It is the sole writer of approval_status and review_status.
package gate

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/internal/store"
)

// Gate performs bulk operator actions on discovered leads.
type Gate struct {
	store store.Store
}

// New creates an approval gate.
func New(st store.Store) *Gate {
	return &Gate{store: st}
}

// Approve marks the given leads as approved and returns how many rows
// changed. Already-decided leads are left untouched.
func (g *Gate) Approve(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, eris.New("gate: no lead ids given")
	}
	n, err := g.store.SetApproval(ctx, ids, model.ApprovalApproved)
	if err != nil {
		return 0, eris.Wrap(err, "gate: approve")
	}
	zap.L().Info("gate: leads approved", zap.Int("requested", len(ids)), zap.Int("approved", n))
	return n, nil
}

// Reject marks the given leads as rejected and returns how many rows changed.
func (g *Gate) Reject(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, eris.New("gate: no lead ids given")
	}
	n, err := g.store.SetApproval(ctx, ids, model.ApprovalRejected)
	if err != nil {
		return 0, eris.Wrap(err, "gate: reject")
	}
	zap.L().Info("gate: leads rejected", zap.Int("requested", len(ids)), zap.Int("rejected", n))
	return n, nil
}

// Delete removes the given leads entirely. Job history rows referencing them
// are retained for audit.
func (g *Gate) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, eris.New("gate: no lead ids given")
	}
	n, err := g.store.DeleteLeads(ctx, ids)
	if err != nil {
		return 0, eris.Wrap(err, "gate: delete")
	}
	zap.L().Info("gate: leads deleted", zap.Int("requested", len(ids)), zap.Int("deleted", n))
	return n, nil
}

// ConfirmReview marks verified leads as reviewed, unblocking drafting. Only
// leads with a verified contact are eligible; others are not counted.
func (g *Gate) ConfirmReview(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, eris.New("gate: no lead ids given")
	}
	n, err := g.store.ConfirmReview(ctx, ids)
	if err != nil {
		return 0, eris.Wrap(err, "gate: confirm review")
	}
	zap.L().Info("gate: review confirmed", zap.Int("requested", len(ids)), zap.Int("confirmed", n))
	return n, nil
}
