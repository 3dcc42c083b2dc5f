package gate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

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

func seedLeads(t *testing.T, st store.Store, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lead := &model.Lead{
			SourceType: model.SourceWebsite,
			NaturalKey: string(rune('a'+i)) + ".com",
		}
		require.NoError(t, st.CreateLead(context.Background(), lead))
		ids = append(ids, lead.ID)
	}
	return ids
}

func TestApprove_SubsetLeavesRestPending(t *testing.T) {
	st := newTestStore(t)
	g := New(st)
	ctx := context.Background()

	ids := seedLeads(t, st, 10)

	n, err := g.Approve(ctx, ids[:3])
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	pending, err := st.ListLeads(ctx, store.LeadFilter{ApprovalStatus: model.ApprovalPending})
	require.NoError(t, err)
	assert.Len(t, pending, 7)
}

func TestApprove_AlreadyDecidedNotCounted(t *testing.T) {
	st := newTestStore(t)
	g := New(st)
	ctx := context.Background()

	ids := seedLeads(t, st, 2)
	_, err := g.Reject(ctx, ids[:1])
	require.NoError(t, err)

	n, err := g.Approve(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApprove_NoIDs(t *testing.T) {
	g := New(newTestStore(t))

	_, err := g.Approve(context.Background(), nil)
	assert.Error(t, err)
}

func TestDelete_RemovesRows(t *testing.T) {
	st := newTestStore(t)
	g := New(st)
	ctx := context.Background()

	ids := seedLeads(t, st, 3)

	n, err := g.Delete(ctx, ids[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = st.GetLead(ctx, ids[0])
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConfirmReview_OnlyVerifiedLeads(t *testing.T) {
	st := newTestStore(t)
	g := New(st)
	ctx := context.Background()

	ids := seedLeads(t, st, 2)

	// Walk the first lead to verified.
	_, err := st.SetApproval(ctx, ids[:1], model.ApprovalApproved)
	require.NoError(t, err)
	_, err = st.ClaimLeads(ctx, model.JobScrape, ids[:1], 1)
	require.NoError(t, err)
	require.NoError(t, st.ResolveScrape(ctx, ids[0], model.ScrapeScraped, "x@a.com", ""))
	_, err = st.ClaimLeads(ctx, model.JobVerify, ids[:1], 1)
	require.NoError(t, err)
	require.NoError(t, st.ResolveVerification(ctx, ids[0], model.VerificationVerified))

	n, err := g.ConfirmReview(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
