package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeadThreadRoot(t *testing.T) {
	original := &Lead{ID: "lead-1"}
	assert.Equal(t, "lead-1", original.ThreadRoot())
	assert.False(t, original.IsFollowUp())

	touch := &Lead{ID: "lead-2", ThreadID: "lead-1", SequenceIndex: 1}
	assert.Equal(t, "lead-1", touch.ThreadRoot())
	assert.True(t, touch.IsFollowUp())
}

func TestLeadSendable(t *testing.T) {
	l := &Lead{VerificationStatus: VerificationVerified, DraftStatus: DraftDrafted}
	assert.True(t, l.Sendable())

	assert.False(t, (&Lead{VerificationStatus: VerificationVerified, DraftStatus: DraftPending}).Sendable())
	assert.False(t, (&Lead{VerificationStatus: VerificationUnverifiable, DraftStatus: DraftDrafted}).Sendable())
}

func TestJobResultRecord(t *testing.T) {
	var r JobResult
	r.Record(ItemResult{LeadID: "a", Outcome: ItemSucceeded})
	r.Record(ItemResult{LeadID: "b", Outcome: ItemFailed, Detail: "boom"})
	r.Record(ItemResult{LeadID: "c", Outcome: ItemSkipped, Detail: "state conflict"})

	assert.Equal(t, 1, r.Succeeded)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 1, r.Skipped)
	assert.Len(t, r.Items, 3)
}
