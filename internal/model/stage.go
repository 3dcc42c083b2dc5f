package model

// Stage is a display stage of the pipeline, in funnel order.
type Stage string

const (
	StageDiscovered Stage = "discovered"
	StageApproved   Stage = "approved"
	StageScraped    Stage = "scraped"
	StageVerified   Stage = "verified"
	StageReviewed   Stage = "reviewed"
	StageDrafted    Stage = "drafted"
	StageSent       Stage = "sent"
)

// StageOrder lists the pipeline stages in funnel order.
var StageOrder = []Stage{
	StageDiscovered,
	StageApproved,
	StageScraped,
	StageVerified,
	StageReviewed,
	StageDrafted,
	StageSent,
}

// StageState is the display state of one stage, derived from live counts.
type StageState string

const (
	StageLocked    StageState = "locked"
	StageActive    StageState = "active"
	StageCompleted StageState = "completed"
)

// StageSnapshot is one stage's recomputed count and state.
type StageSnapshot struct {
	Stage Stage      `json:"stage"`
	Count int        `json:"count"`
	State StageState `json:"state"`
}
