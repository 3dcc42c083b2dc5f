package store

import (
	"github.com/rotisserie/eris"

	"github.com/craftline/outreach-cli/internal/model"
)

// stageRule describes, for one job type, which status column holds the claim
// marker and the SQL predicate a lead must satisfy to be claimed. Predicates
// are parameter-free fragments shared by both backends.
type stageRule struct {
	column      string
	eligibility string
}

var stageRules = map[model.JobType]stageRule{
	model.JobScrape: {
		column:      "scrape_status",
		eligibility: `approval_status = 'approved' AND scrape_status = 'pending'`,
	},
	model.JobVerify: {
		column:      "verification_status",
		eligibility: `scrape_status = 'scraped' AND verification_status = 'pending' AND email != ''`,
	},
	model.JobDraft: {
		column: "draft_status",
		eligibility: `verification_status = 'verified' AND review_status = 'confirmed'
			AND draft_status = 'pending' AND email != '' AND sequence_index = 0`,
	},
	model.JobFollowUp: {
		column: "draft_status",
		eligibility: `verification_status = 'verified' AND draft_status = 'pending'
			AND email != '' AND sequence_index > 0`,
	},
	model.JobSend: {
		column: "send_status",
		eligibility: `verification_status = 'verified' AND draft_status = 'drafted'
			AND send_status = 'pending'`,
	},
}

func ruleFor(jobType model.JobType) (stageRule, error) {
	r, ok := stageRules[jobType]
	if !ok {
		return stageRule{}, eris.Errorf("store: job type %q does not claim leads", jobType)
	}
	return r, nil
}
