// Package pipeline recomputes the funnel's displayed stage counts and
// unlock states from live store contents.
package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/internal/store"
)

// ErrUnavailable reports that stage counts could not be computed because the
// storage schema is not provisioned. Callers must surface this explicitly
// rather than show an empty funnel.
var ErrUnavailable = eris.New("pipeline: status unavailable")

// Aggregator derives stage snapshots from the lead store. It keeps no cached
// counters; every call re-queries.
type Aggregator struct {
	store store.Store
}

// NewAggregator creates a status aggregator.
func NewAggregator(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Status returns one snapshot per pipeline stage in funnel order. A stage is
// completed when it holds leads, active when its predecessor holds leads,
// and locked otherwise; the first stage is always at least active.
func (a *Aggregator) Status(ctx context.Context) ([]model.StageSnapshot, error) {
	counts, err := a.store.CountByStage(ctx)
	if err != nil {
		if errors.Is(err, store.ErrSchemaUnavailable) {
			return nil, eris.Wrap(ErrUnavailable, err.Error())
		}
		return nil, eris.Wrap(err, "pipeline: count stages")
	}

	snapshots := make([]model.StageSnapshot, 0, len(model.StageOrder))
	prevCount := 0
	for i, stage := range model.StageOrder {
		count := counts[stage]
		state := model.StageLocked
		switch {
		case count > 0:
			state = model.StageCompleted
		case i == 0 || prevCount > 0:
			state = model.StageActive
		}
		snapshots = append(snapshots, model.StageSnapshot{
			Stage: stage,
			Count: count,
			State: state,
		})
		prevCount = count
	}
	return snapshots, nil
}
