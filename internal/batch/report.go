package batch

import (
	"time"

	"trackpull/internal/model"
	"trackpull/internal/services"
)

// Report aggregates a batch. Outcomes are in input order.
type Report struct {
	BatchID     string
	State       State
	Bound       int
	Outcomes    []model.Outcome
	MaxInFlight int
	Duration    time.Duration
}

// Counts tallies outcomes by status and disposition.
type Counts struct {
	Complete    int
	Redirected  int
	Failed      int
	Cancelled   int
	RetryLater  int
	Unavailable int
}

// Counts tallies the report's outcomes. Cancelled tracks are also counted as
// failed.
func (r Report) Counts() Counts {
	var c Counts
	for _, o := range r.Outcomes {
		switch o.Status {
		case model.StatusComplete:
			c.Complete++
		case model.StatusRedirected:
			c.Redirected++
		case model.StatusFailed:
			c.Failed++
			switch {
			case o.Failure != nil && o.Failure.Kind == services.KindCancelled:
				c.Cancelled++
			case o.Disposition() == model.DispositionRetryLater:
				c.RetryLater++
			default:
				c.Unavailable++
			}
		}
	}
	return c
}
