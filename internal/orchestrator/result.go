package orchestrator

import (
	"time"

	"github.com/bassista/go_weightsync/internal/measure"
)

// State names a step of a sync run.
type State string

const (
	StateFetchSourceTokens      State = "fetch_source_tokens"
	StateFetchMeasurements      State = "fetch_measurements"
	StateNoData                 State = "no_data"
	StateFetchDestinationTokens State = "fetch_destination_tokens"
	StatePostMeasurements       State = "post_measurements"
	StateDone                   State = "done"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeNoData  Outcome = "no_data"
	OutcomeFailed  Outcome = "failed"
	// OutcomeSkipped means another run held the guard.
	OutcomeSkipped Outcome = "skipped"
)

// Result describes one run. It drives the notification and is kept as the
// last result for status queries.
type Result struct {
	Outcome Outcome `json:"outcome"`
	// State is the last state reached; for failed runs, the failing step.
	State        State            `json:"state"`
	WeightPosted bool             `json:"weight_posted"`
	FatPosted    bool             `json:"fat_posted"`
	WeightStatus int              `json:"weight_status,omitempty"`
	FatStatus    int              `json:"fat_status,omitempty"`
	Reading      *measure.Reading `json:"reading,omitempty"`
	Errors       []string         `json:"errors,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
}

// Failed reports whether the run ended in failure.
func (r Result) Failed() bool {
	return r.Outcome == OutcomeFailed
}

func (r *Result) addError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}
