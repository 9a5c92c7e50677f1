// Package orchestrator runs one Withings to Fitbit sync: refresh source
// tokens, fetch today's measurements, refresh destination tokens, post
// weight and body fat, then notify the operator.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bassista/go_weightsync/internal/logger"
	"github.com/bassista/go_weightsync/internal/measure"
	"github.com/bassista/go_weightsync/internal/notify"
	"github.com/bassista/go_weightsync/internal/provider/fitbit"
	"github.com/bassista/go_weightsync/internal/reporting"
	"github.com/bassista/go_weightsync/internal/repository"
	"golang.org/x/sync/errgroup"
)

// TokenAcquirer yields fresh tokens for a provider.
type TokenAcquirer interface {
	Acquire(ctx context.Context, provider repository.Provider) (*repository.TokenRecord, error)
}

// MeasureSource fetches measurement groups updated since a given instant.
type MeasureSource interface {
	GetMeasures(ctx context.Context, accessToken string, since time.Time) ([]measure.Group, error)
}

// BodyLog records weight and body fat at the destination.
type BodyLog interface {
	LogWeight(ctx context.Context, accessToken, weight, date, clock string) (*fitbit.PostResult, error)
	LogFat(ctx context.Context, accessToken, fat, date, clock string) (*fitbit.PostResult, error)
}

// Settings are the run parameters taken from configuration.
type Settings struct {
	Location *time.Location
	// Debug also notifies when there is nothing to sync.
	Debug bool
	Title string
}

type Orchestrator struct {
	settings Settings
	tokens   TokenAcquirer
	source   MeasureSource
	dest     BodyLog
	notifier notify.Notifier
	reporter reporting.Reporter
	now      func() time.Time

	// running serializes runs so two refreshes never race on the token files.
	running sync.Mutex

	lastMu sync.RWMutex
	last   *Result
}

func New(settings Settings, tokens TokenAcquirer, source MeasureSource, dest BodyLog, notifier notify.Notifier, reporter reporting.Reporter) *Orchestrator {
	if settings.Location == nil {
		settings.Location = time.Local
	}
	if settings.Title == "" {
		settings.Title = "Withings2Fitbit"
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if reporter == nil {
		reporter = reporting.NopReporter{}
	}
	return &Orchestrator{
		settings: settings,
		tokens:   tokens,
		source:   source,
		dest:     dest,
		notifier: notifier,
		reporter: reporter,
		now:      time.Now,
	}
}

// Run performs one sync. It never returns an error: failures are logged,
// reported, notified and recorded in the Result. A call made while another
// run is in progress returns immediately with OutcomeSkipped.
func (o *Orchestrator) Run(ctx context.Context) Result {
	log := logger.WithComponent("sync")

	if !o.running.TryLock() {
		log.Warn("sync already in progress, skipping this trigger")
		now := o.now()
		return Result{Outcome: OutcomeSkipped, StartedAt: now, FinishedAt: now}
	}
	defer o.running.Unlock()

	res := o.run(ctx)
	res.FinishedAt = o.now()

	o.lastMu.Lock()
	o.last = &res
	o.lastMu.Unlock()

	log.WithField("outcome", res.Outcome).WithField("state", res.State).Infof("sync finished in %s", res.FinishedAt.Sub(res.StartedAt))
	return res
}

// LastResult returns the most recent completed run, if any.
func (o *Orchestrator) LastResult() (Result, bool) {
	o.lastMu.RLock()
	defer o.lastMu.RUnlock()
	if o.last == nil {
		return Result{}, false
	}
	return *o.last, true
}

func (o *Orchestrator) run(ctx context.Context) Result {
	log := logger.WithComponent("sync")
	now := o.now()
	res := Result{StartedAt: now}

	res.State = StateFetchSourceTokens
	sourceTokens, err := o.tokens.Acquire(ctx, repository.ProviderWithings)
	if err != nil {
		return o.fail(ctx, res, "Error acquiring source tokens", err)
	}

	res.State = StateFetchMeasurements
	startOfDay := measure.StartOfDay(now, o.settings.Location)
	log.Debugf("fetching measurements since %s", startOfDay.Format(time.RFC3339))
	groups, err := o.source.GetMeasures(ctx, sourceTokens.AccessToken, startOfDay)
	if err != nil {
		return o.fail(ctx, res, "Error fetching Withings data", err)
	}

	// lastupdate matches modification time, so older readings edited today
	// can come back; only readings taken today count.
	groups = measure.OnOrAfter(groups, startOfDay)
	if len(groups) == 0 {
		res.State = StateNoData
		res.Outcome = OutcomeNoData
		log.Info("no weight data to log today")
		if o.settings.Debug {
			o.notifier.Notify(ctx, o.settings.Title, "No weight data to log today.")
		}
		return res
	}

	reading := measure.Parse(groups[0], o.settings.Location)
	res.Reading = &reading
	log.Debugf("reading: weight=%s fat=%s date=%s time=%s", deref(reading.Weight), deref(reading.Fat), reading.Date, reading.Time)

	res.State = StateFetchDestinationTokens
	destTokens, err := o.tokens.Acquire(ctx, repository.ProviderFitbit)
	if err != nil {
		return o.fail(ctx, res, "Error acquiring destination tokens", err)
	}

	res.State = StatePostMeasurements
	o.post(ctx, destTokens.AccessToken, reading, &res)

	if res.WeightPosted && res.FatPosted {
		res.State = StateDone
		res.Outcome = OutcomeSuccess
		o.notifier.Notify(ctx, o.settings.Title, fmt.Sprintf(
			"Withings data successfully sent to Fitbit: (Body Fat: %s Weight: %s, Date: %s, Time: %s)",
			*reading.Fat, *reading.Weight, reading.Date, reading.Time))
		return res
	}

	msg := fmt.Sprintf("Error sending Withings data to Fitbit: weight: %s, body fat: %s",
		describePost(res.WeightStatus, res.WeightPosted, reading.Weight),
		describePost(res.FatStatus, res.FatPosted, reading.Fat))
	if len(res.Errors) > 0 {
		msg += " (" + strings.Join(res.Errors, "; ") + ")"
	}
	res.Outcome = OutcomeFailed
	log.Error(msg)
	o.notifier.Notify(ctx, o.settings.Title, msg)
	o.reporter.Report(errors.New(msg), []string{"sync", "post"}, map[string]any{"state": string(res.State)})
	return res
}

// post issues both destination calls concurrently and waits for both.
func (o *Orchestrator) post(ctx context.Context, accessToken string, reading measure.Reading, res *Result) {
	var (
		weightRes, fatRes *fitbit.PostResult
		weightErr, fatErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		if reading.Weight == nil {
			weightErr = errors.New("no weight measurement in group")
			return nil
		}
		weightRes, weightErr = o.dest.LogWeight(ctx, accessToken, *reading.Weight, reading.Date, reading.Time)
		return nil
	})
	g.Go(func() error {
		if reading.Fat == nil {
			fatErr = errors.New("no body fat measurement in group")
			return nil
		}
		fatRes, fatErr = o.dest.LogFat(ctx, accessToken, *reading.Fat, reading.Date, reading.Time)
		return nil
	})
	_ = g.Wait()

	if weightRes != nil {
		res.WeightStatus = weightRes.StatusCode
		res.WeightPosted = weightRes.Created()
	}
	if fatRes != nil {
		res.FatStatus = fatRes.StatusCode
		res.FatPosted = fatRes.Created()
	}
	res.addError(weightErr)
	res.addError(fatErr)
}

func (o *Orchestrator) fail(ctx context.Context, res Result, summary string, err error) Result {
	res.Outcome = OutcomeFailed
	res.addError(err)
	logger.WithComponent("sync").WithField("state", res.State).Errorf("%s: %v", summary, err)
	o.notifier.Notify(ctx, o.settings.Title, fmt.Sprintf("%s: %v", summary, err))
	o.reporter.Report(err, []string{"sync"}, map[string]any{"state": string(res.State)})
	return res
}

func describePost(status int, posted bool, value *string) string {
	switch {
	case value == nil:
		return "no measurement"
	case status == 0:
		return "not sent"
	case posted:
		return strconv.Itoa(status) + " (created)"
	default:
		return strconv.Itoa(status)
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
