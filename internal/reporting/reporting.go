// Package reporting forwards failures to Honeybadger when an API key is set.
package reporting

import (
	"github.com/bassista/go_weightsync/internal/logger"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
)

type Reporter interface {
	Report(err error, tags []string, fields map[string]any)
	Flush()
}

type HoneybadgerReporter struct {
	client *honeybadger.Client
}

func NewHoneybadgerReporter(apiKey, env string) *HoneybadgerReporter {
	return &HoneybadgerReporter{
		client: honeybadger.New(honeybadger.Configuration{
			APIKey: apiKey,
			Env:    env,
		}),
	}
}

func (r *HoneybadgerReporter) Report(err error, tags []string, fields map[string]any) {
	if err == nil {
		return
	}
	if _, nerr := r.client.Notify(err, honeybadger.Context(fields), honeybadger.Tags(tags)); nerr != nil {
		logger.WithComponent("reporting").Warnf("honeybadger notify failed: %v", nerr)
	}
}

func (r *HoneybadgerReporter) Flush() {
	r.client.Flush()
}

// NopReporter drops every report.
type NopReporter struct{}

func (NopReporter) Report(error, []string, map[string]any) {}

func (NopReporter) Flush() {}

// New returns a Honeybadger reporter when apiKey is set, NopReporter otherwise.
func New(apiKey, env string) Reporter {
	if apiKey == "" {
		logger.WithComponent("reporting").Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return NopReporter{}
	}
	logger.WithComponent("reporting").Info("Honeybadger error reporting is enabled.")
	return NewHoneybadgerReporter(apiKey, env)
}
