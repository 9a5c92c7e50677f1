// Package fitbit logs body weight and body fat to the Fitbit Web API.
package fitbit

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/bassista/go_weightsync/internal/logger"
	"github.com/bassista/go_weightsync/internal/provider"
)

const (
	weightPath = "/1/user/-/body/log/weight.json"
	fatPath    = "/1/user/-/body/log/fat.json"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the Web API rooted at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// PostResult is the outcome of a log call that reached the API. Created is
// true only for HTTP 201.
type PostResult struct {
	StatusCode int
	Body       string
}

func (r *PostResult) Created() bool {
	return r != nil && r.StatusCode == http.StatusCreated
}

// LogWeight records a weight entry for date/clock.
func (c *Client) LogWeight(ctx context.Context, accessToken, weight, date, clock string) (*PostResult, error) {
	return c.post(ctx, "fitbit log weight", weightPath, accessToken, url.Values{
		"weight": {weight},
		"date":   {date},
		"time":   {clock},
	})
}

// LogFat records a body-fat percentage entry for date/clock.
func (c *Client) LogFat(ctx context.Context, accessToken, fat, date, clock string) (*PostResult, error) {
	return c.post(ctx, "fitbit log fat", fatPath, accessToken, url.Values{
		"fat":  {fat},
		"date": {date},
		"time": {clock},
	})
}

// post only fails on transport errors; any HTTP status is returned to the
// caller for classification.
func (c *Client) post(ctx context.Context, op, path, accessToken string, query url.Values) (*PostResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &provider.TransportError{Op: op, Err: err}
	}
	provider.SetBearer(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	res := &PostResult{StatusCode: resp.StatusCode, Body: provider.ReadBody(resp.Body)}
	logger.WithComponent("fitbit").Debugf("%s: status %d", op, res.StatusCode)
	return res, nil
}
