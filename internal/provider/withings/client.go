// Package withings fetches body measurements from the Withings API.
package withings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_weightsync/internal/logger"
	"github.com/bassista/go_weightsync/internal/measure"
	"github.com/bassista/go_weightsync/internal/provider"
)

// categoryReal excludes user objectives from getmeas results.
const categoryReal = "1"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the measure API rooted at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type measureResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
	Body   struct {
		MeasureGroups []struct {
			GroupID  int64 `json:"grpid"`
			Date     int64 `json:"date"`
			Category int   `json:"category"`
			Measures []struct {
				Value int64 `json:"value"`
				Type  int   `json:"type"`
				Unit  int   `json:"unit"`
			} `json:"measures"`
		} `json:"measuregrps"`
	} `json:"body"`
}

// GetMeasures returns weight and body-fat groups updated since the given
// instant, in the order the API returns them.
func (c *Client) GetMeasures(ctx context.Context, accessToken string, since time.Time) ([]measure.Group, error) {
	const op = "withings getmeas"

	form := url.Values{
		"action":     {"getmeas"},
		"meastypes":  {fmt.Sprintf("%d,%d", measure.TypeWeight, measure.TypeBodyFat)},
		"category":   {categoryReal},
		"lastupdate": {strconv.FormatInt(since.Unix(), 10)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/measure", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &provider.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	provider.SetBearer(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &provider.TransportError{Op: op, StatusCode: resp.StatusCode, Body: provider.ReadBody(resp.Body)}
	}

	var payload measureResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &provider.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if payload.Status != 0 {
		return nil, &provider.TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("api status %d %s", payload.Status, payload.Error),
		}
	}

	groups := make([]measure.Group, 0, len(payload.Body.MeasureGroups))
	for _, mg := range payload.Body.MeasureGroups {
		g := measure.Group{Timestamp: mg.Date, Measures: make([]measure.Measurement, 0, len(mg.Measures))}
		for _, m := range mg.Measures {
			g.Measures = append(g.Measures, measure.Measurement{
				Type:     measure.Type(m.Type),
				Value:    m.Value,
				Exponent: m.Unit,
			})
		}
		groups = append(groups, g)
	}

	logger.WithComponent("withings").Debugf("fetched %d measure groups since %s", len(groups), since.Format(time.RFC3339))
	return groups, nil
}
