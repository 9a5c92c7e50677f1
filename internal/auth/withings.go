package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bassista/go_weightsync/internal/provider"
	"github.com/bassista/go_weightsync/internal/repository"
)

// WithingsRefresher exchanges refresh tokens against the Withings v2 oauth2
// endpoint, which wraps its payload in a {status, body} envelope.
type WithingsRefresher struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	now          func() time.Time
}

func NewWithingsRefresher(clientID, clientSecret, tokenURL string, httpClient *http.Client) *WithingsRefresher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WithingsRefresher{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		httpClient:   httpClient,
		now:          time.Now,
	}
}

// flexString accepts both JSON strings and numbers; userid comes back as
// either depending on the account.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(bytes.TrimSpace(b))
	return nil
}

type withingsTokenResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
	Body   struct {
		UserID       flexString `json:"userid"`
		AccessToken  string     `json:"access_token"`
		RefreshToken string     `json:"refresh_token"`
		ExpiresIn    int64      `json:"expires_in"`
		Scope        string     `json:"scope"`
		TokenType    string     `json:"token_type"`
	} `json:"body"`
}

func (w *WithingsRefresher) Refresh(ctx context.Context, refreshToken string) (*repository.TokenRecord, error) {
	form := url.Values{
		"action":        {"requesttoken"},
		"client_id":     {w.clientID},
		"client_secret": {w.clientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TokenRefreshError{Provider: repository.ProviderWithings, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, &TokenRefreshError{Provider: repository.ProviderWithings, Err: err}
	}
	defer resp.Body.Close()

	raw := provider.ReadBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &TokenRefreshError{Provider: repository.ProviderWithings, StatusCode: resp.StatusCode, Body: raw}
	}

	var payload withingsTokenResponse
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &TokenRefreshError{
			Provider:   repository.ProviderWithings,
			StatusCode: resp.StatusCode,
			Body:       raw,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	if payload.Status != 0 {
		return nil, &TokenRefreshError{
			Provider:   repository.ProviderWithings,
			StatusCode: resp.StatusCode,
			Body:       raw,
			Err:        fmt.Errorf("api status %d", payload.Status),
		}
	}
	if payload.Body.AccessToken == "" {
		return nil, &TokenRefreshError{
			Provider:   repository.ProviderWithings,
			StatusCode: resp.StatusCode,
			Body:       raw,
			Err:        errors.New("response carries no access token"),
		}
	}

	return &repository.TokenRecord{
		Provider:     repository.ProviderWithings,
		AccessToken:  payload.Body.AccessToken,
		RefreshToken: payload.Body.RefreshToken,
		TokenType:    payload.Body.TokenType,
		Scope:        payload.Body.Scope,
		ExpiresIn:    payload.Body.ExpiresIn,
		UserID:       string(payload.Body.UserID),
		ObtainedAt:   w.now().Unix(),
	}, nil
}
