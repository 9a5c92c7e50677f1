package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bassista/go_weightsync/internal/repository"
	"golang.org/x/oauth2"
)

// FitbitRefresher uses the standard refresh_token grant. Without a client
// secret the client_id travels in the form body (public client); with one
// the client authenticates through HTTP Basic.
type FitbitRefresher struct {
	cfg        *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

func NewFitbitRefresher(clientID, clientSecret, tokenURL string, httpClient *http.Client) *FitbitRefresher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	style := oauth2.AuthStyleInParams
	if clientSecret != "" {
		style = oauth2.AuthStyleInHeader
	}

	return &FitbitRefresher{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: style,
			},
		},
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (f *FitbitRefresher) Refresh(ctx context.Context, refreshToken string) (*repository.TokenRecord, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)

	// A token without access token is never valid, so Token() always hits
	// the endpoint with the refresh_token grant.
	tok, err := f.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		refreshErr := &TokenRefreshError{Provider: repository.ProviderFitbit, Err: err}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			if rerr.Response != nil {
				refreshErr.StatusCode = rerr.Response.StatusCode
			}
			refreshErr.Body = string(rerr.Body)
		}
		return nil, refreshErr
	}

	rec := &repository.TokenRecord{
		Provider:     repository.ProviderFitbit,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ObtainedAt:   f.now().Unix(),
	}
	if v, ok := tok.Extra("user_id").(string); ok {
		rec.UserID = v
	}
	if v, ok := tok.Extra("scope").(string); ok {
		rec.Scope = v
	}
	if v, ok := tok.Extra("expires_in").(float64); ok {
		rec.ExpiresIn = int64(v)
	}
	return rec, nil
}
