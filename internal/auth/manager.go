package auth

import (
	"context"
	"fmt"

	"github.com/bassista/go_weightsync/internal/logger"
	"github.com/bassista/go_weightsync/internal/repository"
)

// Refresher exchanges a refresh token for a fresh token record.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*repository.TokenRecord, error)
}

// TokenManager couples refresh with persistence: every successful refresh is
// saved before the new record is handed out.
type TokenManager struct {
	store      repository.TokenStore
	refreshers map[repository.Provider]Refresher
}

func NewTokenManager(store repository.TokenStore, refreshers map[repository.Provider]Refresher) *TokenManager {
	return &TokenManager{store: store, refreshers: refreshers}
}

// Acquire resolves the current refresh token for provider and refreshes it.
// There is no expiry check: tokens are refreshed before every use.
func (m *TokenManager) Acquire(ctx context.Context, provider repository.Provider) (*repository.TokenRecord, error) {
	refreshToken, err := m.store.ResolveRefreshToken(provider)
	if err != nil {
		return nil, err
	}
	return m.Refresh(ctx, provider, refreshToken)
}

// Refresh performs the provider exchange and saves the result. A save
// failure is logged; the refreshed record is still returned so the current
// run can proceed.
func (m *TokenManager) Refresh(ctx context.Context, provider repository.Provider, refreshToken string) (*repository.TokenRecord, error) {
	log := logger.WithComponent("auth").WithField("provider", provider)

	r, ok := m.refreshers[provider]
	if !ok {
		return nil, fmt.Errorf("no refresher registered for provider %q", provider)
	}

	// The provider revokes refreshToken as soon as it issues the next one, so
	// the exchange and the save must not be cut short by the caller going
	// away. The HTTP client timeout still bounds the exchange.
	ctx = context.WithoutCancel(ctx)

	rec, err := r.Refresh(ctx, refreshToken)
	if err != nil {
		log.Errorf("token refresh failed: %v", err)
		return nil, err
	}

	rec.Provider = provider
	// Providers that do not rotate may omit the refresh token; the one just
	// used is still the latest issued.
	if rec.RefreshToken == "" {
		rec.RefreshToken = refreshToken
	}

	if err := m.store.Save(provider, rec); err != nil {
		log.Errorf("refreshed tokens could not be persisted: %v", err)
	} else {
		log.Debug("refreshed tokens persisted")
	}

	log.Info("access token refreshed")
	return rec, nil
}
