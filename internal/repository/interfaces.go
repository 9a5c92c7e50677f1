package repository

// TokenSaver persists a refreshed token record.
// Small interface used by the token refresher.
type TokenSaver interface {
	Save(provider Provider, record *TokenRecord) error
}

// TokenStore abstracts persistence of per-provider token records.
// JSONTokenStore implements this interface.
type TokenStore interface {
	TokenSaver
	Load(provider Provider) *TokenRecord
	ResolveRefreshToken(provider Provider) (string, error)
}
