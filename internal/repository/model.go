package repository

// Provider identifies one side of the sync.
type Provider string

const (
	// ProviderWithings is the smart-scale source.
	ProviderWithings Provider = "withings"
	// ProviderFitbit is the fitness-tracking destination.
	ProviderFitbit Provider = "fitbit"
)

// Providers lists every known provider.
var Providers = []Provider{ProviderWithings, ProviderFitbit}

func (p Provider) String() string {
	return string(p)
}

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

// TokenRecord is the cached OAuth state for one provider.
type TokenRecord struct {
	Provider     Provider `json:"provider" validate:"required,oneof=withings fitbit"`
	AccessToken  string   `json:"access_token" validate:"required"`
	RefreshToken string   `json:"refresh_token" validate:"required"`
	TokenType    string   `json:"token_type,omitempty"`
	Scope        string   `json:"scope,omitempty"`
	ExpiresIn    int64    `json:"expires_in,omitempty"`
	UserID       string   `json:"user_id,omitempty"`
	ObtainedAt   int64    `json:"obtained_at,omitempty"` // Unix seconds
}
