package api

import "github.com/jrsteele09/go-platform-console/users"

// ConnectionStatus is the state of the link between a user and a platform
type ConnectionStatus string

const (
	StatusUnknown      ConnectionStatus = ""
	StatusConnected    ConnectionStatus = "connected"
	StatusPending      ConnectionStatus = "pending"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

// ConnectionType decides which dependent collections a platform has
type ConnectionType string

const (
	ConnectionNone   ConnectionType = ""
	ConnectionAPIKey ConnectionType = "api_key" // Exchange accounts with API key/secret pairs
	ConnectionOAuth  ConnectionType = "oauth"   // Broker integrations authorised by redirect
)

// Platform is a user-platform link as returned by the API
type Platform struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Code           string           `json:"code"` // URL-safe slug, e.g. "binance"
	ConnectionType ConnectionType   `json:"connection_type,omitempty"`
	Status         ConnectionStatus `json:"status,omitempty"`
	IsDefault      bool             `json:"is_default,omitempty"`
}

func (p Platform) ItemID() string    { return p.ID }
func (p Platform) ItemDefault() bool { return p.IsDefault }
func (p Platform) HasAccounts() bool { return p.ConnectionType == ConnectionAPIKey }
func (p Platform) IsConnected() bool { return p.Status == StatusConnected }

// Account is an API-key credential set under a user-platform link
type Account struct {
	ID         string `json:"id"`
	PlatformID string `json:"platform_id"`
	Label      string `json:"label"`
	APIKeyHint string `json:"api_key_hint,omitempty"` // Last characters of the key only
	IsDefault  bool   `json:"is_default,omitempty"`
}

func (a Account) ItemID() string    { return a.ID }
func (a Account) ItemDefault() bool { return a.IsDefault }

// AuthResult is returned by login and registration
type AuthResult struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}
