package selection

import (
	"github.com/jrsteele09/go-platform-console/api"
)

// View is a copy of the selection state handed to readers
type View struct {
	PlatformID       string               `json:"platform_id,omitempty"`
	AccountID        string               `json:"account_id,omitempty"`
	Platforms        []api.Platform       `json:"platforms"`
	Accounts         []api.Account        `json:"accounts"`
	LoadingPlatforms bool                 `json:"loading_platforms"`
	LoadingAccounts  bool                 `json:"loading_accounts"`
	Status           api.ConnectionStatus `json:"status,omitempty"`          // of the selected platform
	ConnectionType   api.ConnectionType   `json:"connection_type,omitempty"` // of the selected platform
	PlatformsError   string               `json:"platforms_error,omitempty"`
	AccountsError    string               `json:"accounts_error,omitempty"`
}

// SelectedPlatform returns the loaded record of the selected platform
func (v View) SelectedPlatform() (api.Platform, bool) {
	for _, p := range v.Platforms {
		if p.ID == v.PlatformID && p.ID != "" {
			return p, true
		}
	}
	return api.Platform{}, false
}

// SelectedAccount returns the loaded record of the selected account
func (v View) SelectedAccount() (api.Account, bool) {
	for _, a := range v.Accounts {
		if a.ID == v.AccountID && a.ID != "" {
			return a, true
		}
	}
	return api.Account{}, false
}

func (v View) clone() View {
	v.Platforms = append([]api.Platform{}, v.Platforms...)
	v.Accounts = append([]api.Account{}, v.Accounts...)
	return v
}

// derive refreshes the fields that follow from the selected platform
func (v *View) derive() {
	p, _ := v.SelectedPlatform()
	v.Status = p.Status
	v.ConnectionType = p.ConnectionType
}
