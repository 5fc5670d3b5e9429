package apifake

import (
	"github.com/jrsteele09/go-platform-console/api"
	"github.com/jrsteele09/go-platform-console/users"
	"github.com/pkg/errors"
)

// Demo credentials seeded by NewDemo
const (
	DemoPassword    = "Password123"
	DemoAdminEmail  = "admin@example.com"
	DemoClientEmail = "client@example.com"
	DemoNewEmail    = "onboarding@example.com"
)

// NewDemo returns a backend seeded with an admin, a connected client and a
// client that has not linked a platform yet
func NewDemo(options ...Option) (*Backend, error) {
	b := New(options...)

	if _, err := b.AddUser(users.User{Email: DemoAdminEmail, FirstName: "Ada", LastName: "Admin", Role: users.RoleAdmin}, DemoPassword); err != nil {
		return nil, errors.Wrap(err, "NewDemo admin")
	}
	if _, err := b.AddUser(users.User{Email: DemoNewEmail, FirstName: "Nova", LastName: "Newcomer", Role: users.RoleClient}, DemoPassword); err != nil {
		return nil, errors.Wrap(err, "NewDemo onboarding client")
	}
	client, err := b.AddUser(users.User{Email: DemoClientEmail, FirstName: "Carl", LastName: "Client", Role: users.RoleClient}, DemoPassword)
	if err != nil {
		return nil, errors.Wrap(err, "NewDemo client")
	}

	b.SetPlatforms(client.ID,
		api.Platform{ID: "plat-binance", Name: "Binance", Code: "binance", ConnectionType: api.ConnectionAPIKey, Status: api.StatusConnected, IsDefault: true},
		api.Platform{ID: "plat-kraken", Name: "Kraken", Code: "kraken", ConnectionType: api.ConnectionAPIKey, Status: api.StatusPending},
		api.Platform{ID: "plat-ibkr", Name: "Interactive Brokers", Code: "ibkr", ConnectionType: api.ConnectionOAuth, Status: api.StatusConnected},
	)
	b.SetAccounts("plat-binance",
		api.Account{ID: "acct-spot", Label: "Spot", APIKeyHint: "...9f2a", IsDefault: true},
		api.Account{ID: "acct-margin", Label: "Margin", APIKeyHint: "...41c0"},
	)
	b.SetAccounts("plat-kraken",
		api.Account{ID: "acct-main", Label: "Main", APIKeyHint: "...7b1e"},
	)
	return b, nil
}
