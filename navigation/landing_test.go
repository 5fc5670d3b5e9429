package navigation_test

import (
	"testing"

	"github.com/jrsteele09/go-platform-console/api"
	"github.com/jrsteele09/go-platform-console/navigation"
	"github.com/jrsteele09/go-platform-console/selection"
	"github.com/jrsteele09/go-platform-console/session"
	"github.com/jrsteele09/go-platform-console/users"
	"github.com/stretchr/testify/require"
)

func authenticated(role users.RoleType) session.Snapshot {
	return session.Snapshot{
		State: session.StateAuthenticated,
		User:  &users.User{ID: "u1", Email: "u1@example.com", Role: role},
		Token: "token",
	}
}

func selected(p api.Platform) selection.View {
	return selection.View{
		PlatformID: p.ID,
		Platforms:  []api.Platform{p},
		Status:     p.Status,
	}
}

func TestResolveLanding(t *testing.T) {
	binance := api.Platform{ID: "P1", Code: "binance", Status: api.StatusConnected}

	tests := []struct {
		name    string
		session session.Snapshot
		view    selection.View
		want    string
	}{
		{"unknown session", session.Snapshot{}, selection.View{}, navigation.PathLogin},
		{"anonymous", session.Snapshot{State: session.StateAnonymous}, selected(binance), navigation.PathLogin},
		{"admin without selection", authenticated(users.RoleAdmin), selection.View{}, navigation.PathAdminDashboard},
		{"admin with selection", authenticated(users.RoleAdmin), selected(binance), navigation.PathAdminDashboard},
		{"client unconfigured", authenticated(users.RoleClient), selection.View{}, navigation.PathClientOnboarding},
		{"client connected", authenticated(users.RoleClient), selected(binance), "/client/platforms/binance/dashboard"},
		{"unknown role", authenticated("owner"), selected(binance), navigation.PathLogin},
		{"empty role", authenticated(""), selected(binance), navigation.PathLogin},
	}
	for _, status := range []api.ConnectionStatus{api.StatusPending, api.StatusDisconnected, api.StatusError, api.StatusUnknown} {
		p := binance
		p.Status = status
		tests = append(tests, struct {
			name    string
			session session.Snapshot
			view    selection.View
			want    string
		}{"client " + string(status) + " platform", authenticated(users.RoleClient), selected(p), navigation.PathClientOnboarding})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, navigation.ResolveLanding(tt.session, tt.view))
		})
	}
}

func TestResolveLanding_CodeFallsBackToID(t *testing.T) {
	view := selection.View{PlatformID: "plat 7", Status: api.StatusConnected}
	require.Equal(t, "/client/platforms/plat%207/dashboard", navigation.ResolveLanding(authenticated(users.RoleClient), view))
}

func TestFallbackFor(t *testing.T) {
	require.Equal(t, navigation.PathAdminDashboard, navigation.FallbackFor(users.RoleAdmin))
	require.Equal(t, navigation.PathClientOnboarding, navigation.FallbackFor(users.RoleClient))
	require.Equal(t, navigation.PathLogin, navigation.FallbackFor(""))
}
